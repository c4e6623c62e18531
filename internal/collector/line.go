package collector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// LinePrompter asks questions one line at a time. It is used when input
// is not a terminal or when accessible output is requested. Secrets are
// read without echo when input is a terminal.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // terminal descriptor, or -1

	start sync.Once
	reqs  chan readRequest

	mu    sync.Mutex
	saved *term.State
}

type readRequest struct {
	secret bool
	reply  chan readReply
}

type readReply struct {
	line string
	err  error
}

// NewLinePrompter returns a prompter reading from in and writing to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &LinePrompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Ask prints the prompt and reads one line.
func (p *LinePrompter) Ask(ctx context.Context, pr Prompt) (string, error) {
	p.printPrompt(pr)
	return p.read(ctx, false)
}

// AskSecret prints the prompt and reads one line without echo.
func (p *LinePrompter) AskSecret(ctx context.Context, pr Prompt) (string, error) {
	pr.Default = ""
	p.printPrompt(pr)
	return p.read(ctx, true)
}

func (p *LinePrompter) printPrompt(pr Prompt) {
	if pr.Error != "" {
		fmt.Fprintf(p.out, "  %s\n", pr.Error)
	}
	if pr.Default != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", pr.Title, pr.Default)
		return
	}
	fmt.Fprintf(p.out, "%s: ", pr.Title)
}

// read hands the request to a single reader goroutine so a cancelled
// context can return while the read is still blocked.
func (p *LinePrompter) read(ctx context.Context, secret bool) (string, error) {
	p.start.Do(func() {
		p.reqs = make(chan readRequest)
		go p.loop()
	})

	reply := make(chan readReply, 1)
	select {
	case p.reqs <- readRequest{secret: secret, reply: reply}:
	case <-ctx.Done():
		return "", domain.ErrAborted
	}

	select {
	case r := <-reply:
		return r.line, r.err
	case <-ctx.Done():
		p.restore()
		fmt.Fprintln(p.out)
		return "", domain.ErrAborted
	}
}

func (p *LinePrompter) loop() {
	for req := range p.reqs {
		req.reply <- p.readOne(req.secret)
	}
}

func (p *LinePrompter) readOne(secret bool) readReply {
	if secret && p.fd >= 0 {
		return p.readPassword()
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return readReply{line: strings.TrimRight(line, "\r\n")}
		}
		if err == io.EOF {
			return readReply{err: domain.ErrAborted}
		}
		return readReply{err: err}
	}
	return readReply{line: strings.TrimRight(line, "\r\n")}
}

func (p *LinePrompter) readPassword() readReply {
	state, err := term.GetState(p.fd)
	if err == nil {
		p.mu.Lock()
		p.saved = state
		p.mu.Unlock()
	}
	b, err := term.ReadPassword(p.fd)
	p.mu.Lock()
	p.saved = nil
	p.mu.Unlock()
	fmt.Fprintln(p.out)
	if err != nil {
		return readReply{err: err}
	}
	return readReply{line: string(b)}
}

// restore puts the terminal back in the state it had before a hidden
// read was interrupted.
func (p *LinePrompter) restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved != nil {
		_ = term.Restore(p.fd, p.saved)
		p.saved = nil
	}
}
