package auditlog

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const redacted = "<redacted>"

var sensitiveFlags = map[string]struct{}{
	"--password":    {},
	"--db-password": {},
}

// traceLine matches shell xtrace output ("+ cmd", "++ cmd") that package
// maintainer scripts leak into captured tool output.
var traceLine = regexp.MustCompile(`^\s*\++ `)

// SanitizeArgs redacts sensitive flag values of a tool command line for
// audit storage.
func SanitizeArgs(args []string) []string {
	sanitized := make([]string, 0, len(args))
	skipNext := false

	for _, arg := range args {
		if skipNext {
			sanitized = append(sanitized, redacted)
			skipNext = false
			continue
		}

		if _, ok := sensitiveFlags[arg]; ok {
			sanitized = append(sanitized, arg)
			skipNext = true
			continue
		}

		if key, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := sensitiveFlags[key]; ok {
				sanitized = append(sanitized, key+"="+redacted)
				continue
			}
		}

		sanitized = append(sanitized, arg)
	}

	if skipNext {
		sanitized = append(sanitized, redacted)
	}

	return sanitized
}

// SanitizeText cleans captured log text: escape sequences are stripped,
// carriage-return progress redraws collapse to their final frame, shell
// trace lines are dropped and every secret is replaced.
func SanitizeText(text string, secrets []string) string {
	text = ansi.Strip(text)
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if i := strings.LastIndexByte(line, '\r'); i >= 0 {
			line = line[i+1:]
		}
		if traceLine.MatchString(line) {
			continue
		}
		kept = append(kept, Redact(line, secrets))
	}
	return strings.Join(kept, "\n")
}

// Redact replaces every occurrence of each non-empty secret in s.
func Redact(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}
