package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/retry"
)

// DefaultMySQLConf is the server configuration holding bind-address.
const DefaultMySQLConf = "/etc/mysql/my.cnf"

var bindAddressLine = regexp.MustCompile(`(?m)^(\s*bind-address\s*=\s*)(\S+)\s*$`)

// MySQL implements Database with the mysql client. Statements are fed on
// stdin and the password through MYSQL_PWD so neither appears in argv.
type MySQL struct {
	exec     Executor
	confPath string
	retry    retry.Policy
}

// NewMySQL returns a MySQL backend. An empty confPath selects
// DefaultMySQLConf.
func NewMySQL(exec Executor, confPath string) *MySQL {
	if confPath == "" {
		confPath = DefaultMySQLConf
	}
	return &MySQL{exec: exec, confPath: confPath, retry: retry.DefaultPolicy()}
}

// serverUnavailable matches the client errors for a server that is not
// accepting connections yet (2002 socket, 2003 TCP).
func serverUnavailable(err error) bool {
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		return false
	}
	return strings.Contains(cerr.Output, "ERROR 2002") || strings.Contains(cerr.Output, "ERROR 2003")
}

func (m *MySQL) query(ctx context.Context, cred domain.Secret, stmt string) (string, error) {
	c := Command{
		Name:  "mysql",
		Args:  []string{"-uroot", "-N", "-B"},
		Stdin: stmt + "\n",
	}
	if !cred.IsZero() {
		c.Env = []string{"MYSQL_PWD=" + cred.Reveal()}
	}
	var out []byte
	// A refused connection executed nothing, so every statement is safe to
	// resend while the server finishes starting.
	err := retry.Do(context.WithoutCancel(ctx), m.retry, serverUnavailable, func() error {
		var err error
		out, err = m.exec.Run(ctx, c)
		return err
	})
	return strings.TrimSpace(string(out)), err
}

// CanLogin reports whether root accepts cred. The client exits 1 when
// access is denied.
func (m *MySQL) CanLogin(ctx context.Context, cred domain.Secret) (bool, error) {
	_, err := m.query(ctx, cred, "SELECT 1;")
	if err == nil {
		return true, nil
	}
	if ExitCode(err) == 1 && !serverUnavailable(err) {
		return false, nil
	}
	return false, err
}

// SetCredential sets the local password for user, connecting without one.
func (m *MySQL) SetCredential(ctx context.Context, user string, cred domain.Secret) error {
	stmt := fmt.Sprintf("SET PASSWORD FOR %s@'localhost' = PASSWORD(%s);", sqlQuote(user), sqlQuote(cred.Reveal()))
	_, err := m.query(ctx, domain.Secret{}, stmt)
	return err
}

// ListensOnAll reports whether the server accepts remote connections.
// A configuration without bind-address listens everywhere.
func (m *MySQL) ListensOnAll() (bool, error) {
	data, err := os.ReadFile(m.confPath)
	if err != nil {
		return false, fmt.Errorf("mysql: read %s: %w", m.confPath, err)
	}
	for _, match := range bindAddressLine.FindAllStringSubmatch(string(data), -1) {
		if match[2] != "0.0.0.0" {
			return false, nil
		}
	}
	return true, nil
}

// ListenOnAll rewrites every bind-address to 0.0.0.0.
func (m *MySQL) ListenOnAll() error {
	info, err := os.Stat(m.confPath)
	if err != nil {
		return fmt.Errorf("mysql: stat %s: %w", m.confPath, err)
	}
	data, err := os.ReadFile(m.confPath)
	if err != nil {
		return fmt.Errorf("mysql: read %s: %w", m.confPath, err)
	}
	updated := bindAddressLine.ReplaceAll(data, []byte("${1}0.0.0.0"))
	if err := os.WriteFile(m.confPath, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("mysql: write %s: %w", m.confPath, err)
	}
	return nil
}

// AcceptsRemote reads the server's bind_address. Servers that do not
// report the variable are treated as not yet listening everywhere.
func (m *MySQL) AcceptsRemote(ctx context.Context, cred domain.Secret) (bool, error) {
	out, err := m.query(ctx, cred, "SHOW VARIABLES LIKE 'bind_address';")
	if err != nil {
		return false, err
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return false, nil
	}
	switch fields[1] {
	case "0.0.0.0", "*", "::":
		return true, nil
	}
	return false, nil
}

func (m *MySQL) DatabaseExists(ctx context.Context, cred domain.Secret, name string) (bool, error) {
	out, err := m.query(ctx, cred, fmt.Sprintf("SHOW DATABASES LIKE %s;", sqlQuote(name)))
	if err != nil {
		return false, err
	}
	return out == name, nil
}

func (m *MySQL) CreateDatabase(ctx context.Context, cred domain.Secret, name string) error {
	_, err := m.query(ctx, cred, fmt.Sprintf("CREATE DATABASE %s;", sqlIdent(name)))
	return err
}

// HasGrant reports whether user ("name@host") holds privileges on scope
// ("db.*" or "*.*").
func (m *MySQL) HasGrant(ctx context.Context, cred domain.Secret, user, scope string) (bool, error) {
	name, host := splitAccount(user)
	db, _, _ := strings.Cut(scope, ".")
	var stmt string
	if db == "*" {
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM mysql.user WHERE User=%s AND Host=%s AND Grant_priv='Y';",
			sqlQuote(name), sqlQuote(host))
	} else {
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM mysql.db WHERE User=%s AND Host=%s AND Db=%s;",
			sqlQuote(name), sqlQuote(host), sqlQuote(db))
	}
	out, err := m.query(ctx, cred, stmt)
	if err != nil {
		return false, err
	}
	return out != "" && out != "0", nil
}

// GrantAccess grants all privileges on scope to user, identified by cred.
func (m *MySQL) GrantAccess(ctx context.Context, cred domain.Secret, user, scope string) error {
	name, host := splitAccount(user)
	db, _, _ := strings.Cut(scope, ".")
	target := "*.*"
	if db != "*" {
		target = sqlIdent(db) + ".*"
	}
	stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON %s TO %s@%s IDENTIFIED BY %s WITH GRANT OPTION; FLUSH PRIVILEGES;",
		target, sqlQuote(name), sqlQuote(host), sqlQuote(cred.Reveal()))
	_, err := m.query(ctx, cred, stmt)
	return err
}

// RunMigration brings the schema up to date. The migration tool is
// itself idempotent.
func (m *MySQL) RunMigration(ctx context.Context) error {
	_, err := m.exec.Run(ctx, Command{Name: "nova-manage", Args: []string{"db", "sync"}})
	return err
}

func splitAccount(user string) (name, host string) {
	name, host, ok := strings.Cut(user, "@")
	if !ok {
		host = "localhost"
	}
	return name, host
}

func sqlQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func sqlIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
