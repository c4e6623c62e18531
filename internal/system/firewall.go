package system

import "context"

// Iptables implements Firewall with iptables(8).
type Iptables struct {
	exec Executor
}

// NewIptables returns an iptables-backed Firewall.
func NewIptables(exec Executor) *Iptables { return &Iptables{exec: exec} }

// HasRule runs "iptables -C". Exit status 1 means the rule is absent;
// anything else non-zero is a real failure.
func (f *Iptables) HasRule(ctx context.Context, r Rule) (bool, error) {
	_, err := f.exec.Run(ctx, Command{Name: "iptables", Args: ruleArgs("-C", r)})
	if err == nil {
		return true, nil
	}
	if ExitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

func (f *Iptables) AddRule(ctx context.Context, r Rule) error {
	_, err := f.exec.Run(ctx, Command{Name: "iptables", Args: ruleArgs("-A", r)})
	return err
}

func ruleArgs(op string, r Rule) []string {
	table := r.Table
	if table == "" {
		table = "filter"
	}
	args := []string{"-t", table, op, r.Chain}
	return append(args, r.Spec...)
}

// MetadataRedirect sends instance metadata requests to the controller's
// API endpoint.
func MetadataRedirect(controllerAddr string) Rule {
	return Rule{
		Table: "nat",
		Chain: "PREROUTING",
		Spec: []string{
			"-d", "169.254.169.254/32",
			"-p", "tcp", "-m", "tcp", "--dport", "80",
			"-j", "DNAT", "--to-destination", controllerAddr + ":8773",
		},
	}
}
