package domain

// PackageSet is an ordered, immutable list of package identifiers.
type PackageSet struct {
	names []string
}

// NewPackageSet builds a set from names, dropping duplicates while
// keeping first-seen order.
func NewPackageSet(names ...string) PackageSet {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return PackageSet{names: out}
}

// Names returns a copy of the package identifiers in install order.
func (s PackageSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of packages in the set.
func (s PackageSet) Len() int { return len(s.names) }

// PackagesFor returns the package set required by a role.
func PackagesFor(r Role) PackageSet {
	if r.IsController() {
		return NewPackageSet(
			"nova-api",
			"nova-objectstore",
			"nova-scheduler",
			"nova-network",
			"nova-compute",
			"rabbitmq-server",
			"mysql-server",
			"euca2ools",
			"unzip",
		)
	}
	return NewPackageSet("nova-compute")
}

// ServicesFor returns the services restarted once a role's configuration
// is in place, in restart order.
func ServicesFor(r Role) []string {
	if r.IsController() {
		return []string{
			"libvirt-bin",
			"nova-network",
			"nova-compute",
			"nova-api",
			"nova-objectstore",
			"nova-scheduler",
		}
	}
	return []string{"libvirt-bin", "nova-compute"}
}
