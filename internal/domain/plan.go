package domain

// Secret holds a credential that must never appear in logs or output.
// Formatting it with any verb yields "<redacted>"; call Reveal to obtain
// the underlying value.
type Secret struct {
	value string
}

// NewSecret wraps a credential value.
func NewSecret(v string) Secret { return Secret{value: v} }

// Reveal returns the raw credential.
func (s Secret) Reveal() string { return s.value }

// IsZero reports whether no credential has been set.
func (s Secret) IsZero() bool { return s.value == "" }

func (s Secret) String() string   { return "<redacted>" }
func (s Secret) GoString() string { return "<redacted>" }

// Bridge describes the static definition of the host's network bridge.
type Bridge struct {
	Address    string
	Broadcast  string
	Netmask    string
	Gateway    string
	Nameserver string
}

// TenantNetwork describes the address space allocated to tenant projects.
type TenantNetwork struct {
	// FixedRange is the global CIDR all tenant networks are carved from.
	FixedRange string
	// FixedRangeSize is the number of usable addresses in FixedRange.
	FixedRangeSize int
	// ProjectCIDR is the range handed to the provisioned project.
	ProjectCIDR string
	// NetworkCount is how many networks ProjectCIDR is split into.
	NetworkCount int
	// NetworkSize is the number of addresses in each network.
	NetworkSize int
}

// Plan is the validated operator input that drives a provisioning run.
// It is assembled by the collector and read-only once returned.
type Plan struct {
	ControllerAddr  string
	ObjectStoreAddr string
	BrokerAddr      string
	DatabaseAddr    string

	Bridge Bridge

	// Tenant, AdminName and ProjectName are only collected for the
	// controller role. Both roles collect DBPassword.
	Tenant      TenantNetwork
	AdminName   string
	ProjectName string
	DBPassword  Secret
}
