package collector

import (
	"fmt"
	"strconv"

	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/hostnet"
	"nathanbeddoewebdev/nodeprov/internal/util"
)

// Tenant network defaults offered to the operator.
const (
	DefaultFixedRange     = "10.0.0.0/12"
	DefaultFixedRangeSize = "5000"
	DefaultProjectCIDR    = "10.0.0.0/16"
	DefaultNetworkCount   = "8"
	DefaultNetworkSize    = "64"
	DefaultAdminName      = "novaadmin"
	DefaultProjectName    = "novaproject"
)

// SecretKey is the answers key that may preseed the database credential.
const SecretKey = "db_password"

// Field is one validated plan value collected from the operator.
type Field struct {
	Key   string
	Title string
	// Default computes the value offered when the operator enters nothing.
	// It sees the plan collected so far. Nil or "" means no default.
	Default func(host hostnet.Defaults, plan *domain.Plan) string
	// Validate returns a corrective message for unacceptable input.
	Validate func(string) error
	// Set stores the validated value.
	Set func(plan *domain.Plan, value string) error
}

func (f Field) defaultValue(host hostnet.Defaults, plan *domain.Plan) string {
	if f.Default == nil {
		return ""
	}
	return f.Default(host, plan)
}

// accept validates value and stores it in plan.
func (f Field) accept(plan *domain.Plan, value string) error {
	if err := f.Validate(value); err != nil {
		return err
	}
	return f.Set(plan, value)
}

func fixed(v string) func(hostnet.Defaults, *domain.Plan) string {
	return func(hostnet.Defaults, *domain.Plan) string { return v }
}

func controllerAddr(_ hostnet.Defaults, p *domain.Plan) string { return p.ControllerAddr }

func setString(dst func(*domain.Plan) *string) func(*domain.Plan, string) error {
	return func(p *domain.Plan, v string) error {
		*dst(p) = v
		return nil
	}
}

func setInt(dst func(*domain.Plan) *int) func(*domain.Plan, string) error {
	return func(p *domain.Plan, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is too large", v)
		}
		*dst(p) = n
		return nil
	}
}

func hostField(key, title string, def func(hostnet.Defaults, *domain.Plan) string, dst func(*domain.Plan) *string) Field {
	return Field{Key: key, Title: title, Default: def, Validate: util.ValidateIPv4, Set: setString(dst)}
}

// Fields returns the fields collected for role, in prompt order. The
// worker never configures tenant networks or cloud identities.
func Fields(role domain.Role) []Field {
	var first func(hostnet.Defaults, *domain.Plan) string
	if role.IsController() {
		first = func(h hostnet.Defaults, _ *domain.Plan) string { return h.Address }
	}

	fields := []Field{
		hostField("controller_addr", "Controller address", first,
			func(p *domain.Plan) *string { return &p.ControllerAddr }),
		hostField("objectstore_addr", "Object store address", controllerAddr,
			func(p *domain.Plan) *string { return &p.ObjectStoreAddr }),
		hostField("broker_addr", "Message broker address", controllerAddr,
			func(p *domain.Plan) *string { return &p.BrokerAddr }),
		hostField("database_addr", "Database address", controllerAddr,
			func(p *domain.Plan) *string { return &p.DatabaseAddr }),
		hostField("bridge_address", "Bridge address",
			func(h hostnet.Defaults, _ *domain.Plan) string { return h.Address },
			func(p *domain.Plan) *string { return &p.Bridge.Address }),
		hostField("bridge_broadcast", "Bridge broadcast address",
			func(h hostnet.Defaults, _ *domain.Plan) string { return h.Broadcast },
			func(p *domain.Plan) *string { return &p.Bridge.Broadcast }),
		hostField("bridge_netmask", "Bridge netmask",
			func(h hostnet.Defaults, _ *domain.Plan) string { return h.Netmask },
			func(p *domain.Plan) *string { return &p.Bridge.Netmask }),
		hostField("bridge_gateway", "Bridge gateway",
			func(h hostnet.Defaults, _ *domain.Plan) string { return h.Gateway },
			func(p *domain.Plan) *string { return &p.Bridge.Gateway }),
		hostField("bridge_nameserver", "Bridge nameserver",
			func(h hostnet.Defaults, _ *domain.Plan) string { return h.Nameserver },
			func(p *domain.Plan) *string { return &p.Bridge.Nameserver }),
	}
	if !role.IsController() {
		return fields
	}

	return append(fields,
		Field{
			Key: "fixed_range", Title: "Tenant fixed range (CIDR)", Default: fixed(DefaultFixedRange),
			Validate: util.ValidateCIDR,
			Set:      setString(func(p *domain.Plan) *string { return &p.Tenant.FixedRange }),
		},
		Field{
			Key: "fixed_range_size", Title: "Usable addresses in the fixed range", Default: fixed(DefaultFixedRangeSize),
			Validate: util.ValidatePositive,
			Set:      setInt(func(p *domain.Plan) *int { return &p.Tenant.FixedRangeSize }),
		},
		Field{
			Key: "project_cidr", Title: "Project network range (CIDR)", Default: fixed(DefaultProjectCIDR),
			Validate: util.ValidateCIDR,
			Set:      setString(func(p *domain.Plan) *string { return &p.Tenant.ProjectCIDR }),
		},
		Field{
			Key: "network_count", Title: "Number of project networks", Default: fixed(DefaultNetworkCount),
			Validate: util.ValidatePositive,
			Set:      setInt(func(p *domain.Plan) *int { return &p.Tenant.NetworkCount }),
		},
		Field{
			Key: "network_size", Title: "Addresses per project network", Default: fixed(DefaultNetworkSize),
			Validate: util.ValidatePositive,
			Set:      setInt(func(p *domain.Plan) *int { return &p.Tenant.NetworkSize }),
		},
		Field{
			Key: "admin_name", Title: "Cloud administrator name", Default: fixed(DefaultAdminName),
			Validate: util.ValidateName,
			Set:      setString(func(p *domain.Plan) *string { return &p.AdminName }),
		},
		Field{
			Key: "project_name", Title: "Project name", Default: fixed(DefaultProjectName),
			Validate: util.ValidateName,
			Set:      setString(func(p *domain.Plan) *string { return &p.ProjectName }),
		},
	)
}
