// Package render produces the configuration artifacts written to a
// provisioned host. Rendering is pure: it never touches the filesystem.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// BridgeName is the bridge interface that tenant traffic is attached to.
const BridgeName = "br100"

// PublicInterface is the physical interface enslaved to the bridge.
const PublicInterface = "eth0"

// ServiceConfigPath is where the compute services read their flags from by
// default; the rendered file references itself through it.
const ServiceConfigPath = "/etc/nova/nova.conf"

var (
	serviceTmpl    = template.Must(template.New("nova.conf").Option("missingkey=error").Parse(serviceTemplate))
	interfacesTmpl = template.Must(template.New("interfaces").Option("missingkey=error").Parse(interfacesTemplate))
)

type serviceParams struct {
	domain.Plan
	Controller bool
	Password   string
	FlagFile   string
	Bridge     string
	Public     string
}

// ServiceConfig renders the compute service flag file for role. The
// database connection string embeds the plan's credential, so the result
// must only be written to an access-restricted file.
func ServiceConfig(plan *domain.Plan, role domain.Role) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("render: plan is required")
	}
	if err := requireFields(servicesRequired(plan, role)); err != nil {
		return "", err
	}
	return execute(serviceTmpl, serviceParams{
		Plan:       *plan,
		Controller: role.IsController(),
		Password:   plan.DBPassword.Reveal(),
		FlagFile:   ServiceConfigPath,
		Bridge:     BridgeName,
		Public:     PublicInterface,
	})
}

type interfacesParams struct {
	domain.Bridge
	Name   string
	Public string
}

// Interfaces renders the host network definition with a static bridge
// built from the plan's bridge parameters.
func Interfaces(plan *domain.Plan) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("render: plan is required")
	}
	b := plan.Bridge
	if err := requireFields([]field{
		{"bridge address", b.Address},
		{"bridge broadcast", b.Broadcast},
		{"bridge netmask", b.Netmask},
		{"bridge gateway", b.Gateway},
		{"bridge nameserver", b.Nameserver},
	}); err != nil {
		return "", err
	}
	return execute(interfacesTmpl, interfacesParams{Bridge: b, Name: BridgeName, Public: PublicInterface})
}

type field struct {
	name  string
	value string
}

func servicesRequired(plan *domain.Plan, role domain.Role) []field {
	fields := []field{
		{"controller address", plan.ControllerAddr},
		{"object store address", plan.ObjectStoreAddr},
		{"broker address", plan.BrokerAddr},
		{"database address", plan.DatabaseAddr},
		{"database password", plan.DBPassword.Reveal()},
	}
	if role.IsController() {
		fields = append(fields,
			field{"bridge address", plan.Bridge.Address},
			field{"fixed range", plan.Tenant.FixedRange},
		)
		if plan.Tenant.NetworkSize <= 0 {
			fields = append(fields, field{"network size", ""})
		}
	}
	return fields
}

func requireFields(fields []field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("render: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

const serviceTemplate = `--dhcpbridge_flagfile={{ .FlagFile }}
--dhcpbridge=/usr/bin/nova-dhcpbridge
--logdir=/var/log/nova
--state_path=/var/lib/nova
--lock_path=/var/lock/nova
--verbose
--s3_host={{ .ObjectStoreAddr }}
--rabbit_host={{ .BrokerAddr }}
--cc_host={{ .ControllerAddr }}
--ec2_url=http://{{ .ControllerAddr }}:8773/services/Cloud
--sql_connection=mysql://root:{{ .Password }}@{{ .DatabaseAddr }}/nova
--network_manager=nova.network.manager.FlatDHCPManager
--flat_network_bridge={{ .Bridge }}
--public_interface={{ .Public }}
{{- if .Controller }}
--fixed_range={{ .Tenant.FixedRange }}
--network_size={{ .Tenant.NetworkSize }}
--FAKE_subdomain=ec2
--routing_source_ip={{ .Plan.Bridge.Address }}
{{- end }}
`

const interfacesTemplate = `# The loopback network interface
auto lo
iface lo inet loopback

# The primary network interface, bridged for tenant traffic
auto {{ .Name }}
iface {{ .Name }} inet static
    bridge_ports {{ .Public }}
    bridge_stp off
    bridge_maxwait 0
    bridge_fd 0
    address {{ .Address }}
    netmask {{ .Netmask }}
    broadcast {{ .Broadcast }}
    gateway {{ .Gateway }}
    dns-nameservers {{ .Nameserver }}
`
