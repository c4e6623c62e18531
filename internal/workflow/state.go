package workflow

import "nathanbeddoewebdev/nodeprov/internal/domain"

// State is a position in the provisioning state machine.
type State int

const (
	Init State = iota
	SafetyChecked
	DependenciesResolved
	InputCollected
	PackagesInstalled
	ConfigWritten
	DatabaseInitialized
	CredentialsGenerated
	NetworkConfigured
	ServicesRestarted
	FirewallConfigured
	NetworkingWorkaroundApplied
	KvmPermissionsFixed
	Closed
)

var stateNames = [...]string{
	Init:                        "Init",
	SafetyChecked:               "SafetyChecked",
	DependenciesResolved:        "DependenciesResolved",
	InputCollected:              "InputCollected",
	PackagesInstalled:           "PackagesInstalled",
	ConfigWritten:               "ConfigWritten",
	DatabaseInitialized:         "DatabaseInitialized",
	CredentialsGenerated:        "CredentialsGenerated",
	NetworkConfigured:           "NetworkConfigured",
	ServicesRestarted:           "ServicesRestarted",
	FirewallConfigured:          "FirewallConfigured",
	NetworkingWorkaroundApplied: "NetworkingWorkaroundApplied",
	KvmPermissionsFixed:         "KvmPermissionsFixed",
	Closed:                      "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Sequence returns the states a run of role passes through after Init,
// ending with Closed. The two controller-only brackets are the only
// places the role changes the path.
func Sequence(role domain.Role) []State {
	seq := []State{SafetyChecked, DependenciesResolved, InputCollected, PackagesInstalled, ConfigWritten}
	if role.IsController() {
		seq = append(seq, DatabaseInitialized, CredentialsGenerated)
	}
	seq = append(seq, NetworkConfigured, ServicesRestarted)
	if role.IsController() {
		seq = append(seq, FirewallConfigured, NetworkingWorkaroundApplied)
	}
	return append(seq, KvmPermissionsFixed, Closed)
}
