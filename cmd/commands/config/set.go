package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/config"
	"nathanbeddoewebdev/nodeprov/internal/util"

	"github.com/spf13/cobra"
)

// SetCommand returns the "config set" command.
func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a persistent configuration value. An empty value restores the\n" +
			"default.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  nodeprov config set log-file /var/log/nodeprov/node1.log\n" +
			"  nodeprov config set package-source ppa:nova-core/release\n" +
			"  nodeprov config set credentials-dir \"\"",
		Args:         cobra.ExactArgs(2),
		RunE:         runSet,
		SilenceUsage: true,
	}

	return cmd
}

// validators maps key names to optional pre-save validation functions.
// Keys not present in this map have no extra validation.
var validators = map[string]func(value string) error{
	"log-file":        validatePath,
	"history-db":      validatePath,
	"credentials-dir": validatePath,
	"service-config":  validatePath,
	"interfaces-file": validatePath,
	"package-source":  validateSource,
}

func runSet(cmd *cobra.Command, args []string) error {
	spec := config.Lookup(util.NormalizeKey(args[0]))
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}

	value := strings.TrimSpace(args[1])
	if validate, ok := validators[spec.Name]; ok && value != "" {
		if err := validate(value); err != nil {
			return fmt.Errorf("invalid %s: %w", spec.Name, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	spec.Set(cfg, value)
	if err := cfg.Save(); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s reset to default %q\n", spec.Name, spec.Default)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", spec.Name, value)
	return nil
}

func validatePath(value string) error {
	if !filepath.IsAbs(value) {
		return fmt.Errorf("%q is not an absolute path", value)
	}
	if filepath.Clean(value) == "/" {
		return fmt.Errorf("%q is the filesystem root", value)
	}
	return nil
}

func validateSource(value string) error {
	if strings.ContainsAny(value, " \t") {
		return fmt.Errorf("%q contains whitespace", value)
	}
	return nil
}
