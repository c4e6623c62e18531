package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/config"
	"nathanbeddoewebdev/nodeprov/internal/util"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Long: "Print a configuration value, or every value when no key is given.\n" +
			"Unset keys print their default followed by \"(default)\".\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  nodeprov config get                 # list all values\n" +
			"  nodeprov config get log-file        # print a single value",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runGet,
		SilenceUsage: true,
	}

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		for _, spec := range config.Keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", spec.Name, display(spec, cfg))
		}
		return nil
	}

	spec := config.Lookup(util.NormalizeKey(args[0]))
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout(), display(*spec, cfg))
	return nil
}

func display(spec config.KeySpec, cfg *config.Config) string {
	if v := spec.Get(cfg); v != "" {
		return v
	}
	return spec.Default + " (default)"
}
