package config

import (
	"nathanbeddoewebdev/nodeprov/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nodeprov settings",
		Long: "View and modify where nodeprov reads and writes its files.\n\n" +
			"Settings are stored at " + config.DefaultFile + ".\n" +
			"Unset keys use the default shown below.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
