package cmd

import (
	"errors"
	"fmt"
	"os"

	auditcmd "nathanbeddoewebdev/nodeprov/cmd/commands/audit"
	cfgcmd "nathanbeddoewebdev/nodeprov/cmd/commands/config"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/tui/styles"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	opts := &installOptions{}

	var cmd = &cobra.Command{
		Use:   "nodeprov",
		Short: "Provision a host as a cloud controller or compute worker",
		Long: `nodeprov turns a fresh Ubuntu host into a node of a small compute cloud.
A controller runs the API, scheduler, object store, network manager,
message broker and database. A worker runs compute only and points at an
existing controller.

Every step checks the host first and only changes what is missing, so a
run can be repeated safely. Each action is written to the audit log.

Quick start:
  sudo nodeprov                          # provision a controller
  sudo nodeprov --role worker            # provision a compute worker
  sudo nodeprov --answers node.yaml --non-interactive
  nodeprov audit list                    # show recorded actions`,
		Version:       Version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", string(domain.RoleController), "Node role: controller or worker")
	cmd.Flags().StringVar(&opts.answersFile, "answers", "", "YAML file preseeding answers to the prompts")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Fail instead of prompting for missing answers")
	cmd.Flags().CountVarP(&opts.verbosity, "verbose", "v", "Log operational detail to stderr (repeat for debug)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &domain.UsageError{Msg: err.Error()}
	})

	cmd.AddCommand(auditcmd.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())

	return cmd
}

// usageArgs reports argument validation failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &domain.UsageError{Msg: err.Error()}
		}
		return nil
	}
}

// Execute runs the root command and exits with the code matching the
// outcome. This is called by main.main().
func Execute() {
	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, styles.ErrorText.Render("Error: ")+err.Error())
		}
		var usage *domain.UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, styles.MutedText.Render("Run 'nodeprov --help' for usage."))
		}
	}
	os.Exit(exitCode(err))
}
