// Package stratum assembles the CLI from the subcommand packages.
package stratum

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	deploycmd "github.com/stratum-mods/stratum/cmd/stratum/commands/deploy"
	installcmd "github.com/stratum-mods/stratum/cmd/stratum/commands/install"
	modscmd "github.com/stratum-mods/stratum/cmd/stratum/commands/mods"
	packcmd "github.com/stratum-mods/stratum/cmd/stratum/commands/pack"
	profilescmd "github.com/stratum-mods/stratum/cmd/stratum/commands/profiles"
	"github.com/stratum-mods/stratum/pkg/logging"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "stratum",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})

	rootCmd.AddCommand(installcmd.NewCommand())
	rootCmd.AddCommand(packcmd.NewCommand())
	rootCmd.AddCommand(deploycmd.NewCommand())
	rootCmd.AddCommand(modscmd.NewCommand())
	rootCmd.AddCommand(profilescmd.NewCommand())

	return rootCmd
}
