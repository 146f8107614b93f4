// Package install implements the install command: unpack mod packages,
// add them to the active profile, remerge, and deploy when configured to.
package install

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratum-mods/stratum/cmd/stratum/commands/cmdutil"
)

// NewCommand creates the install command.
func NewCommand() *cobra.Command {
	var noMerge bool

	cmd := &cobra.Command{
		Use:     "install <package.smod>...",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			progress, stop := cmdutil.ProgressBar(MsgInstalling, len(args))
			installErr := rt.Manager.Install(ctx, args, progress)
			stop()
			if installErr != nil {
				// Partial installs still remerge below; report at the end.
				pterm.Warning.Println(installErr.Error())
			}

			if noMerge {
				return installErr
			}

			manifest, err := rt.Manager.Remerge(ctx, false, nil)
			if err != nil {
				return err
			}
			pterm.Success.Printfln(MsgMerged, len(manifest))

			if err := rt.Manager.AutoDeploy(ctx, nil); err != nil {
				return err
			}
			return installErr
		},
	}

	cmd.Flags().BoolVar(&noMerge, "no-merge", false, "Install only, skip remerging")
	return cmd
}
