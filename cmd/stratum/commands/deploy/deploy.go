// Package deploy implements the deploy command: recompute stale merges
// and materialize the pending changes into the configured output.
package deploy

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratum-mods/stratum/cmd/stratum/commands/cmdutil"
)

// NewCommand creates the deploy command.
func NewCommand() *cobra.Command {
	var (
		refresh bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := rt.Manager.Remerge(ctx, refresh, nil); err != nil {
				return err
			}

			cs, err := rt.Manager.Pending()
			if err != nil {
				return err
			}
			if cs.IsEmpty() {
				pterm.Info.Println(MsgNothingPending)
				return nil
			}
			if dryRun {
				pterm.Info.Printfln(MsgDryRun, len(cs.Added), len(cs.Modified), len(cs.Removed))
				return nil
			}

			progress, stop := cmdutil.ProgressBar(MsgDeploying, cs.Len())
			err = rt.Manager.Deploy(ctx, progress)
			stop()
			if err != nil {
				return err
			}
			pterm.Success.Printfln(MsgDeployed, len(cs.Added), len(cs.Modified), len(cs.Removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached merge results and recompute every path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deployed without writing anything")
	return cmd
}
