// Package profiles implements the profiles command group: list, show and
// switch named profiles.
package profiles

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratum-mods/stratum/cmd/stratum/commands/cmdutil"
	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/types"
)

// NewCommand creates the profiles command with its subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Short:   MsgShort,
		Long:    MsgLong,
		GroupID: "core",
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newUseCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: MsgListShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			names, err := rt.Manager.Store().ListProfiles()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				pterm.Info.Println(MsgNoProfiles)
				return nil
			}
			active := rt.Settings.ActiveProfile()
			for _, name := range names {
				if name == active {
					pterm.Printfln("* %s", name)
				} else {
					pterm.Printfln("  %s", name)
				}
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: MsgShowShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			name := rt.Settings.ActiveProfile()
			if len(args) == 1 {
				name = args[0]
			}
			profile, err := rt.Manager.Store().LoadProfile(name)
			if err != nil {
				return err
			}
			if len(profile.Mods) == 0 {
				pterm.Info.Printfln(MsgEmptyProfile, name)
				return nil
			}

			rows := pterm.TableData{{"Priority", "Mod", "Enabled", "Options"}}
			for i, ref := range profile.Mods {
				enabled := "yes"
				if !ref.Enabled {
					enabled = "no"
				}
				rows = append(rows, []string{
					pterm.Sprintf("%d", i), ref.Name, enabled, pterm.Sprintf("%v", ref.Options),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: MsgUseShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			name := args[0]

			platform := rt.Settings.CurrentPlatform
			if rt.Settings.Platforms == nil {
				rt.Settings.Platforms = map[types.Platform]config.PlatformConfig{}
			}
			cfg := rt.Settings.Platforms[platform]
			cfg.Profile = name
			rt.Settings.Platforms[platform] = cfg

			if err := config.Save(rt.Paths, rt.Settings); err != nil {
				return err
			}
			pterm.Success.Printfln(MsgSwitched, name)
			return nil
		},
	}
}
