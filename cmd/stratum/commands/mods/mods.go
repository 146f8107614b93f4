// Package mods implements the mods command group: list installed mods and
// mutate the active profile's ordering, enabled set and options.
package mods

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratum-mods/stratum/cmd/stratum/commands/cmdutil"
	"github.com/stratum-mods/stratum/pkg/registry"
)

// NewCommand creates the mods command with its subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mods",
		Short:   MsgShort,
		Long:    MsgLong,
		GroupID: "core",
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newOptionsCmd())
	return cmd
}

// resolve turns a user-supplied mod name or id into the storage id.
func resolve(rt *cmdutil.Runtime, nameOrID string) (string, error) {
	mods, err := rt.Manager.Store().ListMods()
	if err != nil {
		return "", err
	}
	for _, m := range mods {
		if m.ID == nameOrID || m.Meta.Name == nameOrID {
			return m.ID, nil
		}
	}
	// Fall through with the raw value; the store reports MOD_NOT_FOUND.
	return nameOrID, nil
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
			mods, err := rt.Manager.Store().ListMods()
			if err != nil {
				return err
			}
			if len(mods) == 0 {
				pterm.Info.Println(MsgNoMods)
				return nil
			}
			profile, err := rt.Manager.ActiveProfile()
			if err != nil {
				return err
			}

			rows := pterm.TableData{{"Mod", "Version", "Author", "Priority", "Enabled"}}
			for _, m := range mods {
				rows = append(rows, modRow(m, profile))
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

func modRow(m *registry.Mod, profile *registry.Profile) []string {
	priority := "-"
	enabled := "-"
	if i, ok := profile.Priority(m.ID); ok {
		priority = strconv.Itoa(i)
		ref, _ := profile.Ref(m.ID)
		if ref.Enabled {
			enabled = "yes"
		} else {
			enabled = "no"
		}
	}
	return []string{m.Meta.Name, m.Meta.Version, m.Meta.Author, priority, enabled}
}

func newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <mod>",
		Short: MsgEnableShort,
		Args:  cobra.ExactArgs(1),
		RunE:  toggleRunE(true, MsgEnabled),
	}
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <mod>",
		Short: MsgDisableShort,
		Args:  cobra.ExactArgs(1),
		RunE:  toggleRunE(false, MsgDisabled),
	}
}

func toggleRunE(enabled bool, doneMsg string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := cmdutil.NewRuntime()
		if err != nil {
			return err
		}
		id, err := resolve(rt, args[0])
		if err != nil {
			return err
		}
		if err := rt.Manager.SetEnabled(id, enabled); err != nil {
			return err
		}
		pterm.Success.Printfln(doneMsg, args[0])
		return nil
	}
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <mod> <priority>",
		Short: MsgMoveShort,
		Long:  MsgMoveLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			id, err := resolve(rt, args[0])
			if err != nil {
				return err
			}
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			if err := rt.Manager.Move(id, priority); err != nil {
				return err
			}
			pterm.Success.Printfln(MsgMoved, args[0], priority)
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <mod>",
		Short: MsgRemoveShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			id, err := resolve(rt, args[0])
			if err != nil {
				return err
			}
			if err := rt.Manager.Uninstall(id); err != nil {
				return err
			}
			pterm.Success.Printfln(MsgRemoved, args[0])
			return nil
		},
	}
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options <mod> [option...]",
		Short: MsgOptionsShort,
		Long:  MsgOptionsLong,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}
			id, err := resolve(rt, args[0])
			if err != nil {
				return err
			}
			if err := rt.Manager.SelectOptions(id, args[1:]); err != nil {
				return err
			}
			pterm.Success.Printfln(MsgOptionsSet, args[0])
			return nil
		},
	}
}
