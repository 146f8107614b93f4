// Package pack implements the pack command: build a .smod package from a
// loose mod folder, diffing structured files against the baseline.
package pack

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratum-mods/stratum/cmd/stratum/commands/cmdutil"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/modpack"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/types"
)

// NewCommand creates the pack command.
func NewCommand() *cobra.Command {
	var (
		out       string
		name      string
		version   string
		author    string
		category  string
		platform  string
		overrides []string
	)

	cmd := &cobra.Command{
		Use:     "pack <mod-folder>",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cmdutil.NewRuntime()
			if err != nil {
				return err
			}

			meta := registry.Meta{
				Name:     name,
				Version:  version,
				Author:   author,
				Category: category,
			}
			if platform != "" {
				p, err := types.ParsePlatform(platform)
				if err != nil {
					return errors.Wrap(err, errors.ErrInvalidInput, "invalid platform")
				}
				meta.Platform = p
			}
			if out == "" {
				out = name + ".smod"
			}

			manifest, err := modpack.Pack(rt.FS, modpack.PackOptions{
				Meta:      meta,
				SourceDir: args[0],
				Baselines: baselineFunc(rt),
				Overrides: overrides,
			}, out)
			if err != nil {
				return err
			}
			pterm.Success.Printfln(MsgPacked, out, manifest.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output package path (default <name>.smod)")
	cmd.Flags().StringVar(&name, "name", "", "Mod name")
	cmd.Flags().StringVar(&version, "mod-version", "", "Mod version")
	cmd.Flags().StringVar(&author, "author", "", "Mod author")
	cmd.Flags().StringVar(&category, "category", "", "Mod category")
	cmd.Flags().StringVar(&platform, "platform", "", "Target platform (ps, wu); empty means universal")
	cmd.Flags().StringSliceVar(&overrides, "override", nil, "Resource paths packed as raw overrides, bypassing merging")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("mod-version")
	return cmd
}

// baselineFunc resolves baselines from the current platform's configured
// directories so structured files diff instead of shipping whole.
func baselineFunc(rt *cmdutil.Runtime) modpack.BaselineFunc {
	cfg := rt.Settings.CurrentPlatformConfig()
	return func(v types.Variant, resPath string) ([]byte, bool, error) {
		if cfg == nil {
			return nil, false, nil
		}
		dir := cfg.Baseline.Dir(v)
		if dir == "" {
			return nil, false, nil
		}
		for _, cand := range []string{resPath, resPath + ".z"} {
			full := dir + "/" + registry.FlattenPath(cand)
			if data, err := rt.FS.ReadFile(full); err == nil {
				return data, true, nil
			}
		}
		return nil, false, nil
	}
}
