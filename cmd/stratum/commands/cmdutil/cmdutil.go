// Package cmdutil holds the shared wiring every subcommand needs: the
// manager constructed from settings and the path layout, plus progress
// rendering.
package cmdutil

import (
	"sync"

	"github.com/pterm/pterm"

	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/core"
	"github.com/stratum-mods/stratum/pkg/filesystem"
	"github.com/stratum-mods/stratum/pkg/paths"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Runtime bundles what subcommands need to do their work.
type Runtime struct {
	FS       types.FS
	Paths    paths.Paths
	Settings *config.Settings
	Manager  *core.Manager
}

// NewRuntime loads settings and constructs the manager over the real
// filesystem.
func NewRuntime() (*Runtime, error) {
	p, err := paths.New()
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(p)
	if err != nil {
		return nil, err
	}
	fsys := filesystem.NewOS()
	return &Runtime{
		FS:       fsys,
		Paths:    p,
		Settings: settings,
		Manager:  core.New(fsys, p, settings),
	}, nil
}

// ProgressBar renders coarse batch progress. The returned callback is safe
// to call from merge workers.
func ProgressBar(title string, total int) (types.Progress, func()) {
	if total == 0 {
		return types.NopProgress, func() {}
	}
	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(title).Start()
	if err != nil {
		return types.NopProgress, func() {}
	}
	var mu sync.Mutex
	progress := func(unit string) {
		mu.Lock()
		defer mu.Unlock()
		bar.UpdateTitle(unit)
		bar.Increment()
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		_, _ = bar.Stop()
	}
	return progress, stop
}
