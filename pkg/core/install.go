package core

import (
	"context"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/modpack"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Install unpacks mod packages into storage and adds them to the active
// profile at the highest priorities, in argument order. A corrupt or
// mismatched package fails alone; the remaining packages still install.
// The caller remerges afterwards.
func (m *Manager) Install(ctx context.Context, packagePaths []string, progress types.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if progress == nil {
		progress = types.NopProgress
	}

	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}

	var batch errors.Batch
	for _, pkgPath := range packagePaths {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCancelled, "install cancelled")
		}
		if err := m.installOne(profile, pkgPath); err != nil {
			batch.Add(err)
		}
		progress(pkgPath)
	}

	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	return batch.Err()
}

func (m *Manager) installOne(profile *registry.Profile, pkgPath string) error {
	log := logging.GetLogger("core")

	pkg, err := modpack.Open(m.fs, pkgPath)
	if err != nil {
		return err
	}
	if pkg.Meta.Platform != "" && pkg.Meta.Platform != m.settings.CurrentPlatform {
		return errors.Newf(errors.ErrModPlatform,
			"mod %q targets platform %s, current platform is %s",
			pkg.Meta.Name, pkg.Meta.Platform, m.settings.CurrentPlatform).
			WithPath(pkgPath)
	}

	mod := &registry.Mod{
		ID:              pkg.ID(),
		Meta:            pkg.Meta,
		Manifest:        pkg.Manifest,
		OptionManifests: pkg.OptionManifests,
	}
	if err := pkg.Unpack(m.fs, m.paths.ModDir(mod.ID)); err != nil {
		return err
	}
	if err := m.store.SaveMod(mod); err != nil {
		return err
	}

	options := defaultOptions(pkg.Meta)
	if err := profile.Add(mod, true, options); err != nil {
		return err
	}
	m.markStale(mod, options)

	log.Info().Str("mod", pkg.Meta.Name).Str("version", pkg.Meta.Version).
		Str("id", mod.ID).Int("priority", len(profile.Mods)-1).Msg("installed mod")
	return nil
}

// defaultOptions collects the option groups' declared defaults for a
// fresh install.
func defaultOptions(meta registry.Meta) []string {
	var out []string
	for _, g := range meta.Options {
		out = append(out, g.Defaults...)
	}
	return out
}

// Uninstall removes a mod from the active profile and deletes its storage
// when no other profile references it.
func (m *Manager) Uninstall(modID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}
	mod, err := m.store.LoadMod(modID)
	if err != nil {
		return err
	}
	ref, _ := profile.Ref(modID)
	var options []string
	if ref != nil {
		options = ref.Options
	}

	if err := profile.Remove(modID); err != nil {
		return err
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	m.markStale(mod, options)

	if referenced, err := m.modReferenced(modID); err == nil && !referenced {
		if err := m.store.DeleteMod(modID); err != nil {
			return err
		}
	}
	coreLogger := logging.GetLogger("core")
	coreLogger.Info().Str("mod", mod.Meta.Name).Str("id", modID).Msg("uninstalled mod")
	return nil
}

// modReferenced reports whether any persisted profile still lists a mod.
func (m *Manager) modReferenced(modID string) (bool, error) {
	names, err := m.store.ListProfiles()
	if err != nil {
		return true, err
	}
	for _, name := range names {
		p, err := m.store.LoadProfile(name)
		if err != nil {
			return true, err
		}
		if _, ok := p.Priority(modID); ok {
			return true, nil
		}
	}
	return false, nil
}
