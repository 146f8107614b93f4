// Package core wires the registry, merge composer, size table and
// deployment materializer into one manager. All state mutation flows
// through here; nothing else writes the merge cache, the manifests or the
// size table directly.
package core

import (
	"path"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/merge"
	"github.com/stratum-mods/stratum/pkg/paths"
	"github.com/stratum-mods/stratum/pkg/pending"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Names of the bookkeeping files kept next to merged output.
const (
	mergedManifestName = "manifest.yml"
	sizeTableName      = "sizes.stbl"
)

// Manager owns the mutable state of one stratum installation. Safe for
// concurrent use; registry mutations and remerge bookkeeping serialize on
// an internal lock while per-path merge work runs in parallel underneath.
type Manager struct {
	fs       types.FS
	paths    paths.Paths
	settings *config.Settings
	store    *registry.Store
	cache    *merge.Cache
	tracker  *pending.Tracker

	mu sync.Mutex
}

// New creates a manager over the given filesystem, path layout and
// settings.
func New(fsys types.FS, p paths.Paths, settings *config.Settings) *Manager {
	return &Manager{
		fs:       fsys,
		paths:    p,
		settings: settings,
		store:    registry.NewStore(fsys, p),
		cache:    merge.NewCache(),
		tracker:  pending.NewTracker(),
	}
}

// Settings returns the active settings.
func (m *Manager) Settings() *config.Settings { return m.settings }

// Store exposes the registry store for read-only listing.
func (m *Manager) Store() *registry.Store { return m.store }

// ActiveProfile loads the profile selected for the current platform,
// creating an empty one on first use.
func (m *Manager) ActiveProfile() (*registry.Profile, error) {
	return m.store.LoadOrCreateProfile(m.settings.ActiveProfile())
}

// pathKey builds the variant-qualified key a resource path is tracked
// under in manifests, the merge cache and the size table.
func pathKey(v types.Variant, resPath string) string {
	return path.Join(string(v), resPath)
}

// rootOf strips the nested-archive suffix so keys collapse onto the merge
// unit that produces them.
func rootOf(key string) string {
	if i := strings.Index(key, codec.NestedSeparator); i >= 0 {
		return key[:i]
	}
	return key
}

// markStale records that a mod's touched paths need recomputation and
// drops their cached merge results.
func (m *Manager) markStale(mod *registry.Mod, options []string) {
	eff := mod.EffectiveManifest(options)
	var roots []string
	for _, v := range types.Variants() {
		for _, p := range eff.Paths(v) {
			key := pathKey(v, p)
			m.tracker.MarkStale(key)
			roots = append(roots, rootOf(key))
		}
	}
	m.cache.Invalidate(roots...)
}

// SetEnabled toggles a mod in the active profile.
func (m *Manager) SetEnabled(modID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}
	if err := profile.SetEnabled(modID, enabled); err != nil {
		return err
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	m.invalidateMod(profile, modID)
	return nil
}

// Move changes one mod's priority in the active profile. Everything at or
// above the touched range shifts, so all of the mod's paths and any path
// shared with a shifted mod go stale.
func (m *Manager) Move(modID string, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}
	if err := profile.Move(modID, priority); err != nil {
		return err
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	m.invalidateAllMods(profile)
	return nil
}

// Reorder replaces the active profile's full ordering.
func (m *Manager) Reorder(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}
	if err := profile.Reorder(ids); err != nil {
		return err
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	m.invalidateAllMods(profile)
	return nil
}

// SelectOptions replaces a mod's option selection in the active profile.
func (m *Manager) SelectOptions(modID string, options []string) error {
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
	// Both the old and the new selection's paths are affected.
	if ref, ok := profile.Ref(modID); ok {
		m.markStale(mod, ref.Options)
	}
	if err := profile.SelectOptions(mod, options); err != nil {
		return err
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return err
	}
	m.markStale(mod, options)
	return nil
}

func (m *Manager) invalidateMod(profile *registry.Profile, modID string) {
	ref, ok := profile.Ref(modID)
	if !ok {
		return
	}
	mod, err := m.store.LoadMod(modID)
	if err != nil {
		coreLogger := logging.GetLogger("core")
		coreLogger.Warn().Err(err).Str("id", modID).
			Msg("cannot load mod for invalidation, forcing full refresh")
		m.cache.InvalidateAll()
		return
	}
	m.markStale(mod, ref.Options)
}

func (m *Manager) invalidateAllMods(profile *registry.Profile) {
	for _, ref := range profile.Mods {
		m.invalidateMod(profile, ref.ID)
	}
}

// loadCurrentManifest reads the merged-store manifest for a profile. A
// missing file is an empty manifest.
func (m *Manager) loadCurrentManifest(profile string) (pending.Manifest, error) {
	target := filepath.Join(m.paths.MergedDir(profile), mergedManifestName)
	data, err := m.fs.ReadFile(target)
	if err != nil {
		return pending.Manifest{}, nil
	}
	var manifest pending.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "corrupt merged manifest").WithPath(target)
	}
	if manifest == nil {
		manifest = pending.Manifest{}
	}
	return manifest, nil
}

func (m *Manager) saveCurrentManifest(profile string, manifest pending.Manifest) error {
	dir := m.paths.MergedDir(profile)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create merged store").WithPath(dir)
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode merged manifest")
	}
	target := filepath.Join(dir, mergedManifestName)
	if err := m.fs.WriteFile(target, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to write merged manifest").WithPath(target)
	}
	return nil
}
