package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stratum-mods/stratum/pkg/diff"
	stratumerrors "github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/merge"
	"github.com/stratum-mods/stratum/pkg/modpack"
	"github.com/stratum-mods/stratum/pkg/pending"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/sizetable"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Remerge recomputes merged output for the active profile. Cached results
// whose contributor tuple is unchanged are reused; force drops the cache
// first and recomputes every path. Paths no contributor touches anymore
// are retired: merged file, size entry and cache entry removed.
//
// Per-mod and per-path failures are collected; everything unrelated still
// merges, and the returned manifest reflects what succeeded.
func (m *Manager) Remerge(ctx context.Context, force bool, progress types.Progress) (pending.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := logging.GetLogger("core")

	profile, err := m.ActiveProfile()
	if err != nil {
		return nil, err
	}
	if force {
		m.cache.InvalidateAll()
	}

	contribs, loadErr := m.loadContributions(profile)
	exec := merge.NewExecutor(m.baselineFunc(), m.cache, m.settings.Language)
	results, runErr := exec.Run(ctx, contribs, progress)

	current, err := m.loadCurrentManifest(profile.Name)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	table := m.loadSizeTable(profile.Name)
	mergedDir := m.paths.MergedDir(profile.Name)

	var batch stratumerrors.Batch
	for _, res := range results {
		if current[res.Path] == res.Hash {
			next[res.Path] = res.Hash
			continue
		}
		target := filepath.Join(mergedDir, filepath.FromSlash(registry.FlattenPath(res.Path)))
		if err := m.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			batch.Add(stratumerrors.Wrap(err, stratumerrors.ErrDirCreate, "failed to create merged dir").WithPath(target))
			continue
		}
		if err := m.fs.WriteFile(target, res.Data, 0o644); err != nil {
			batch.Add(stratumerrors.Wrap(err, stratumerrors.ErrFileWrite, "failed to write merged resource").WithPath(target))
			continue
		}
		next[res.Path] = res.Hash
		table.Maintain(m.tablePath(res.Path), res.Data)
	}

	// Retire paths with no remaining contributor.
	live := make(map[string]bool, len(contribs))
	for key := range contribs {
		live[rootOf(key)] = true
	}
	for p := range next {
		if live[p] {
			continue
		}
		delete(next, p)
		m.cache.Remove(p)
		table.Retire(m.tablePath(p))
		stale := filepath.Join(mergedDir, filepath.FromSlash(registry.FlattenPath(p)))
		if err := m.fs.Remove(stale); err != nil {
			log.Debug().Err(err).Str("path", p).Msg("retired merged file already gone")
		}
	}

	if err := m.saveCurrentManifest(profile.Name, next); err != nil {
		return next, err
	}
	if err := m.saveSizeTable(profile.Name, table); err != nil {
		return next, err
	}
	m.tracker.Clear(m.tracker.Stale()...)

	log.Info().Int("paths", len(next)).Int("units", len(results)).
		Bool("forced", force).Msg("remerge complete")
	return next, errors.Join(loadErr, runErr, batch.Err())
}

// Refresh is a forced full remerge, ignoring all cached results.
func (m *Manager) Refresh(ctx context.Context, progress types.Progress) (pending.Manifest, error) {
	return m.Remerge(ctx, true, progress)
}

// loadContributions assembles the per-path contribution lists for every
// enabled mod in priority order, including selected option payloads.
func (m *Manager) loadContributions(profile *registry.Profile) (map[string][]merge.Contribution, error) {
	out := make(map[string][]merge.Contribution)
	var batch stratumerrors.Batch

	for priority, ref := range profile.Mods {
		if !ref.Enabled {
			continue
		}
		mod, err := m.store.LoadMod(ref.ID)
		if err != nil {
			batch.Add(err)
			continue
		}
		lang := mod.Meta.Language
		if lang == "" {
			lang = types.DefaultLanguage
		}

		add := func(manifest registry.Manifest, payloadRoot string) {
			for _, v := range types.Variants() {
				for _, resPath := range manifest.Paths(v) {
					c, err := m.loadPayload(payloadRoot, v, resPath)
					if err != nil {
						batch.Add(err)
						continue
					}
					c.ModID = mod.ID
					c.Priority = priority
					c.Version = mod.Meta.Version
					c.DefaultLanguage = lang
					key := pathKey(v, resPath)
					out[key] = append(out[key], *c)
				}
			}
		}

		modDir := m.paths.ModDir(ref.ID)
		add(mod.Manifest, modDir)
		for _, opt := range ref.Options {
			if sub, ok := mod.OptionManifests[opt]; ok {
				add(sub, filepath.Join(modDir, modpack.OptionsDirName, opt))
			}
		}
	}
	return out, batch.Err()
}

// loadPayload reads one payload file from unpacked mod storage, probing
// the three payload forms in precedence order.
func (m *Manager) loadPayload(payloadRoot string, v types.Variant, resPath string) (*merge.Contribution, error) {
	flat := filepath.FromSlash(registry.FlattenPath(resPath))
	base := filepath.Join(payloadRoot, string(v), flat)

	if data, err := m.fs.ReadFile(base + modpack.DiffSuffix); err == nil {
		d, err := diff.DecodeYAML(data)
		if err != nil {
			return nil, wrapKeyed(err, pathKey(v, resPath))
		}
		return &merge.Contribution{Diff: d, PayloadHash: xxhash.Sum64(data)}, nil
	}
	if data, err := m.fs.ReadFile(base + modpack.OverrideSuffix); err == nil {
		return &merge.Contribution{Override: data}, nil
	}
	if data, err := m.fs.ReadFile(base); err == nil {
		return &merge.Contribution{WholeFile: data}, nil
	}
	return nil, stratumerrors.Newf(stratumerrors.ErrModInvalid,
		"manifest lists %s but storage has no payload for it", resPath).
		WithPath(pathKey(v, resPath))
}

// baselineFunc resolves baseline bytes for variant-qualified merge keys
// against the current platform's baseline directories. Stored-compressed
// files carry a .z suffix on disk.
func (m *Manager) baselineFunc() merge.BaselineFunc {
	cfg := m.settings.CurrentPlatformConfig()
	return func(key string) ([]byte, bool, error) {
		if cfg == nil {
			return nil, false, nil
		}
		v, rest := splitKey(key)
		dir := cfg.Baseline.Dir(v)
		if dir == "" {
			return nil, false, nil
		}
		for _, cand := range []string{rest, rest + ".z"} {
			full := filepath.Join(dir, filepath.FromSlash(cand))
			if data, err := m.fs.ReadFile(full); err == nil {
				return data, true, nil
			}
		}
		return nil, false, nil
	}
}

// tablePath renders the flat-namespace path the runtime's size table is
// keyed by: the variant prefix folds away except for DLC.
func (m *Manager) tablePath(key string) string {
	v, rest := splitKey(key)
	return v.CanonicalPrefix() + rest
}

func splitKey(key string) (types.Variant, string) {
	i := strings.Index(key, "/")
	if i < 0 {
		return types.VariantContent, key
	}
	v, err := types.ParseVariant(key[:i])
	if err != nil {
		return types.VariantContent, key
	}
	return v, key[i+1:]
}

func (m *Manager) loadSizeTable(profile string) *sizetable.Table {
	target := filepath.Join(m.paths.MergedDir(profile), sizeTableName)
	data, err := m.fs.ReadFile(target)
	if err != nil {
		return sizetable.New()
	}
	table, err := sizetable.UnmarshalBinary(data)
	if err != nil {
		coreLogger := logging.GetLogger("core")
		coreLogger.Warn().Err(err).Str("profile", profile).
			Msg("corrupt size table, rebuilding")
		return sizetable.New()
	}
	return table
}

func (m *Manager) saveSizeTable(profile string, table *sizetable.Table) error {
	target := filepath.Join(m.paths.MergedDir(profile), sizeTableName)
	if err := m.fs.WriteFile(target, table.MarshalBinary(), 0o644); err != nil {
		return stratumerrors.Wrap(err, stratumerrors.ErrFileWrite, "failed to write size table").WithPath(target)
	}
	return nil
}

func wrapKeyed(err error, key string) error {
	var se *stratumerrors.StratumError
	if errors.As(err, &se) {
		return se.WithPath(key)
	}
	return stratumerrors.Wrap(err, stratumerrors.ErrDiffInvalid, "corrupt diff payload").WithPath(key)
}
