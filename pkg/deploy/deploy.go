// Package deploy materializes merged output into the configured target
// tree via copy, hard link, or symbolic link, and reconciles stale
// entries when the deployment configuration changes.
package deploy

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/pending"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/types"
)

// LoaderManifestName is the optional file listing every deployed path for
// external loader compatibility.
const LoaderManifestName = "stratum.manifest.txt"

// namedSubdir is the folder inserted under the output root by the
// with-name layout.
const namedSubdir = "stratum"

// Materializer writes pending changes from the merged store into the
// deployment output tree.
type Materializer struct {
	fs  types.FS
	cfg config.DeployConfig
}

// New creates a materializer for one deployment configuration.
func New(fsys types.FS, cfg config.DeployConfig) (*Materializer, error) {
	if cfg.Output == "" {
		return nil, errors.New(errors.ErrDeployNoConfig, "no deployment output configured")
	}
	return &Materializer{fs: fsys, cfg: cfg}, nil
}

// Root returns the directory deployed files land in, after layout.
func (m *Materializer) Root() string {
	if m.cfg.Layout == config.LayoutWithName {
		return filepath.Join(m.cfg.Output, namedSubdir)
	}
	return m.cfg.Output
}

// Apply materializes a change set. srcDir is the merged store the paths
// resolve against. Per-path failures are collected; unrelated paths still
// deploy. Cancellation takes effect between files, never mid-file.
func (m *Materializer) Apply(ctx context.Context, srcDir string, cs pending.ChangeSet, progress types.Progress) error {
	log := logging.GetLogger("deploy")
	if progress == nil {
		progress = types.NopProgress
	}
	root := m.Root()
	var batch errors.Batch

	for _, p := range cs.Removed {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCancelled, "deploy cancelled")
		}
		if err := m.remove(root, p); err != nil {
			batch.Add(err)
		}
		progress(p)
	}

	for _, p := range append(append([]string{}, cs.Added...), cs.Modified...) {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCancelled, "deploy cancelled")
		}
		flat := filepath.FromSlash(registry.FlattenPath(p))
		src := filepath.Join(srcDir, flat)
		dst := filepath.Join(root, flat)
		if err := m.materialize(src, dst); err != nil {
			batch.Add(err)
		}
		progress(p)
	}

	if err := batch.Err(); err != nil {
		return err
	}
	log.Info().Int("added", len(cs.Added)).Int("modified", len(cs.Modified)).
		Int("removed", len(cs.Removed)).Str("method", string(m.cfg.Method)).
		Str("root", root).Msg("deployment applied")
	return nil
}

// Reconcile removes every entry of a previously deployed manifest. Used
// when the output, method, or layout changed and stale entries cannot be
// trusted to match the new configuration.
func (m *Materializer) Reconcile(old pending.Record) error {
	log := logging.GetLogger("deploy")
	root := old.Output
	if old.Layout == string(config.LayoutWithName) {
		root = filepath.Join(old.Output, namedSubdir)
	}
	var batch errors.Batch
	for _, p := range old.Manifest.Paths() {
		if err := m.remove(root, p); err != nil {
			batch.Add(err)
		}
	}
	log.Info().Int("entries", len(old.Manifest)).Str("root", root).
		Msg("reconciled previous deployment")
	return batch.Err()
}

func (m *Materializer) remove(root, resPath string) error {
	dst := filepath.Join(root, filepath.FromSlash(registry.FlattenPath(resPath)))
	if err := m.fs.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrDeployWrite, "failed to remove deployed file").WithPath(dst)
	}
	return nil
}

func (m *Materializer) materialize(src, dst string) error {
	if err := m.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create output dir").WithPath(dst)
	}

	switch m.cfg.Method {
	case config.MethodSymlink:
		// Re-linking over a stale target needs the old link gone first.
		if _, err := m.fs.Lstat(dst); err == nil {
			if err := m.fs.Remove(dst); err != nil {
				return errors.Wrap(err, errors.ErrDeployWrite, "failed to clear stale entry").WithPath(dst)
			}
		}
		if err := m.fs.Symlink(src, dst); err != nil {
			return errors.Wrap(err, errors.ErrDeployLink, "failed to create symlink").WithPath(dst)
		}
		return nil

	case config.MethodHardLink:
		if _, err := m.fs.Lstat(dst); err == nil {
			if err := m.fs.Remove(dst); err != nil {
				return errors.Wrap(err, errors.ErrDeployWrite, "failed to clear stale entry").WithPath(dst)
			}
		}
		if err := m.fs.Link(src, dst); err != nil {
			// Cross-device links fail with EXDEV; any link failure
			// degrades to a plain copy for this path.
			logger := logging.GetLogger("deploy")
			logger.Warn().Err(err).Str("src", src).Str("dst", dst).
				Msg("hard link failed, falling back to copy")
			return m.copy(src, dst)
		}
		return nil

	default:
		return m.copy(src, dst)
	}
}

func (m *Materializer) copy(src, dst string) error {
	data, err := m.fs.ReadFile(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "failed to read merged file").WithPath(src)
	}
	if err := m.fs.WriteFile(dst, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrDeployWrite, "failed to write deployed file").WithPath(dst)
	}
	return nil
}

// WriteLoaderManifest emits the sorted list of deployed paths at the
// output root when the configuration asks for one.
func (m *Materializer) WriteLoaderManifest(manifest pending.Manifest) error {
	if !m.cfg.WriteLoaderManifest {
		return nil
	}
	target := filepath.Join(m.Root(), LoaderManifestName)
	lines := manifest.Paths()
	sort.Strings(lines)
	data := []byte(strings.Join(lines, "\n") + "\n")
	if err := m.fs.MkdirAll(m.Root(), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create output dir").WithPath(m.Root())
	}
	if err := m.fs.WriteFile(target, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrDeployWrite, "failed to write loader manifest").WithPath(target)
	}
	return nil
}

// SanityCheck refuses a deploy whose merged store is empty while mods are
// enabled: deploying nothing over a previous output would wipe it for no
// reason, which points at a broken merge rather than user intent.
func SanityCheck(manifest pending.Manifest, enabledMods int) error {
	if len(manifest) == 0 && enabledMods > 0 {
		return errors.Newf(errors.ErrDeploySanity,
			"merged output is empty but %d mods are enabled; refusing to deploy", enabledMods)
	}
	return nil
}
