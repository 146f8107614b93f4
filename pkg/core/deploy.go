package core

import (
	"context"
	"path/filepath"

	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/deploy"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/pending"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Pending returns the change set a deploy would apply right now, without
// touching anything.
func (m *Manager) Pending() (pending.ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, err := m.ActiveProfile()
	if err != nil {
		return pending.ChangeSet{}, err
	}
	current, err := m.loadCurrentManifest(profile.Name)
	if err != nil {
		return pending.ChangeSet{}, err
	}
	record, err := pending.LoadRecord(m.fs, m.paths.DeployedManifestPath(profile.Name))
	if err != nil {
		return pending.ChangeSet{}, err
	}
	deployed := record.Manifest
	if cfg := m.deployConfig(); cfg != nil && !record.SameConfig(recordFor(*cfg, nil)) {
		// A config change redeploys everything.
		deployed = pending.Manifest{}
	}
	return pending.Diff(deployed, current), nil
}

// Deploy materializes the active profile's merged output into the
// configured target. When the deployment configuration changed since the
// last deploy, the previous output is reconciled away first and the full
// manifest is written fresh.
func (m *Manager) Deploy(ctx context.Context, progress types.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := logging.GetLogger("core")

	cfg := m.deployConfig()
	if cfg == nil {
		return errors.New(errors.ErrDeployNoConfig, "no deployment configured for the current platform")
	}

	profile, err := m.ActiveProfile()
	if err != nil {
		return err
	}
	current, err := m.loadCurrentManifest(profile.Name)
	if err != nil {
		return err
	}
	if err := deploy.SanityCheck(current, len(profile.Enabled())); err != nil {
		return err
	}

	recordPath := m.paths.DeployedManifestPath(profile.Name)
	record, err := pending.LoadRecord(m.fs, recordPath)
	if err != nil {
		return err
	}

	mat, err := deploy.New(m.fs, *cfg)
	if err != nil {
		return err
	}

	newRecord := recordFor(*cfg, current)
	if len(record.Manifest) > 0 && !record.SameConfig(newRecord) {
		log.Info().Str("old_output", record.Output).Str("new_output", cfg.Output).
			Msg("deployment configuration changed, reconciling previous output")
		if err := mat.Reconcile(record); err != nil {
			return err
		}
		record.Manifest = pending.Manifest{}
	}

	cs := pending.Diff(record.Manifest, current)
	mergedDir := m.paths.MergedDir(profile.Name)
	if err := mat.Apply(ctx, mergedDir, cs, progress); err != nil {
		return err
	}
	if err := mat.WriteLoaderManifest(current); err != nil {
		return err
	}
	if err := m.deploySizeTable(mat, profile.Name); err != nil {
		return err
	}

	if err := m.fs.MkdirAll(filepath.Dir(recordPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create manifest dir").WithPath(recordPath)
	}
	return pending.SaveRecord(m.fs, recordPath, newRecord)
}

// AutoDeploy runs Deploy when the current platform's configuration asks
// for deployment after every merge.
func (m *Manager) AutoDeploy(ctx context.Context, progress types.Progress) error {
	cfg := m.deployConfig()
	if cfg == nil || !cfg.Auto {
		return nil
	}
	return m.Deploy(ctx, progress)
}

// deploySizeTable mirrors the maintained size table into the output root
// so the runtime can pick it up next to the deployed files.
func (m *Manager) deploySizeTable(mat *deploy.Materializer, profile string) error {
	src := filepath.Join(m.paths.MergedDir(profile), sizeTableName)
	data, err := m.fs.ReadFile(src)
	if err != nil {
		// No table yet means nothing ever grew past its baseline hint.
		return nil
	}
	dst := filepath.Join(mat.Root(), sizeTableName)
	if err := m.fs.WriteFile(dst, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrDeployWrite, "failed to deploy size table").WithPath(dst)
	}
	return nil
}

func (m *Manager) deployConfig() *config.DeployConfig {
	cfg := m.settings.CurrentPlatformConfig()
	if cfg == nil || cfg.Deploy == nil {
		return nil
	}
	return cfg.Deploy
}

func recordFor(cfg config.DeployConfig, manifest pending.Manifest) pending.Record {
	if manifest == nil {
		manifest = pending.Manifest{}
	}
	return pending.Record{
		Output:   cfg.Output,
		Method:   string(cfg.Method),
		Layout:   string(cfg.Layout),
		Manifest: manifest,
	}
}
