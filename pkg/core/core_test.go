package core_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/config"
	"github.com/stratum-mods/stratum/pkg/core"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/filesystem"
	"github.com/stratum-mods/stratum/pkg/modpack"
	"github.com/stratum-mods/stratum/pkg/paths"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/sizetable"
	"github.com/stratum-mods/stratum/pkg/types"
)

const (
	baselineDir = "/baseline/content"
	gameDir     = "/game"
	actorRes    = "Actor/ActorInfo.sdoc"
)

func baseDoc() *resource.Node {
	m := resource.NewMap()
	m.Set("hp", resource.Int(100))
	m.Set("name", resource.String("Lynel"))
	return resource.MapNode(m)
}

func docWithHP(hp int64) *resource.Node {
	n := baseDoc()
	n.MapV.Set("hp", resource.Int(hp))
	return n
}

func testEnv(t *testing.T) (*core.Manager, types.FS, *config.Settings) {
	t.Helper()
	t.Setenv(paths.EnvStratumDataDir, "/stratum/data")
	t.Setenv(paths.EnvStratumConfigDir, "/stratum/config")
	t.Setenv(paths.EnvStratumCacheDir, "/stratum/cache")
	p, err := paths.New()
	require.NoError(t, err)

	fsys := filesystem.NewMem()
	target := filepath.Join(baselineDir, filepath.FromSlash(actorRes))
	require.NoError(t, fsys.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, fsys.WriteFile(target, resource.MarshalBinary(baseDoc()), 0o644))

	settings := &config.Settings{
		CurrentPlatform: types.PlatformPS,
		Language:        types.DefaultLanguage,
		Platforms: map[types.Platform]config.PlatformConfig{
			types.PlatformPS: {
				Baseline: config.BaselineDirs{Content: baselineDir},
				Deploy: &config.DeployConfig{
					Output:              gameDir,
					Method:              config.MethodCopy,
					Layout:              config.LayoutWithoutName,
					WriteLoaderManifest: true,
				},
			},
		},
	}
	return core.New(fsys, p, settings), fsys, settings
}

// makePackage builds a .smod that changes the actor's hp field.
func makePackage(t *testing.T, fsys types.FS, name string, hp int64) string {
	t.Helper()
	srcDir := "/pack-src/" + name
	target := filepath.Join(srcDir, "content", filepath.FromSlash(actorRes))
	require.NoError(t, fsys.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, fsys.WriteFile(target, resource.MarshalBinary(docWithHP(hp)), 0o644))

	out := "/packages/" + name + ".smod"
	_, err := modpack.Pack(fsys, modpack.PackOptions{
		Meta:      registry.Meta{Name: name, Version: "1.0.0", Author: "tester"},
		SourceDir: srcDir,
		Baselines: func(v types.Variant, resPath string) ([]byte, bool, error) {
			if v == types.VariantContent && resPath == actorRes {
				return resource.MarshalBinary(baseDoc()), true, nil
			}
			return nil, false, nil
		},
	}, out)
	require.NoError(t, err)
	return out
}

func mergedHP(t *testing.T, fsys types.FS, p paths.Paths) int64 {
	t.Helper()
	data, err := fsys.ReadFile(filepath.Join(p.MergedDir("Default"), "content", filepath.FromSlash(actorRes)))
	require.NoError(t, err)
	n, err := resource.UnmarshalBinary(data)
	require.NoError(t, err)
	return n.MapV.Get("hp").IntV
}

func newPaths(t *testing.T) paths.Paths {
	t.Helper()
	p, err := paths.New()
	require.NoError(t, err)
	return p
}

func TestInstallRemergeDeployLifecycle(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()
	p := newPaths(t)

	pkg := makePackage(t, fsys, "HP Boost", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkg}, nil))

	manifest, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	require.Contains(t, manifest, "content/"+actorRes)
	assert.Equal(t, int64(300), mergedHP(t, fsys, p))

	cs, err := mgr.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"content/" + actorRes}, cs.Added)

	require.NoError(t, mgr.Deploy(ctx, nil))

	deployed, err := fsys.ReadFile(filepath.Join(gameDir, "content", filepath.FromSlash(actorRes)))
	require.NoError(t, err)
	n, err := resource.UnmarshalBinary(deployed)
	require.NoError(t, err)
	assert.Equal(t, int64(300), n.MapV.Get("hp").IntV)

	loader, err := fsys.ReadFile(filepath.Join(gameDir, "stratum.manifest.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content/"+actorRes+"\n", string(loader))

	tblData, err := fsys.ReadFile(filepath.Join(gameDir, "sizes.stbl"))
	require.NoError(t, err)
	tbl, err := sizetable.UnmarshalBinary(tblData)
	require.NoError(t, err)
	size, ok := tbl.Get(actorRes)
	require.True(t, ok)
	assert.Greater(t, size, uint32(0))

	// Nothing changed, so a second deploy has nothing pending.
	cs, err = mgr.Pending()
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestPriorityOrderDecidesConflicts(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()
	p := newPaths(t)

	pkgA := makePackage(t, fsys, "Mod A", 200)
	pkgB := makePackage(t, fsys, "Mod B", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkgA, pkgB}, nil))

	// Mod B installed later, so it holds the higher priority.
	_, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(300), mergedHP(t, fsys, p))

	// Moving Mod A to the top flips the winner.
	require.NoError(t, mgr.Move(registry.ModID("Mod A", "1.0.0", "tester"), 1))
	_, err = mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(200), mergedHP(t, fsys, p))
}

func TestDisableExcludesContributions(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()
	p := newPaths(t)

	pkgA := makePackage(t, fsys, "Mod A", 200)
	pkgB := makePackage(t, fsys, "Mod B", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkgA, pkgB}, nil))

	require.NoError(t, mgr.SetEnabled(registry.ModID("Mod B", "1.0.0", "tester"), false))
	_, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(200), mergedHP(t, fsys, p))

	require.NoError(t, mgr.SetEnabled(registry.ModID("Mod B", "1.0.0", "tester"), true))
	_, err = mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(300), mergedHP(t, fsys, p))
}

func TestUninstallRetiresMergedOutput(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()
	p := newPaths(t)

	pkg := makePackage(t, fsys, "HP Boost", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkg}, nil))
	_, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Deploy(ctx, nil))

	modID := registry.ModID("HP Boost", "1.0.0", "tester")
	require.NoError(t, mgr.Uninstall(modID))

	// Storage is gone once no profile references the mod.
	_, err = mgr.Store().LoadMod(modID)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModNotFound))

	manifest, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	assert.Empty(t, manifest)

	_, err = fsys.Stat(filepath.Join(p.MergedDir("Default"), "content", filepath.FromSlash(actorRes)))
	assert.Error(t, err)

	// The retired path deploys as a removal.
	cs, err := mgr.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"content/" + actorRes}, cs.Removed)

	require.NoError(t, mgr.Deploy(ctx, nil))
	_, err = fsys.Stat(filepath.Join(gameDir, "content", filepath.FromSlash(actorRes)))
	assert.Error(t, err)
}

func TestDeployConfigChangeReconciles(t *testing.T) {
	mgr, fsys, settings := testEnv(t)
	ctx := context.Background()

	pkg := makePackage(t, fsys, "HP Boost", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkg}, nil))
	_, err := mgr.Remerge(ctx, false, nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Deploy(ctx, nil))

	oldTarget := filepath.Join(gameDir, "content", filepath.FromSlash(actorRes))
	_, err = fsys.Stat(oldTarget)
	require.NoError(t, err)

	// Point the deployment somewhere else.
	cfg := settings.Platforms[types.PlatformPS]
	cfg.Deploy = &config.DeployConfig{
		Output: "/game2",
		Method: config.MethodCopy,
		Layout: config.LayoutWithoutName,
	}
	settings.Platforms[types.PlatformPS] = cfg

	// The config change makes every path pending again.
	cs, err := mgr.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"content/" + actorRes}, cs.Added)

	require.NoError(t, mgr.Deploy(ctx, nil))

	_, err = fsys.Stat(oldTarget)
	assert.Error(t, err, "previous output should be reconciled away")
	_, err = fsys.Stat(filepath.Join("/game2", "content", filepath.FromSlash(actorRes)))
	assert.NoError(t, err)
}

func TestInstallRejectsPlatformMismatch(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()

	srcDir := "/pack-src/wu-only"
	target := filepath.Join(srcDir, "content", "Model", "Lynel.bfres")
	require.NoError(t, fsys.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, fsys.WriteFile(target, []byte("model"), 0o644))
	out := "/packages/wu-only.smod"
	_, err := modpack.Pack(fsys, modpack.PackOptions{
		Meta:      registry.Meta{Name: "WU Only", Version: "1.0.0", Platform: types.PlatformWU},
		SourceDir: srcDir,
	}, out)
	require.NoError(t, err)

	err = mgr.Install(ctx, []string{out}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModPlatform))

	profile, err := mgr.ActiveProfile()
	require.NoError(t, err)
	assert.Empty(t, profile.Mods)
}

func TestDeployWithoutConfig(t *testing.T) {
	mgr, _, settings := testEnv(t)
	cfg := settings.Platforms[types.PlatformPS]
	cfg.Deploy = nil
	settings.Platforms[types.PlatformPS] = cfg

	err := mgr.Deploy(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDeployNoConfig))
}

func TestDeployRefusesEmptyMergeWithEnabledMods(t *testing.T) {
	mgr, fsys, _ := testEnv(t)
	ctx := context.Background()

	pkg := makePackage(t, fsys, "HP Boost", 300)
	require.NoError(t, mgr.Install(ctx, []string{pkg}, nil))

	// Deploying before any merge would wipe the target for no reason.
	err := mgr.Deploy(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDeploySanity))
}
