package merge_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/merge"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/types"
)

// mapBaselines serves baseline bytes from a map and counts lookups.
type mapBaselines struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls int
}

func (m *mapBaselines) resolve(path string) ([]byte, bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	d, ok := m.data[path]
	return d, ok, nil
}

func (m *mapBaselines) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestExecutorRunMergesBatch(t *testing.T) {
	base := mapDoc(kv{"X", resource.Int(1)})
	mod := mapDoc(kv{"X", resource.Int(3)})
	archive := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: resource.MarshalBinary(base)},
	})

	rootPath := "content/Pack/Bootup.pak"
	leafPath := rootPath + "//Actor/ActorInfo.sdoc"
	baselines := &mapBaselines{data: map[string][]byte{
		actorPath: resource.MarshalBinary(base),
		rootPath:  archive,
	}}

	contribs := map[string][]merge.Contribution{
		actorPath: {diffContrib("mod-a", 0, diffOf(t, actorPath, base, mod))},
		leafPath:  {diffContrib("mod-a", 0, diffOf(t, leafPath, base, mod))},
		modelPath: {{ModID: "mod-b", Priority: 1, Version: "1.0.0", WholeFile: []byte("model")}},
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	progress := func(unit string) {
		mu.Lock()
		seen = append(seen, unit)
		mu.Unlock()
	}

	ex := merge.NewExecutor(baselines.resolve, merge.NewCache(), types.DefaultLanguage)
	results, err := ex.Run(context.Background(), contribs, progress)
	require.NoError(t, err)

	// The archive leaf collapses onto its root, so three units total,
	// sorted by path.
	require.Len(t, results, 3)
	assert.Equal(t, actorPath, results[0].Path)
	assert.Equal(t, modelPath, results[1].Path)
	assert.Equal(t, rootPath, results[2].Path)
	assert.Len(t, seen, 3)

	assert.Equal(t, int64(3), decode(t, results[0].Data).MapV.Get("X").IntV)
	assert.Equal(t, []byte("model"), results[1].Data)

	d, err := codec.Decompose(results[2].Data, rootPath)
	require.NoError(t, err)
	leaf := d.Leaf(leafPath)
	require.NotNil(t, leaf)
	assert.Equal(t, int64(3), decode(t, leaf.Data).MapV.Get("X").IntV)
}

func TestExecutorCacheSkipsRecompose(t *testing.T) {
	base := mapDoc(kv{"X", resource.Int(1)})
	mod := mapDoc(kv{"X", resource.Int(3)})
	baselines := &mapBaselines{data: map[string][]byte{
		actorPath: resource.MarshalBinary(base),
	}}
	contribs := map[string][]merge.Contribution{
		actorPath: {diffContrib("mod-a", 0, diffOf(t, actorPath, base, mod))},
	}

	cache := merge.NewCache()
	ex := merge.NewExecutor(baselines.resolve, cache, types.DefaultLanguage)

	first, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	lookupsAfterFirst := baselines.lookups()

	second, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Same(t, first[0], second[0])
	assert.Equal(t, lookupsAfterFirst, baselines.lookups())

	// Invalidation forces a real recompose.
	cache.Invalidate(actorPath)
	third, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Greater(t, baselines.lookups(), lookupsAfterFirst)
	assert.Equal(t, first[0].Hash, third[0].Hash)
}

func TestExecutorOverrideOnArchiveRootWins(t *testing.T) {
	base := mapDoc(kv{"X", resource.Int(1)})
	mod := mapDoc(kv{"X", resource.Int(4)})
	rootPath := "content/Pack/Bootup.pak"
	leafPath := rootPath + "//Actor/ActorInfo.sdoc"
	archive := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: resource.MarshalBinary(base)},
	})
	baselines := &mapBaselines{data: map[string][]byte{rootPath: archive}}

	contribs := map[string][]merge.Contribution{
		leafPath: {diffContrib("mod-a", 0, diffOf(t, leafPath, base, mod))},
		rootPath: {{ModID: "mod-b", Priority: 1, Version: "1.0.0", Override: []byte("raw-pack-payload")}},
	}

	ex := merge.NewExecutor(baselines.resolve, merge.NewCache(), types.DefaultLanguage)
	results, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, rootPath, results[0].Path)
	assert.Equal(t, []byte("raw-pack-payload"), results[0].Data)
}

func TestExecutorWholeArchivePayload(t *testing.T) {
	doc := mapDoc(kv{"X", resource.Int(2)})
	archive := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: resource.MarshalBinary(doc)},
	})

	// A mod shipping a pack it introduces: no baseline, no leaf diffs.
	rootPath := "content/Pack/Bootup.pak"
	baselines := &mapBaselines{data: map[string][]byte{}}
	contribs := map[string][]merge.Contribution{
		rootPath: {{ModID: "mod-a", Priority: 0, Version: "1.0.0", WholeFile: archive}},
	}

	ex := merge.NewExecutor(baselines.resolve, nil, types.DefaultLanguage)
	results, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, rootPath, results[0].Path)
	assert.Equal(t, archive, results[0].Data)
}

func TestExecutorArchiveCacheStableAcrossRuns(t *testing.T) {
	baseA := mapDoc(kv{"X", resource.Int(1)})
	modA := mapDoc(kv{"X", resource.Int(3)})
	baseB := mapDoc(kv{"Y", resource.Int(1)})
	modB := mapDoc(kv{"Y", resource.Int(6)})

	rootPath := "content/Pack/Bootup.pak"
	leafA := rootPath + "//Actor/ActorInfo.sdoc"
	leafB := rootPath + "//Actor/QuestInfo.sdoc"
	archive := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: resource.MarshalBinary(baseA)},
		{Name: "Actor/QuestInfo.sdoc", Data: resource.MarshalBinary(baseB)},
	})
	baselines := &mapBaselines{data: map[string][]byte{rootPath: archive}}

	// One mod touching two leaves of one archive at the same priority:
	// the contributor key must come out identical on every run.
	contribs := map[string][]merge.Contribution{
		leafA: {{ModID: "mod-a", Priority: 0, Version: "1.0.0",
			Diff: diffOf(t, leafA, baseA, modA), PayloadHash: 11}},
		leafB: {{ModID: "mod-a", Priority: 0, Version: "1.0.0",
			Diff: diffOf(t, leafB, baseB, modB), PayloadHash: 22}},
	}

	ex := merge.NewExecutor(baselines.resolve, merge.NewCache(), types.DefaultLanguage)
	first, err := ex.Run(context.Background(), contribs, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	lookups := baselines.lookups()

	for i := 0; i < 20; i++ {
		again, err := ex.Run(context.Background(), contribs, nil)
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Same(t, first[0], again[0])
	}
	assert.Equal(t, lookups, baselines.lookups())
}

func TestExecutorCollectsFailuresAndKeepsSuccesses(t *testing.T) {
	base := mapDoc(kv{"X", resource.Int(1)})
	mod := mapDoc(kv{"X", resource.Int(3)})
	badPath := "content/Actor/Garbage.sdoc"
	baselines := &mapBaselines{data: map[string][]byte{
		actorPath: resource.MarshalBinary(base),
		badPath:   []byte("not an sdoc"),
	}}
	contribs := map[string][]merge.Contribution{
		actorPath: {diffContrib("mod-a", 0, diffOf(t, actorPath, base, mod))},
		badPath:   {diffContrib("mod-a", 0, diffOf(t, badPath, base, mod))},
	}

	ex := merge.NewExecutor(baselines.resolve, nil, types.DefaultLanguage)
	results, err := ex.Run(context.Background(), contribs, nil)
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, actorPath, results[0].Path)
}
