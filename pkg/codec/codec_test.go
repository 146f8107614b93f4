package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/errors"
)

// fixture builds content/Pack/Bootup.pak containing a plain leaf, a
// compressed leaf, and a nested archive with its own leaf.
func fixture(t *testing.T) []byte {
	t.Helper()
	inner := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Ecosystem/AreaData.sdoc", Data: []byte("inner-area-data")},
	})
	return codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: []byte("actor-info-payload")},
		{Name: "Map/MainField.sdoc", Data: codec.Compress([]byte("compressed-map-data"))},
		{Name: "Pack/TitleBG.pak", Data: inner},
	})
}

const rootPath = "content/Pack/Bootup.pak"

func TestDecomposeFlattensNestedLeaves(t *testing.T) {
	d, err := codec.Decompose(fixture(t), rootPath)
	require.NoError(t, err)

	require.Len(t, d.Leaves, 3)

	actor := d.Leaf(rootPath + "//Actor/ActorInfo.sdoc")
	require.NotNil(t, actor)
	assert.Equal(t, []byte("actor-info-payload"), actor.Data)
	assert.False(t, actor.Compressed)

	mainField := d.Leaf(rootPath + "//Map/MainField.sdoc")
	require.NotNil(t, mainField)
	assert.Equal(t, []byte("compressed-map-data"), mainField.Data)
	assert.True(t, mainField.Compressed)

	nested := d.Leaf(rootPath + "//Pack/TitleBG.pak//Ecosystem/AreaData.sdoc")
	require.NotNil(t, nested)
	assert.Equal(t, []byte("inner-area-data"), nested.Data)
}

func TestRecomposeUntouchedIsByteIdentical(t *testing.T) {
	raw := fixture(t)
	d, err := codec.Decompose(raw, rootPath)
	require.NoError(t, err)

	out, err := codec.Recompose(func(string) ([]byte, bool) { return nil, false }, d.Meta, rootPath)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestRecomposeModifiedLeaf(t *testing.T) {
	raw := fixture(t)
	d, err := codec.Decompose(raw, rootPath)
	require.NoError(t, err)

	replaced := map[string][]byte{
		rootPath + "//Pack/TitleBG.pak//Ecosystem/AreaData.sdoc": []byte("patched-area-data"),
	}
	out, err := codec.Recompose(func(vp string) ([]byte, bool) {
		data, ok := replaced[vp]
		return data, ok
	}, d.Meta, rootPath)
	require.NoError(t, err)
	assert.NotEqual(t, raw, out)

	// Untouched leaves survive; the replaced leaf carries its new bytes.
	d2, err := codec.Decompose(out, rootPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("patched-area-data"),
		d2.Leaf(rootPath+"//Pack/TitleBG.pak//Ecosystem/AreaData.sdoc").Data)
	assert.Equal(t, []byte("actor-info-payload"),
		d2.Leaf(rootPath+"//Actor/ActorInfo.sdoc").Data)
	assert.True(t, d2.Leaf(rootPath+"//Map/MainField.sdoc").Compressed)
}

func TestDecomposeCompressedArchive(t *testing.T) {
	raw := fixture(t)
	d, err := codec.Decompose(codec.Compress(raw), rootPath)
	require.NoError(t, err)
	assert.Len(t, d.Leaves, 3)
}

func TestDecomposeNotAnArchive(t *testing.T) {
	_, err := codec.Decompose([]byte("plain old bytes"), "content/Model/Weapon.bfres")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrContainerUnknown))
	assert.Equal(t, "content/Model/Weapon.bfres", errors.Path(err))
}

func TestDecomposeCorruptNestedAttribution(t *testing.T) {
	// A nested entry that claims to be an archive but is truncated must
	// fail with the nested path, not the root.
	truncated := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Broken/Inner.pak", Data: append([]byte("PAK0"), 0x01)},
	})
	_, err := codec.Decompose(truncated, rootPath)
	require.Error(t, err)
	assert.Equal(t, rootPath+"//Broken/Inner.pak", errors.Path(err))
}

func TestDecomposeNewerArchiveVersion(t *testing.T) {
	raw := fixture(t)
	raw[4] = 9 // bump version field
	_, err := codec.Decompose(raw, rootPath)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSchemaVersion))
}

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte("some payload worth compressing, repeated repeated repeated")
	packed := codec.Compress(payload)
	require.True(t, codec.IsCompressed(packed))

	out, was, err := codec.DecompressIf(packed)
	require.NoError(t, err)
	assert.True(t, was)
	assert.Equal(t, payload, out)

	same, was, err := codec.DecompressIf(payload)
	require.NoError(t, err)
	assert.False(t, was)
	assert.Equal(t, payload, same)
}
