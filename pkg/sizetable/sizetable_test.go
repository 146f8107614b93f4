package sizetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/sizetable"
)

func sampleDoc() []byte {
	m := resource.NewMap()
	m.Set("hp", resource.Int(100))
	m.Set("name", resource.String("Lynel"))
	return resource.MarshalBinary(resource.MapNode(m))
}

func TestHashPathIgnoresCompressionSuffix(t *testing.T) {
	assert.Equal(t,
		sizetable.HashPath("Actor/ActorInfo.sdoc"),
		sizetable.HashPath("Actor/ActorInfo.sdoc.z"))
	assert.NotEqual(t,
		sizetable.HashPath("Actor/ActorInfo.sdoc"),
		sizetable.HashPath("Actor/Other.sdoc"))
}

func TestMaintainNeverShrinks(t *testing.T) {
	tbl := sizetable.New()
	tbl.Set("Model/Lynel.bfres", 1<<20)

	tbl.Maintain("Model/Lynel.bfres", []byte("tiny"))
	got, ok := tbl.Get("Model/Lynel.bfres")
	require.True(t, ok)
	assert.Equal(t, uint32(1<<20), got)
}

func TestMaintainGrows(t *testing.T) {
	tbl := sizetable.New()
	tbl.Set("Model/Lynel.bfres", 1)

	payload := make([]byte, 4096)
	tbl.Maintain("Model/Lynel.bfres", payload)
	got, ok := tbl.Get("Model/Lynel.bfres")
	require.True(t, ok)
	assert.Greater(t, got, uint32(4096))
}

func TestMaintainInsertsNewEntry(t *testing.T) {
	tbl := sizetable.New()
	tbl.Maintain("Actor/ActorInfo.sdoc", sampleDoc())

	got, ok := tbl.Get("Actor/ActorInfo.sdoc")
	require.True(t, ok)
	assert.Greater(t, got, uint32(0))
	assert.Equal(t, 1, tbl.Len())
}

func TestRetire(t *testing.T) {
	tbl := sizetable.New()
	tbl.Set("a.sdoc", 64)
	tbl.Retire("a.sdoc")
	_, ok := tbl.Get("a.sdoc")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestEstimateStructuredExceedsSerializedSize(t *testing.T) {
	doc := sampleDoc()
	est := sizetable.Estimate("Actor/ActorInfo.sdoc", doc)
	assert.Greater(t, est, uint32(len(doc)))
}

func TestEstimateCompressedUsesDecompressedSize(t *testing.T) {
	doc := sampleDoc()
	plain := sizetable.Estimate("Actor/ActorInfo.sdoc", doc)
	compressed := sizetable.Estimate("Actor/ActorInfo.sdoc.z", codec.Compress(doc))
	assert.Equal(t, plain, compressed)
}

func TestEstimateGarbageNeverFails(t *testing.T) {
	est := sizetable.Estimate("Actor/ActorInfo.sdoc", []byte("definitely not an sdoc"))
	assert.Greater(t, est, uint32(0))
}

func TestEstimateArchive(t *testing.T) {
	archive := codec.BuildArchive([]codec.ArchiveEntry{
		{Name: "Actor/ActorInfo.sdoc", Data: sampleDoc()},
	})
	est := sizetable.Estimate("Pack/Bootup.pak", archive)
	assert.Greater(t, est, uint32(len(archive)))
}

func TestTableRoundTrip(t *testing.T) {
	tbl := sizetable.New()
	tbl.Set("Actor/ActorInfo.sdoc", 128)
	tbl.Set("Map/MainField.sdoc", 4096)

	data := tbl.MarshalBinary()
	got, err := sizetable.UnmarshalBinary(data)
	require.NoError(t, err)

	size, ok := got.Get("Actor/ActorInfo.sdoc")
	require.True(t, ok)
	assert.Equal(t, uint32(128), size)
	size, ok = got.Get("Map/MainField.sdoc")
	require.True(t, ok)
	assert.Equal(t, uint32(4096), size)
	assert.Equal(t, 2, got.Len())

	// Serialization is hash-sorted, so re-encoding is byte stable.
	assert.Equal(t, data, got.MarshalBinary())
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := sizetable.UnmarshalBinary([]byte("nope"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrContainerUnknown))
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	tbl := sizetable.New()
	tbl.Set("a.sdoc", 1)
	data := tbl.MarshalBinary()

	_, err := sizetable.UnmarshalBinary(data[:len(data)-2])
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrContainerTruncate))
}
