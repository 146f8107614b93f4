package resource_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
)

func sampleDoc() *resource.Node {
	actor := resource.NewMap()
	actor.Set("name", resource.String("Weapon_Sword_001"))
	actor.Set("HashValue", resource.Int(12345))
	actor.Set("scale", resource.Float(1.5))
	actor.Set("enabled", resource.Bool(true))
	actor.Set("blob", resource.Bytes([]byte{0x01, 0x02, 0xFF}))
	actor.Set("nothing", resource.Null())

	root := resource.NewMap()
	root.Set("Actors", resource.List(resource.MapNode(actor)))
	root.Set("Version", resource.Int(2))
	return resource.MapNode(root)
}

func TestBinaryRoundTrip(t *testing.T) {
	doc := sampleDoc()
	data := resource.MarshalBinary(doc)
	require.True(t, resource.IsSDOC(data))

	decoded, err := resource.UnmarshalBinary(data)
	require.NoError(t, err)
	assert.True(t, resource.Equal(doc, decoded))

	// Re-encoding a decoded document is byte-stable.
	assert.Equal(t, data, resource.MarshalBinary(decoded))
}

func TestBinaryPreservesMapOrder(t *testing.T) {
	m := resource.NewMap()
	m.Set("zeta", resource.Int(1))
	m.Set("alpha", resource.Int(2))
	m.Set("mid", resource.Int(3))

	decoded, err := resource.UnmarshalBinary(resource.MarshalBinary(resource.MapNode(m)))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, decoded.MapV.Keys())
}

func TestUnmarshalNewerSchemaVersion(t *testing.T) {
	data := resource.MarshalBinary(sampleDoc())
	// Bump the declared schema version past what this build supports.
	binary.LittleEndian.PutUint16(data[4:], 3)

	_, err := resource.UnmarshalBinary(data)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSchemaVersion))
}

func TestUnmarshalTruncated(t *testing.T) {
	data := resource.MarshalBinary(sampleDoc())
	_, err := resource.UnmarshalBinary(data[:len(data)/2])
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrContainerTruncate))
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := resource.UnmarshalBinary([]byte("definitely not a document"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrContainerUnknown))
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := sampleDoc()
	text, err := resource.MarshalYAML(doc)
	require.NoError(t, err)

	decoded, err := resource.UnmarshalYAML(text)
	require.NoError(t, err)
	assert.True(t, resource.Equal(doc, decoded), "YAML round trip changed the document:\n%s", text)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want resource.ResourceKind
	}{
		{"Pack/Bootup.pak", resource.ResArchive},
		{"Ecosystem/AreaData.sdoc", resource.ResStructured},
		{"Pack/Bootup.pak//Ecosystem/AreaData.sdoc", resource.ResStructured},
		{"Model/Weapon.bfres", resource.ResOpaque},
		{"Ecosystem/AreaData.sdoc.z", resource.ResStructured},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resource.KindOf(tt.path), tt.path)
	}
}

func TestSpecFor(t *testing.T) {
	deep := resource.SpecFor("Actor/ActorInfo.sdoc")
	assert.True(t, deep.DeepMergeLists)
	assert.NotEmpty(t, deep.IdentityKeys)

	positional := resource.SpecFor("Physics/Cloth.sdoc")
	assert.False(t, positional.DeepMergeLists)

	localized := resource.SpecFor("Pack/Bootup_USen.pak//Text/Msg.sdoc")
	assert.True(t, localized.Localized)
}

func TestCompressionSuffix(t *testing.T) {
	assert.True(t, resource.IsCompressed("Map/MainField.sdoc.z"))
	assert.False(t, resource.IsCompressed("Map/MainField.sdoc"))
	assert.Equal(t, "Map/MainField.sdoc", resource.StripCompression("Map/MainField.sdoc.z"))
	assert.Equal(t, "Map/MainField.sdoc", resource.Canonical("Map\\MainField.sdoc.z"))
}

func TestLeafPath(t *testing.T) {
	assert.Equal(t, "Text/Msg.sdoc", resource.LeafPath("Pack/Bootup.pak//Text/Msg.sdoc"))
	assert.Equal(t, "Plain.sdoc", resource.LeafPath("Plain.sdoc"))
}
