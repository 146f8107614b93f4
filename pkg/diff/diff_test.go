package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/diff"
	"github.com/stratum-mods/stratum/pkg/resource"
)

func record(fields map[string]*resource.Node, order ...string) *resource.Node {
	m := resource.NewMap()
	for _, k := range order {
		m.Set(k, fields[k])
	}
	return resource.MapNode(m)
}

func actor(name string, hp int64) *resource.Node {
	return record(map[string]*resource.Node{
		"name": resource.String(name),
		"hp":   resource.Int(hp),
	}, "name", "hp")
}

func doc(pairs ...interface{}) *resource.Node {
	m := resource.NewMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(*resource.Node))
	}
	return resource.MapNode(m)
}

var deepSpec = resource.SpecFor("Actor/ActorInfo.sdoc")
var positionalSpec = resource.SpecFor("Physics/Cloth.sdoc")

func TestDiffEqualIsEmpty(t *testing.T) {
	base := doc("X", resource.Int(1))
	assert.True(t, diff.Diff(base, base.Clone(), deepSpec).IsEmpty())
}

func TestDiffScalarReplace(t *testing.T) {
	base := doc("X", resource.Int(1), "Y", resource.Int(2))
	mod := doc("X", resource.Int(7), "Y", resource.Int(2))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 1)
	assert.Equal(t, diff.OpReplace, d.Ops[0].Kind)
	assert.Equal(t, "X", d.Ops[0].Path[0].Key)
	assert.Equal(t, int64(7), d.Ops[0].Value.IntV)
}

func TestDiffMapAddRemove(t *testing.T) {
	base := doc("keep", resource.Int(1), "drop", resource.Int(2))
	mod := doc("keep", resource.Int(1), "new", resource.String("v"))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 2)

	kinds := map[diff.OpKind]string{}
	for _, op := range d.Ops {
		kinds[op.Kind] = op.Path[0].Key
	}
	assert.Equal(t, "drop", kinds[diff.OpRemove])
	assert.Equal(t, "new", kinds[diff.OpAdd])
}

func TestDiffRecordListByIdentity(t *testing.T) {
	base := doc("Actors", resource.List(actor("guard", 10), actor("boss", 100)))
	mod := doc("Actors", resource.List(actor("boss", 100), actor("guard", 25)))

	// Reordering identity-paired records is not a change; only the
	// modified field surfaces.
	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 1)
	op := d.Ops[0]
	assert.Equal(t, diff.OpReplace, op.Kind)
	require.Len(t, op.Path, 3)
	assert.True(t, op.Path[1].IsIdent())
	assert.Equal(t, "guard", op.Path[1].Key)
	assert.Equal(t, "hp", op.Path[2].Key)
	assert.Equal(t, int64(25), op.Value.IntV)
}

func TestDiffRecordListAddAndRetire(t *testing.T) {
	base := doc("Actors", resource.List(actor("old", 1)))
	mod := doc("Actors", resource.List(actor("new", 2)))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 2)
	assert.Equal(t, diff.OpAdd, d.Ops[0].Kind)
	assert.Equal(t, "new", d.Ops[0].Path[1].Key)
	assert.Equal(t, diff.OpRemove, d.Ops[1].Kind)
	assert.Equal(t, "old", d.Ops[1].Path[1].Key)
}

func TestDiffDuplicateIdentitiesPairOrdinally(t *testing.T) {
	// Two records share the identity "dup"; the second occurrence changes.
	base := doc("Actors", resource.List(actor("dup", 1), actor("dup", 2)))
	mod := doc("Actors", resource.List(actor("dup", 1), actor("dup", 9)))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 1)
	op := d.Ops[0]
	assert.Equal(t, "dup", op.Path[1].Key)
	assert.Equal(t, 1, op.Path[1].Occurrence)
	assert.Equal(t, int64(9), op.Value.IntV)
}

func TestDiffDuplicateOccurrenceRetires(t *testing.T) {
	base := doc("Actors", resource.List(actor("dup", 1), actor("dup", 2)))
	mod := doc("Actors", resource.List(actor("dup", 1)))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 1)
	assert.Equal(t, diff.OpRemove, d.Ops[0].Kind)
	assert.Equal(t, 1, d.Ops[0].Path[1].Occurrence)
}

func TestDiffMalformedIdentityFallsBackOrdinal(t *testing.T) {
	// One item lacks a scalar identity, so the whole list pairs by
	// position instead of erroring.
	base := doc("Actors", resource.List(actor("a", 1), resource.Int(42)))
	mod := doc("Actors", resource.List(actor("a", 2), resource.Int(42)))

	d := diff.Diff(base, mod, deepSpec)
	require.Len(t, d.Ops, 1)
	assert.True(t, d.Ops[0].Path[1].IsIndex())
	assert.Equal(t, 0, d.Ops[0].Path[1].Index)
}

func TestDiffPositionalList(t *testing.T) {
	base := doc("Params", resource.List(resource.Int(1), resource.Int(2), resource.Int(3)))
	mod := doc("Params", resource.List(resource.Int(1), resource.Int(9)))

	d := diff.Diff(base, mod, positionalSpec)
	require.Len(t, d.Ops, 2)
	assert.Equal(t, diff.OpReplace, d.Ops[0].Kind)
	assert.Equal(t, 1, d.Ops[0].Path[1].Index)
	assert.Equal(t, diff.OpRemove, d.Ops[1].Kind)
	assert.Equal(t, 2, d.Ops[1].Path[1].Index)
}

func TestSegmentStringRoundTrip(t *testing.T) {
	segs := []diff.Segment{
		diff.KeySeg("Actors"),
		diff.KeySeg("@literal"),
		diff.KeySeg("#literal"),
		diff.IdentSeg("guard", 0),
		diff.IdentSeg("dup", 3),
		diff.IndexSeg(12),
	}
	for _, seg := range segs {
		parsed, err := diff.ParseSegment(seg.String())
		require.NoError(t, err, seg.String())
		assert.Equal(t, seg, parsed, seg.String())
	}
}

func TestPayloadYAMLRoundTrip(t *testing.T) {
	base := doc("Actors", resource.List(actor("guard", 10)), "X", resource.Int(1))
	mod := doc("Actors", resource.List(actor("guard", 25), actor("boss", 100)))

	d := diff.Diff(base, mod, deepSpec)
	require.False(t, d.IsEmpty())

	text, err := diff.EncodeYAML(d)
	require.NoError(t, err)
	decoded, err := diff.DecodeYAML(text)
	require.NoError(t, err)

	require.Len(t, decoded.Ops, len(d.Ops))
	for i := range d.Ops {
		assert.Equal(t, d.Ops[i].Kind, decoded.Ops[i].Kind)
		assert.Equal(t, d.Ops[i].Path, decoded.Ops[i].Path)
		if d.Ops[i].Value != nil {
			assert.True(t, resource.Equal(d.Ops[i].Value, decoded.Ops[i].Value))
		}
	}
}

func TestDecodeYAMLRejectsUnknownOp(t *testing.T) {
	_, err := diff.DecodeYAML([]byte("ops:\n  - op: explode\n    path: [X]\n"))
	require.Error(t, err)
}
