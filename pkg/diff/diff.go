// Package diff computes node-level structural diffs between a baseline
// resource and a modified version. Node identity is chosen to minimize
// spurious whole-subtree diffs: a declared stable identity field pairs
// list items when one exists, with ordinal pairing as the fallback for
// positional lists and for duplicate or malformed identity values.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stratum-mods/stratum/pkg/resource"
)

// OpKind is the kind of a node operation.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpRemove  OpKind = "remove"
	OpReplace OpKind = "replace"
)

// Segment addresses one step of a node path. Exactly one of Key, Ident or
// Index is meaningful: Key inside maps, Ident inside identity-paired
// record lists (Occurrence disambiguates duplicate identities), Index
// inside positional lists.
type Segment struct {
	Key        string
	Ident      string
	Occurrence int
	Index      int
	kind       segKind
}

type segKind uint8

const (
	segKey segKind = iota
	segIdent
	segIndex
)

// KeySeg addresses a map child.
func KeySeg(key string) Segment { return Segment{Key: key, kind: segKey} }

// IdentSeg addresses the n-th list record whose identity field equals
// ident (n is zero-based, nonzero only for duplicate identities).
func IdentSeg(ident string, occurrence int) Segment {
	return Segment{Ident: ident, Occurrence: occurrence, kind: segIdent}
}

// IndexSeg addresses a positional list item.
func IndexSeg(i int) Segment { return Segment{Index: i, kind: segIndex} }

// IsKey reports whether the segment addresses a map child.
func (s Segment) IsKey() bool { return s.kind == segKey }

// IsIdent reports whether the segment addresses an identity-paired record.
func (s Segment) IsIdent() bool { return s.kind == segIdent }

// IsIndex reports whether the segment addresses a positional item.
func (s Segment) IsIndex() bool { return s.kind == segIndex }

// String renders the segment in the diff payload encoding.
func (s Segment) String() string {
	switch s.kind {
	case segIdent:
		if s.Occurrence > 0 {
			return fmt.Sprintf("@%s#%d", s.Ident, s.Occurrence)
		}
		return "@" + s.Ident
	case segIndex:
		return "#" + strconv.Itoa(s.Index)
	default:
		if strings.HasPrefix(s.Key, "@") || strings.HasPrefix(s.Key, "#") || strings.HasPrefix(s.Key, "=") {
			return "=" + s.Key
		}
		return s.Key
	}
}

// ParseSegment decodes the diff payload encoding of one segment.
func ParseSegment(raw string) (Segment, error) {
	switch {
	case strings.HasPrefix(raw, "="):
		return KeySeg(raw[1:]), nil
	case strings.HasPrefix(raw, "@"):
		body := raw[1:]
		occurrence := 0
		if i := strings.LastIndex(body, "#"); i >= 0 {
			n, err := strconv.Atoi(body[i+1:])
			if err == nil {
				occurrence = n
				body = body[:i]
			}
		}
		return IdentSeg(body, occurrence), nil
	case strings.HasPrefix(raw, "#"):
		n, err := strconv.Atoi(raw[1:])
		if err != nil {
			return Segment{}, fmt.Errorf("invalid index segment %q", raw)
		}
		return IndexSeg(n), nil
	default:
		return KeySeg(raw), nil
	}
}

// Op is one node operation of a structural diff.
type Op struct {
	Kind  OpKind
	Path  []Segment
	Value *resource.Node // nil for remove
}

// ResourceDiff is an ordered list of node operations against one resource.
type ResourceDiff struct {
	Ops []Op
}

// IsEmpty reports whether the diff carries no operations.
func (d *ResourceDiff) IsEmpty() bool {
	return d == nil || len(d.Ops) == 0
}

// Diff computes the structural diff turning baseline into modified under
// the given format spec.
func Diff(baseline, modified *resource.Node, spec resource.Spec) *ResourceDiff {
	d := &ResourceDiff{}
	diffNode(baseline, modified, nil, spec, d)
	return d
}

func diffNode(base, mod *resource.Node, path []Segment, spec resource.Spec, d *ResourceDiff) {
	if resource.Equal(base, mod) {
		return
	}
	if base == nil {
		d.Ops = append(d.Ops, Op{Kind: OpAdd, Path: clonePath(path), Value: mod.Clone()})
		return
	}
	if mod == nil {
		d.Ops = append(d.Ops, Op{Kind: OpRemove, Path: clonePath(path)})
		return
	}
	if base.Kind != mod.Kind {
		d.Ops = append(d.Ops, Op{Kind: OpReplace, Path: clonePath(path), Value: mod.Clone()})
		return
	}
	switch base.Kind {
	case resource.KindMap:
		diffMap(base, mod, path, spec, d)
	case resource.KindList:
		if key := identityKey(base, mod, spec); key != "" {
			diffRecordList(base, mod, key, path, spec, d)
		} else {
			diffPositional(base, mod, path, spec, d)
		}
	default:
		d.Ops = append(d.Ops, Op{Kind: OpReplace, Path: clonePath(path), Value: mod.Clone()})
	}
}

func diffMap(base, mod *resource.Node, path []Segment, spec resource.Spec, d *ResourceDiff) {
	for _, k := range base.MapV.Keys() {
		child := append(path, KeySeg(k))
		if !mod.MapV.Has(k) {
			d.Ops = append(d.Ops, Op{Kind: OpRemove, Path: clonePath(child)})
			continue
		}
		diffNode(base.MapV.Get(k), mod.MapV.Get(k), child, spec, d)
	}
	for _, k := range mod.MapV.Keys() {
		if !base.MapV.Has(k) {
			d.Ops = append(d.Ops, Op{
				Kind:  OpAdd,
				Path:  clonePath(append(path, KeySeg(k))),
				Value: mod.MapV.Get(k).Clone(),
			})
		}
	}
}

// identityKey selects the identity field used to pair both lists' items,
// or "" when the lists must pair positionally. Every item on both sides
// must be a map carrying the field with a scalar value; malformed items
// disqualify the key rather than raising an error.
func identityKey(base, mod *resource.Node, spec resource.Spec) string {
	if !spec.DeepMergeLists {
		return ""
	}
	for _, key := range spec.IdentityKeys {
		if listCarriesKey(base, key) && listCarriesKey(mod, key) {
			return key
		}
	}
	return ""
}

func listCarriesKey(list *resource.Node, key string) bool {
	if len(list.ListV) == 0 {
		return false
	}
	for _, item := range list.ListV {
		if item == nil || item.Kind != resource.KindMap {
			return false
		}
		if identValue(item, key) == "" {
			return false
		}
	}
	return true
}

// identValue renders an item's identity field as a string, or "" when the
// field is absent or not scalar.
func identValue(item *resource.Node, key string) string {
	v := item.MapV.Get(key)
	if v == nil {
		return ""
	}
	switch v.Kind {
	case resource.KindInt:
		return strconv.FormatInt(v.IntV, 10)
	case resource.KindString:
		if v.StrV == "" {
			return ""
		}
		return v.StrV
	case resource.KindFloat:
		return strconv.FormatFloat(v.FloatV, 'g', -1, 64)
	default:
		return ""
	}
}

func diffRecordList(base, mod *resource.Node, key string, path []Segment, spec resource.Spec, d *ResourceDiff) {
	// Occurrence-indexed buckets tolerate duplicate identity values:
	// the k-th duplicate on each side pairs ordinally.
	baseByIdent := map[string][]*resource.Node{}
	for _, item := range base.ListV {
		id := identValue(item, key)
		baseByIdent[id] = append(baseByIdent[id], item)
	}
	modSeen := map[string]int{}
	for _, item := range mod.ListV {
		id := identValue(item, key)
		occ := modSeen[id]
		modSeen[id]++
		child := append(path, IdentSeg(id, occ))
		bucket := baseByIdent[id]
		if occ < len(bucket) {
			diffNode(bucket[occ], item, child, spec, d)
		} else {
			d.Ops = append(d.Ops, Op{Kind: OpAdd, Path: clonePath(child), Value: item.Clone()})
		}
	}
	// Base records whose identity (or duplicate occurrence) no longer
	// appears in the modified list retire.
	emitted := map[string]bool{}
	for _, item := range base.ListV {
		id := identValue(item, key)
		if emitted[id] {
			continue
		}
		emitted[id] = true
		for occ := modSeen[id]; occ < len(baseByIdent[id]); occ++ {
			d.Ops = append(d.Ops, Op{Kind: OpRemove, Path: clonePath(append(path, IdentSeg(id, occ)))})
		}
	}
}

func diffPositional(base, mod *resource.Node, path []Segment, spec resource.Spec, d *ResourceDiff) {
	shared := len(base.ListV)
	if len(mod.ListV) < shared {
		shared = len(mod.ListV)
	}
	for i := 0; i < shared; i++ {
		diffNode(base.ListV[i], mod.ListV[i], append(path, IndexSeg(i)), spec, d)
	}
	for i := shared; i < len(mod.ListV); i++ {
		d.Ops = append(d.Ops, Op{
			Kind:  OpAdd,
			Path:  clonePath(append(path, IndexSeg(i))),
			Value: mod.ListV[i].Clone(),
		})
	}
	// Removes are emitted highest index first so application never
	// shifts a pending target.
	for i := len(base.ListV) - 1; i >= shared; i-- {
		d.Ops = append(d.Ops, Op{Kind: OpRemove, Path: clonePath(append(path, IndexSeg(i)))})
	}
}

func clonePath(path []Segment) []Segment {
	out := make([]Segment, len(path))
	copy(out, path)
	return out
}
