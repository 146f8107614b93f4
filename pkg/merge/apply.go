package merge

import (
	"strconv"

	"github.com/stratum-mods/stratum/pkg/diff"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/resource"
)

// Apply folds one diff's operations onto root and returns the resulting
// tree. Structural anomalies (a path that no longer resolves, an identity
// that vanished) are tolerated: the op is skipped and logged, never an
// abort, matching the conflict-tolerance contract.
func Apply(root *resource.Node, d *diff.ResourceDiff, spec resource.Spec) *resource.Node {
	if d.IsEmpty() {
		return root
	}
	logger := logging.GetLogger("merge.apply")
	for _, op := range d.Ops {
		if len(op.Path) == 0 {
			switch op.Kind {
			case diff.OpRemove:
				root = resource.Null()
			default:
				root = op.Value.Clone()
			}
			continue
		}
		if !applyOp(root, op, spec) {
			logger.Debug().
				Str("op", string(op.Kind)).
				Str("path", renderPath(op.Path)).
				Msg("Skipped unresolvable diff operation")
		}
	}
	return root
}

func applyOp(root *resource.Node, op diff.Op, spec resource.Spec) bool {
	parent := root
	for i, seg := range op.Path[:len(op.Path)-1] {
		next := descend(parent, seg, spec)
		if next == nil {
			// Adds materialize missing intermediate containers so a
			// mod can introduce a brand-new subtree.
			if op.Kind == diff.OpRemove {
				return true
			}
			next = materialize(parent, seg, op.Path[i+1])
			if next == nil {
				return false
			}
		}
		parent = next
	}
	return applyLeaf(parent, op.Path[len(op.Path)-1], op, spec)
}

func descend(n *resource.Node, seg diff.Segment, spec resource.Spec) *resource.Node {
	if n == nil {
		return nil
	}
	switch {
	case seg.IsKey():
		if n.Kind != resource.KindMap {
			return nil
		}
		return n.MapV.Get(seg.Key)
	case seg.IsIdent():
		if n.Kind != resource.KindList {
			return nil
		}
		_, item := findRecord(n, seg, spec)
		return item
	case seg.IsIndex():
		if n.Kind != resource.KindList || seg.Index < 0 || seg.Index >= len(n.ListV) {
			return nil
		}
		return n.ListV[seg.Index]
	}
	return nil
}

// materialize creates the container a missing intermediate segment
// implies, attaching it to parent. The following segment decides whether
// the new container is a map or a list. Returns nil when the parent
// cannot hold the segment.
func materialize(parent *resource.Node, seg, next diff.Segment) *resource.Node {
	if !seg.IsKey() || parent.Kind != resource.KindMap {
		return nil
	}
	child := resource.EmptyMap()
	if !next.IsKey() {
		child = resource.List()
	}
	parent.MapV.Set(seg.Key, child)
	return child
}

func applyLeaf(parent *resource.Node, seg diff.Segment, op diff.Op, spec resource.Spec) bool {
	switch {
	case seg.IsKey():
		if parent.Kind != resource.KindMap {
			return false
		}
		if op.Kind == diff.OpRemove {
			parent.MapV.Delete(seg.Key)
			return true
		}
		parent.MapV.Set(seg.Key, op.Value.Clone())
		return true

	case seg.IsIdent():
		if parent.Kind != resource.KindList {
			return false
		}
		idx, item := findRecord(parent, seg, spec)
		switch op.Kind {
		case diff.OpRemove:
			if item == nil {
				return true
			}
			parent.ListV = append(parent.ListV[:idx], parent.ListV[idx+1:]...)
			return true
		default:
			if item == nil {
				parent.ListV = append(parent.ListV, op.Value.Clone())
				return true
			}
			// Identity-paired records merge per field across diffs, so
			// two mods editing disjoint fields of one record both
			// survive. Same-field collisions keep the later (higher
			// priority) value.
			parent.ListV[idx] = deepMergeRecord(item, op.Value, spec)
			return true
		}

	case seg.IsIndex():
		if parent.Kind != resource.KindList {
			return false
		}
		switch op.Kind {
		case diff.OpRemove:
			if seg.Index < 0 || seg.Index >= len(parent.ListV) {
				return true
			}
			parent.ListV = append(parent.ListV[:seg.Index], parent.ListV[seg.Index+1:]...)
			return true
		case diff.OpAdd:
			if seg.Index < 0 || seg.Index >= len(parent.ListV) {
				parent.ListV = append(parent.ListV, op.Value.Clone())
				return true
			}
			parent.ListV = append(parent.ListV[:seg.Index],
				append([]*resource.Node{op.Value.Clone()}, parent.ListV[seg.Index:]...)...)
			return true
		default:
			if seg.Index < 0 || seg.Index >= len(parent.ListV) {
				parent.ListV = append(parent.ListV, op.Value.Clone())
				return true
			}
			parent.ListV[seg.Index] = op.Value.Clone()
			return true
		}
	}
	return false
}

// deepMergeRecord folds src onto dst field by field. Maps merge key-wise
// recursively; everything else takes src's value outright.
func deepMergeRecord(dst, src *resource.Node, spec resource.Spec) *resource.Node {
	if dst == nil || src == nil || dst.Kind != resource.KindMap || src.Kind != resource.KindMap {
		return src.Clone()
	}
	out := dst.Clone()
	for _, k := range src.MapV.Keys() {
		if out.MapV.Has(k) {
			out.MapV.Set(k, deepMergeRecord(out.MapV.Get(k), src.MapV.Get(k), spec))
		} else {
			out.MapV.Set(k, src.MapV.Get(k).Clone())
		}
	}
	return out
}

// findRecord locates the occurrence-th list item whose identity field
// matches the segment, trying the spec's identity keys in order.
func findRecord(list *resource.Node, seg diff.Segment, spec resource.Spec) (int, *resource.Node) {
	for _, key := range spec.IdentityKeys {
		seen := 0
		for i, item := range list.ListV {
			if item == nil || item.Kind != resource.KindMap {
				continue
			}
			if recordIdent(item, key) == seg.Ident {
				if seen == seg.Occurrence {
					return i, item
				}
				seen++
			}
		}
	}
	return -1, nil
}

func recordIdent(item *resource.Node, key string) string {
	v := item.MapV.Get(key)
	if v == nil {
		return ""
	}
	switch v.Kind {
	case resource.KindInt:
		return strconv.FormatInt(v.IntV, 10)
	case resource.KindString:
		return v.StrV
	case resource.KindFloat:
		return strconv.FormatFloat(v.FloatV, 'g', -1, 64)
	}
	return ""
}

func renderPath(path []diff.Segment) string {
	out := ""
	for i, seg := range path {
		if i > 0 {
			out += "/"
		}
		out += seg.String()
	}
	return out
}
