package merge

import (
	"sort"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/diff"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Compose merges the ordered (ascending priority) contributions for one
// non-archive path onto its baseline bytes and returns the merged result.
// baseline is nil when no baseline resource exists for the path.
func Compose(path string, baseline []byte, contribs []Contribution, lang types.Language) (*MergedResource, error) {
	sortContribs(contribs)

	// Override dominance: the single highest-priority override-flagged
	// contribution wins unconditionally; everything below is discarded
	// without error.
	if win := winningOverride(contribs); win != nil {
		return finish(path, win.Override, contribs), nil
	}

	switch resource.KindOf(path) {
	case resource.ResStructured:
		data, err := composeStructured(path, baseline, contribs, lang)
		if err != nil {
			return nil, err
		}
		return finish(path, data, contribs), nil
	case resource.ResArchive:
		return nil, errors.New(errors.ErrInternal,
			"archive paths must be composed leaf-wise via ComposeArchive").WithPath(path)
	default:
		// Opaque binary: the highest-priority whole file wins outright.
		data := baseline
		for i := len(contribs) - 1; i >= 0; i-- {
			if contribs[i].WholeFile != nil {
				data = contribs[i].WholeFile
				break
			}
		}
		if data == nil {
			return nil, errors.New(errors.ErrMergeCompose,
				"no payload and no baseline for opaque resource").WithPath(path)
		}
		return finish(path, data, contribs), nil
	}
}

func composeStructured(path string, baseline []byte, contribs []Contribution, lang types.Language) ([]byte, error) {
	spec := resource.SpecFor(path)

	var cur *resource.Node
	if len(baseline) > 0 {
		decoded, _, err := codec.DecompressIf(baseline)
		if err != nil {
			return nil, attributePath(err, path)
		}
		cur, err = resource.UnmarshalBinary(decoded)
		if err != nil {
			return nil, attributePath(err, path)
		}
	} else {
		cur = resource.EmptyMap()
	}

	for _, c := range contribs {
		switch {
		case c.WholeFile != nil:
			decoded, _, err := codec.DecompressIf(c.WholeFile)
			if err != nil {
				return nil, attributePath(err, path)
			}
			node, err := resource.UnmarshalBinary(decoded)
			if err != nil {
				return nil, attributePath(err, path)
			}
			cur = node
		case c.Diff != nil:
			d := c.Diff
			if spec.Localized {
				d = filterLanguage(d, lang, c.DefaultLanguage)
			}
			cur = Apply(cur, d, spec)
		}
	}
	return resource.MarshalBinary(cur), nil
}

// ComposeArchive merges an archive path. Contributions keyed on the
// archive root apply to the container as a whole: an override wins
// outright, and the highest-priority whole-archive payload replaces the
// baseline, displacing non-override leaf contributions below it. The
// remaining leaves with contributions are composed independently and the
// archive is recomposed; leaves nobody touched round-trip
// byte-identically. leafContribs keys are full virtual paths, the root
// path itself included.
func ComposeArchive(path string, baseline []byte, leafContribs map[string][]Contribution, lang types.Language) (*MergedResource, error) {
	all := flattenContribs(leafContribs)

	root := append([]Contribution(nil), leafContribs[path]...)
	sortContribs(root)
	if win := winningOverride(root); win != nil {
		return finish(path, win.Override, all), nil
	}
	floor, hasFloor := 0, false
	for i := len(root) - 1; i >= 0; i-- {
		if root[i].WholeFile != nil {
			baseline = root[i].WholeFile
			floor, hasFloor = root[i].Priority, true
			break
		}
	}

	if len(baseline) == 0 {
		return nil, errors.New(errors.ErrMergeCompose,
			"cannot compose archive without baseline").WithPath(path)
	}
	decomp, err := codec.Decompose(baseline, path)
	if err != nil {
		return nil, err
	}

	leafPaths := make([]string, 0, len(leafContribs))
	for p := range leafContribs {
		if p != path {
			leafPaths = append(leafPaths, p)
		}
	}
	sort.Strings(leafPaths)

	merged := make(map[string][]byte, len(leafPaths))
	for _, leafPath := range leafPaths {
		contribs := leafContribs[leafPath]
		if hasFloor {
			contribs = notDisplaced(contribs, floor)
			if len(contribs) == 0 {
				continue
			}
		}
		var leafBase []byte
		if leaf := decomp.Leaf(leafPath); leaf != nil {
			leafBase = leaf.Data
		}
		res, err := Compose(leafPath, leafBase, contribs, lang)
		if err != nil {
			return nil, err
		}
		merged[leafPath] = res.Data
	}

	data, err := codec.Recompose(func(vp string) ([]byte, bool) {
		d, ok := merged[vp]
		return d, ok
	}, decomp.Meta, path)
	if err != nil {
		return nil, err
	}
	return finish(path, data, all), nil
}

// notDisplaced drops the contributions a whole-archive payload at the
// given priority supersedes. Overrides are exempt: they dominate their
// leaf regardless of priority.
func notDisplaced(contribs []Contribution, priority int) []Contribution {
	out := make([]Contribution, 0, len(contribs))
	for _, c := range contribs {
		if c.IsOverride() || c.Priority >= priority {
			out = append(out, c)
		}
	}
	return out
}

// flattenContribs flattens a leaf-keyed contribution map into one
// priority-ordered slice. Leaf paths are visited in sorted order so the
// result, and any contributor key derived from it, is identical across
// runs regardless of map iteration.
func flattenContribs(leafContribs map[string][]Contribution) []Contribution {
	paths := make([]string, 0, len(leafContribs))
	for p := range leafContribs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var all []Contribution
	for _, p := range paths {
		all = append(all, leafContribs[p]...)
	}
	sortContribs(all)
	return all
}

// filterLanguage keeps only the operations tagged with the selected
// language. A contribution lacking that language's data falls back to its
// designated default language, retargeted onto the selected one; two
// non-selected languages are never combined into one output.
func filterLanguage(d *diff.ResourceDiff, lang, fallback types.Language) *diff.ResourceDiff {
	if fallback == "" {
		fallback = types.DefaultLanguage
	}
	selected := opsForLanguage(d, lang)
	if len(selected) == 0 && lang != fallback {
		for _, op := range opsForLanguage(d, fallback) {
			retargeted := op
			retargeted.Path = append([]diff.Segment{diff.KeySeg(string(lang))}, op.Path[1:]...)
			selected = append(selected, retargeted)
		}
	}
	// Operations not rooted at a language key are not localized and pass
	// through unchanged.
	for _, op := range d.Ops {
		if !isLanguageRooted(op) {
			selected = append(selected, op)
		}
	}
	return &diff.ResourceDiff{Ops: selected}
}

func opsForLanguage(d *diff.ResourceDiff, lang types.Language) []diff.Op {
	var out []diff.Op
	for _, op := range d.Ops {
		if len(op.Path) > 0 && op.Path[0].IsKey() && op.Path[0].Key == string(lang) {
			out = append(out, op)
		}
	}
	return out
}

func isLanguageRooted(op diff.Op) bool {
	if len(op.Path) == 0 || !op.Path[0].IsKey() {
		return false
	}
	for _, l := range types.KnownLanguages() {
		if op.Path[0].Key == string(l) {
			return true
		}
	}
	return false
}

// winningOverride returns the highest-priority override contribution, or
// nil.
func winningOverride(contribs []Contribution) *Contribution {
	for i := len(contribs) - 1; i >= 0; i-- {
		if contribs[i].IsOverride() {
			return &contribs[i]
		}
	}
	return nil
}

func sortContribs(contribs []Contribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].Priority < contribs[j].Priority
	})
}

func finish(path string, data []byte, contribs []Contribution) *MergedResource {
	return &MergedResource{
		Path: path,
		Data: data,
		Hash: ContentHash(data),
		Key:  ContributorKey(path, contribs),
	}
}

func attributePath(err error, path string) error {
	if se, ok := err.(*errors.StratumError); ok {
		return se.WithPath(path)
	}
	return errors.Wrap(err, errors.ErrMergeCompose, "composition failed").WithPath(path)
}
