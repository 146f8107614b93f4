package codec

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
)

// NestedSeparator joins an archive path to the path of a leaf inside it.
const NestedSeparator = "//"

// Leaf is one addressable payload of a decomposed container.
type Leaf struct {
	// VirtualPath is the full nested address of the leaf, rooted at the
	// container that was decomposed.
	VirtualPath string
	// Data is the decompressed payload.
	Data []byte
	// Compressed records whether the payload was stored compressed.
	Compressed bool
}

// EntryMeta records one archive entry's identity and storage details so
// that recomposition can reproduce the original bytes.
type EntryMeta struct {
	Name       string
	Compressed bool
	Hash       uint64
	Child      *ArchiveMeta
}

// ArchiveMeta is the nesting metadata of one archive level.
type ArchiveMeta struct {
	Entries []EntryMeta
	// original holds the archive bytes seen at decompose time. When no
	// leaf changed, recompose returns them verbatim, which makes the
	// round-trip byte-identical regardless of the source writer's
	// padding conventions.
	original []byte
}

// Decomposition is the flat leaf arena plus nesting metadata for one
// container.
type Decomposition struct {
	Leaves []Leaf
	Meta   *ArchiveMeta
}

// Leaf returns the leaf at the given virtual path, or nil.
func (d *Decomposition) Leaf(virtualPath string) *Leaf {
	for i := range d.Leaves {
		if d.Leaves[i].VirtualPath == virtualPath {
			return &d.Leaves[i]
		}
	}
	return nil
}

// Decompose recursively unpacks an archive into its leaf set. rootPath is
// the container's own path, used to build virtual paths and to attribute
// failures. Corrupt or unknown nested containers fail with an error
// attributed to the specific nested path, never a blanket failure.
func Decompose(raw []byte, rootPath string) (*Decomposition, error) {
	data, _, err := DecompressIf(raw)
	if err != nil {
		return nil, attribute(err, rootPath)
	}
	if !IsPak(data) {
		return nil, attribute(
			errors.New(errors.ErrContainerUnknown, "not an archive container"), rootPath)
	}
	d := &Decomposition{}
	meta, err := decomposeLevel(data, rootPath, d)
	if err != nil {
		return nil, err
	}
	d.Meta = meta
	return d, nil
}

func decomposeLevel(data []byte, levelPath string, d *Decomposition) (*ArchiveMeta, error) {
	entries, err := parsePak(data)
	if err != nil {
		return nil, attribute(err, levelPath)
	}
	meta := &ArchiveMeta{original: data}
	for _, e := range entries {
		entryPath := levelPath + NestedSeparator + e.name
		payload, compressed, err := DecompressIf(e.data)
		if err != nil {
			return nil, attribute(err, entryPath)
		}
		em := EntryMeta{Name: e.name, Compressed: compressed, Hash: xxhash.Sum64(payload)}
		if IsPak(payload) && isArchiveName(e.name) {
			child, err := decomposeLevel(payload, entryPath, d)
			if err != nil {
				return nil, err
			}
			em.Child = child
		} else {
			d.Leaves = append(d.Leaves, Leaf{
				VirtualPath: entryPath,
				Data:        payload,
				Compressed:  compressed,
			})
		}
		meta.Entries = append(meta.Entries, em)
	}
	return meta, nil
}

// Recompose rebuilds archive bytes from a leaf payload lookup and the
// metadata produced by Decompose. Payloads absent from lookup keep their
// original bytes. When nothing changed at one level, that level's
// original bytes are reproduced verbatim.
func Recompose(lookup func(virtualPath string) ([]byte, bool), meta *ArchiveMeta, rootPath string) ([]byte, error) {
	return recomposeLevel(lookup, meta, rootPath)
}

func recomposeLevel(lookup func(string) ([]byte, bool), meta *ArchiveMeta, levelPath string) ([]byte, error) {
	entries := make([]pakEntry, 0, len(meta.Entries))
	changed := false
	for _, em := range meta.Entries {
		entryPath := levelPath + NestedSeparator + em.Name
		var payload []byte
		switch {
		case em.Child != nil:
			childData, err := recomposeLevel(lookup, em.Child, entryPath)
			if err != nil {
				return nil, err
			}
			payload = childData
		default:
			data, ok := lookup(entryPath)
			if !ok {
				data = originalLeaf(meta, em)
				if data == nil {
					return nil, attribute(errors.New(errors.ErrContainerCorrupt,
						"missing leaf payload for recomposition"), entryPath)
				}
			}
			payload = data
		}
		if xxhash.Sum64(payload) != em.Hash {
			changed = true
		}
		if em.Compressed {
			payload = Compress(payload)
		}
		entries = append(entries, pakEntry{name: em.Name, data: payload})
	}
	if !changed && meta.original != nil {
		return meta.original, nil
	}
	return buildPak(entries), nil
}

// originalLeaf re-reads an unchanged leaf payload from the level's
// original bytes.
func originalLeaf(meta *ArchiveMeta, em EntryMeta) []byte {
	if meta.original == nil {
		return nil
	}
	entries, err := parsePak(meta.original)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.name == em.Name {
			payload, _, err := DecompressIf(e.data)
			if err != nil {
				return nil
			}
			return payload
		}
	}
	return nil
}

func isArchiveName(name string) bool {
	return resource.KindOf(name) == resource.ResArchive
}

func attribute(err error, path string) error {
	var se *errors.StratumError
	if e, ok := err.(*errors.StratumError); ok {
		se = e
	} else {
		se = errors.Wrap(err, errors.ErrContainerCorrupt, "container failure")
	}
	return se.WithPath(strings.ReplaceAll(path, "\\", "/"))
}
