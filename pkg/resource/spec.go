package resource

import (
	"path"
	"strings"
)

// ResourceKind partitions resources by how they merge.
type ResourceKind uint8

const (
	// ResOpaque is a non-mergeable binary blob: the highest-priority
	// enabled mod's whole file wins outright.
	ResOpaque ResourceKind = iota
	// ResStructured is a node-tree document merged per structural diff.
	ResStructured
	// ResArchive is a nested container whose leaves merge individually.
	ResArchive
)

func (k ResourceKind) String() string {
	switch k {
	case ResStructured:
		return "structured"
	case ResArchive:
		return "archive"
	default:
		return "opaque"
	}
}

// Spec declares how one format's nodes merge. Deep-mergeable formats pair
// list items by a stable identity field so field-disjoint edits from two
// mods both survive; positional formats replace whole subtrees instead.
type Spec struct {
	DeepMergeLists bool
	IdentityKeys   []string
	Localized      bool
}

// defaultIdentityKeys are tried in order when pairing record-list items.
var defaultIdentityKeys = []string{"id", "Id", "name", "Name", "HashValue"}

// positionalPrefixes declares formats whose lists are order-significant
// and must never be identity-paired.
var positionalPrefixes = []string{
	"Physics/",
	"Animation/",
}

// KindOf classifies a resource path. Compression suffixes are ignored.
func KindOf(p string) ResourceKind {
	switch strings.ToLower(path.Ext(StripCompression(p))) {
	case ".pak":
		return ResArchive
	case ".sdoc":
		return ResStructured
	default:
		return ResOpaque
	}
}

// SpecFor returns the merge specification for a resource path.
func SpecFor(p string) Spec {
	p = StripCompression(p)
	spec := Spec{
		DeepMergeLists: true,
		IdentityKeys:   defaultIdentityKeys,
		Localized:      IsLocalized(p),
	}
	leaf := LeafPath(p)
	for _, prefix := range positionalPrefixes {
		if strings.HasPrefix(leaf, prefix) || strings.Contains(leaf, "/"+prefix) {
			spec.DeepMergeLists = false
			spec.IdentityKeys = nil
			break
		}
	}
	return spec
}

// IsLocalized reports whether the path is a localized text resource whose
// top-level map keys are language codes.
func IsLocalized(p string) bool {
	leaf := LeafPath(StripCompression(p))
	return strings.HasPrefix(leaf, "Text/") || strings.Contains(leaf, "/Text/")
}

// IsCompressed reports whether the path names a stored-compressed
// resource.
func IsCompressed(p string) bool {
	return strings.HasSuffix(p, ".z")
}

// StripCompression removes the stored-compression suffix, if present.
func StripCompression(p string) string {
	return strings.TrimSuffix(p, ".z")
}

// LeafPath returns the innermost component of a nested virtual path,
// e.g. "Pack/Bootup.pak//Ecosystem/AreaData.sdoc" → "Ecosystem/AreaData.sdoc".
func LeafPath(p string) string {
	if i := strings.LastIndex(p, "//"); i >= 0 {
		return p[i+2:]
	}
	return p
}

// Canonical normalizes a resource path for use as a manifest key: forward
// slashes, no stored-compression suffix.
func Canonical(p string) string {
	return StripCompression(strings.ReplaceAll(p, "\\", "/"))
}
