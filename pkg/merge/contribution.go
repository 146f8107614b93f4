// Package merge composes ordered per-mod contributions onto baseline
// resources. Folding is strictly ascending by mod priority; the default
// conflict policy is last-applied-wins at the targeted node, with
// identity-paired record lists merged per field and override payloads
// dominating everything below them.
package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/stratum-mods/stratum/pkg/diff"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Contribution is one mod's input for a single resource path. Exactly one
// of Diff, WholeFile or Override is set.
type Contribution struct {
	ModID    string
	Priority int
	Version  string

	// Diff is a structural diff for mergeable resources. PayloadHash is
	// the hash of the raw payload it was decoded from, so edited diffs
	// invalidate cached results even when the mod version is unchanged.
	Diff        *diff.ResourceDiff
	PayloadHash uint64

	// WholeFile replaces the resource outright; used for non-mergeable
	// payloads and for whole-resource payloads of mergeable formats.
	WholeFile []byte

	// Override carries raw bytes that bypass structural validation
	// entirely. Once the winning contributor, it suppresses every
	// lower-priority contribution for the path.
	Override []byte

	// DefaultLanguage is the language this mod's localized contributions
	// fall back to when they carry nothing for the configured language.
	DefaultLanguage types.Language
}

// IsOverride reports whether the contribution is override-flagged.
func (c Contribution) IsOverride() bool { return c.Override != nil }

// ContributorKey computes the staleness key for a path's ordered
// contribution tuple: any change to a contributing mod's identity,
// priority or content version changes the key.
func ContributorKey(path string, contribs []Contribution) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	var pb [8]byte
	for _, c := range contribs {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(c.ModID)
		binary.LittleEndian.PutUint64(pb[:], uint64(c.Priority))
		_, _ = h.Write(pb[:])
		_, _ = h.WriteString(c.Version)
		_, _ = h.WriteString(payloadTag(c))
	}
	return h.Sum64()
}

func payloadTag(c Contribution) string {
	switch {
	case c.Override != nil:
		return fmt.Sprintf("o%016x", xxhash.Sum64(c.Override))
	case c.WholeFile != nil:
		return fmt.Sprintf("w%016x", xxhash.Sum64(c.WholeFile))
	case c.Diff != nil:
		return fmt.Sprintf("d%016x", c.PayloadHash)
	}
	return "-"
}

// MergedResource is the cached composition result for one path.
type MergedResource struct {
	Path string
	Data []byte
	// Hash is the content hash used by manifests and pending-change
	// detection.
	Hash string
	// Key captures which mod diffs contributed, for staleness checks.
	Key uint64
}

// ContentHash renders the manifest content hash of a payload.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
