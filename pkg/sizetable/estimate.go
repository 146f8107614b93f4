package sizetable

import (
	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/resource"
)

// heuristicNum/heuristicDen give the conservative fallback multiplier
// applied to the raw (decompressed) size when no format-specific
// estimator applies. Overshooting wastes a little memory; undershooting
// crashes the consumer, so round up.
const (
	heuristicNum = 3
	heuristicDen = 2
)

// Estimate returns the buffer-size hint for a merged resource. It never
// fails: estimator errors and unknown formats degrade to the heuristic so
// that sizing can never block an install.
func Estimate(path string, data []byte) uint32 {
	log := logging.GetLogger("sizetable")

	raw, wasCompressed, err := codec.DecompressIf(data)
	if err != nil {
		log.Warn().Err(err).Str("path", path).
			Msg("decompression failed during size estimate, using heuristic on raw bytes")
		return heuristic(len(data))
	}

	switch resource.KindOf(path) {
	case resource.ResStructured:
		if est, ok := structuredEstimate(raw); ok {
			return est
		}
		log.Debug().Str("path", path).Msg("structured size estimate failed, using heuristic")
	case resource.ResArchive:
		if est, ok := archiveEstimate(raw); ok {
			return est
		}
		log.Debug().Str("path", path).Msg("archive size estimate failed, using heuristic")
	}

	if wasCompressed {
		return heuristic(len(raw))
	}
	return heuristic(len(data))
}

// structuredEstimate sizes a structured document as its serialized form
// plus per-node parse overhead, which is what the consumer allocates when
// it loads the document into its runtime representation.
func structuredEstimate(raw []byte) (uint32, bool) {
	node, err := resource.UnmarshalBinary(raw)
	if err != nil {
		return 0, false
	}
	return uint32(len(raw)) + uint32(countNodes(node))*nodeOverhead, true
}

const nodeOverhead = 24

func countNodes(n *resource.Node) int {
	if n == nil {
		return 0
	}
	total := 1
	switch n.Kind {
	case resource.KindList:
		for _, c := range n.ListV {
			total += countNodes(c)
		}
	case resource.KindMap:
		for _, k := range n.MapV.Keys() {
			total += countNodes(n.MapV.Get(k))
		}
	}
	return total
}

// archiveEstimate sizes an archive as the sum of its decompressed entry
// payloads, since the consumer inflates nested entries into memory.
func archiveEstimate(raw []byte) (uint32, bool) {
	decomp, err := codec.Decompose(raw, "")
	if err != nil {
		return 0, false
	}
	var total int
	for _, leaf := range decomp.Leaves {
		total += len(leaf.Data)
	}
	return uint32(len(raw)) + uint32(total/4), true
}

// heuristic rounds the multiplied size up to a 32-byte boundary.
func heuristic(size int) uint32 {
	est := (size*heuristicNum + heuristicDen - 1) / heuristicDen
	return uint32((est + 31) &^ 31)
}
