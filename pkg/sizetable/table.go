// Package sizetable maintains the runtime buffer-size hint table that
// accompanies merged output. Entries are keyed by a CRC32 of the
// canonical resource path, matching what the external runtime looks up.
package sizetable

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"sort"
	"sync"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
)

var magic = [4]byte{'S', 'T', 'B', 'L'}

// Table is an explicitly owned size-hint table. It is safe for concurrent
// use; mutation happens only through Set, Maintain and Retire.
type Table struct {
	mu      sync.RWMutex
	entries map[uint32]uint32
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[uint32]uint32)}
}

// HashPath returns the table key for a canonical resource path.
func HashPath(path string) uint32 {
	return crc32.ChecksumIEEE([]byte(resource.Canonical(path)))
}

// Get returns the recorded size hint for path.
func (t *Table) Get(path string) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	size, ok := t.entries[HashPath(path)]
	return size, ok
}

// Set records a size hint unconditionally.
func (t *Table) Set(path string, size uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[HashPath(path)] = size
}

// Maintain re-estimates the hint for a freshly merged resource and
// upserts the entry when the new estimate exceeds the recorded value.
// Existing headroom is never shrunk.
func (t *Table) Maintain(path string, data []byte) {
	est := Estimate(path, data)
	t.mu.Lock()
	defer t.mu.Unlock()
	key := HashPath(path)
	if cur, ok := t.entries[key]; ok && cur >= est {
		return
	}
	t.entries[key] = est
}

// Retire removes the entry for a path that no longer has any
// contributor.
func (t *Table) Retire(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, HashPath(path))
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// MarshalBinary serializes the table sorted by path hash.
func (t *Table) MarshalBinary() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hashes := make([]uint32, 0, len(t.entries))
	for h := range t.entries {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, uint32(len(hashes)))
	for _, h := range hashes {
		writeU32(&buf, h)
		writeU32(&buf, t.entries[h])
	}
	return buf.Bytes()
}

// UnmarshalBinary parses a serialized table.
func UnmarshalBinary(data []byte) (*Table, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], magic[:]) {
		return nil, errors.New(errors.ErrContainerUnknown, "not a size table")
	}
	count := binary.LittleEndian.Uint32(data[4:8])
	need := 8 + int(count)*8
	if len(data) < need {
		return nil, errors.Newf(errors.ErrContainerTruncate,
			"size table truncated: need %d bytes, have %d", need, len(data))
	}
	t := New()
	off := 8
	for i := uint32(0); i < count; i++ {
		h := binary.LittleEndian.Uint32(data[off:])
		s := binary.LittleEndian.Uint32(data[off+4:])
		t.entries[h] = s
		off += 8
	}
	return t, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
