// Package codec unpacks nested archive containers into a flat set of
// addressable leaves and packs them back. Leaves are indexed by virtual
// path ("Pack/Bootup.pak//Ecosystem/AreaData.sdoc"); nesting structure
// lives in explicit metadata rather than pointer-linked trees, which keeps
// per-path processing trivially parallel.
package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/stratum-mods/stratum/pkg/errors"
)

var pakMagic = []byte("PAK0")

// pakVersion is the container version this build reads and writes.
const pakVersion uint16 = 1

const pakAlign = 8

// pakEntry is one TOC record.
type pakEntry struct {
	name string
	data []byte
}

// IsPak reports whether data begins with an archive header.
func IsPak(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], pakMagic)
}

// parsePak reads the TOC and payloads of one archive level.
func parsePak(data []byte) ([]pakEntry, error) {
	if !IsPak(data) {
		return nil, errors.New(errors.ErrContainerUnknown, "not an archive container")
	}
	if len(data) < 12 {
		return nil, errors.New(errors.ErrContainerTruncate, "archive header truncated")
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version > pakVersion {
		return nil, errors.Newf(errors.ErrSchemaVersion,
			"archive version %d is newer than supported version %d", version, pakVersion)
	}
	count := int(binary.LittleEndian.Uint32(data[8:12]))
	off := 12
	entries := make([]pakEntry, 0, count)
	for i := 0; i < count; i++ {
		if off+2 > len(data) {
			return nil, errors.New(errors.ErrContainerTruncate, "archive TOC truncated")
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+nameLen+8 > len(data) {
			return nil, errors.New(errors.ErrContainerTruncate, "archive TOC truncated")
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		dataOff := int(binary.LittleEndian.Uint32(data[off:]))
		dataLen := int(binary.LittleEndian.Uint32(data[off+4:]))
		off += 8
		if dataOff < 0 || dataLen < 0 || dataOff+dataLen > len(data) {
			return nil, errors.Newf(errors.ErrContainerCorrupt,
				"archive entry %q points outside payload", name)
		}
		entries = append(entries, pakEntry{name: name, data: data[dataOff : dataOff+dataLen]})
	}
	return entries, nil
}

// buildPak writes one archive level in canonical layout: TOC in entry
// order, payloads 8-byte aligned, zero padding.
func buildPak(entries []pakEntry) []byte {
	tocSize := 12
	for _, e := range entries {
		tocSize += 2 + len(e.name) + 8
	}

	offsets := make([]int, len(entries))
	off := align(tocSize, pakAlign)
	for i, e := range entries {
		offsets[i] = off
		off = align(off+len(e.data), pakAlign)
	}

	total := tocSize
	if len(entries) > 0 {
		last := len(entries) - 1
		total = offsets[last] + len(entries[last].data)
	}
	out := make([]byte, total)
	copy(out, pakMagic)
	binary.LittleEndian.PutUint16(out[4:], pakVersion)
	binary.LittleEndian.PutUint16(out[6:], 0)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(entries)))

	w := 12
	for i, e := range entries {
		binary.LittleEndian.PutUint16(out[w:], uint16(len(e.name)))
		w += 2
		copy(out[w:], e.name)
		w += len(e.name)
		binary.LittleEndian.PutUint32(out[w:], uint32(offsets[i]))
		binary.LittleEndian.PutUint32(out[w+4:], uint32(len(e.data)))
		w += 8
	}
	for i, e := range entries {
		copy(out[offsets[i]:], e.data)
	}
	return out
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// ArchiveEntry is one named payload for building an archive from scratch.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// BuildArchive writes a single-level archive in canonical layout. Nest by
// passing another archive's bytes as an entry payload.
func BuildArchive(entries []ArchiveEntry) []byte {
	converted := make([]pakEntry, len(entries))
	for i, e := range entries {
		converted[i] = pakEntry{name: e.Name, data: e.Data}
	}
	return buildPak(converted)
}
