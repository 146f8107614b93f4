package resource

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/stratum-mods/stratum/pkg/errors"
)

// SDOC is a compact little-endian binary encoding of a node tree:
// magic, a uint16 schema version, then one recursively encoded node.

var sdocMagic = []byte("SDOC")

// SchemaVersion is the version written by this build. Documents declaring
// a greater version cannot be read and surface a hard SCHEMA_VERSION
// error, never a local recovery.
const SchemaVersion uint16 = 2

const (
	tagNull   byte = 0
	tagBool   byte = 1
	tagInt    byte = 2
	tagFloat  byte = 3
	tagString byte = 4
	tagBytes  byte = 5
	tagList   byte = 6
	tagMap    byte = 7
)

// IsSDOC reports whether data begins with the SDOC magic.
func IsSDOC(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], sdocMagic)
}

// MarshalBinary encodes the node tree as an SDOC document.
func MarshalBinary(n *Node) []byte {
	var buf bytes.Buffer
	buf.Write(sdocMagic)
	var ver [2]byte
	binary.LittleEndian.PutUint16(ver[:], SchemaVersion)
	buf.Write(ver[:])
	encodeNode(&buf, n)
	return buf.Bytes()
}

func encodeNode(buf *bytes.Buffer, n *Node) {
	if n == nil {
		buf.WriteByte(tagNull)
		return
	}
	switch n.Kind {
	case KindNull:
		buf.WriteByte(tagNull)
	case KindBool:
		buf.WriteByte(tagBool)
		if n.BoolV {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindInt:
		buf.WriteByte(tagInt)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(n.IntV))
		buf.Write(b[:])
	case KindFloat:
		buf.WriteByte(tagFloat)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(n.FloatV))
		buf.Write(b[:])
	case KindString:
		buf.WriteByte(tagString)
		writeLenPrefixed(buf, []byte(n.StrV))
	case KindBytes:
		buf.WriteByte(tagBytes)
		writeLenPrefixed(buf, n.BytesV)
	case KindList:
		buf.WriteByte(tagList)
		writeCount(buf, len(n.ListV))
		for _, item := range n.ListV {
			encodeNode(buf, item)
		}
	case KindMap:
		buf.WriteByte(tagMap)
		writeCount(buf, n.MapV.Len())
		for _, k := range n.MapV.Keys() {
			key := []byte(k)
			var l [2]byte
			binary.LittleEndian.PutUint16(l[:], uint16(len(key)))
			buf.Write(l[:])
			buf.Write(key)
			encodeNode(buf, n.MapV.Get(k))
		}
	}
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	writeCount(buf, len(data))
	buf.Write(data)
}

func writeCount(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}

// UnmarshalBinary decodes an SDOC document. Corrupt or truncated input
// yields a CONTAINER error; an unsupported schema version yields a
// SCHEMA_VERSION error.
func UnmarshalBinary(data []byte) (*Node, error) {
	if !IsSDOC(data) {
		return nil, errors.New(errors.ErrContainerUnknown, "not a structured document")
	}
	if len(data) < 6 {
		return nil, errors.New(errors.ErrContainerTruncate, "structured document header truncated")
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version > SchemaVersion {
		return nil, errors.Newf(errors.ErrSchemaVersion,
			"document schema version %d is newer than supported version %d; update stratum or reinstall the mod",
			version, SchemaVersion)
	}
	r := &reader{data: data, off: 6}
	n, err := r.node()
	if err != nil {
		return nil, err
	}
	return n, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) byte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, errors.New(errors.ErrContainerTruncate, "structured document truncated")
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, errors.New(errors.ErrContainerTruncate, "structured document truncated")
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) count() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	// Defend against corrupt counts that exceed the remaining payload.
	if int(n) > len(r.data)-r.off {
		return 0, errors.Newf(errors.ErrContainerCorrupt, "structured document declares %d entries beyond payload", n)
	}
	return int(n), nil
}

func (r *reader) node() (*Node, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return Null(), nil
	case tagBool:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		return Bool(b != 0), nil
	case tagInt:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Int(int64(binary.LittleEndian.Uint64(b))), nil
	case tagFloat:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case tagString:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return String(string(b)), nil
	case tagBytes:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return Bytes(append([]byte(nil), b...)), nil
	case tagList:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		items := make([]*Node, 0, n)
		for i := 0; i < n; i++ {
			item, err := r.node()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case tagMap:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		m := NewMap()
		for i := 0; i < n; i++ {
			lb, err := r.take(2)
			if err != nil {
				return nil, err
			}
			kb, err := r.take(int(binary.LittleEndian.Uint16(lb)))
			if err != nil {
				return nil, err
			}
			v, err := r.node()
			if err != nil {
				return nil, err
			}
			m.Set(string(kb), v)
		}
		return MapNode(m), nil
	}
	return nil, errors.Newf(errors.ErrContainerCorrupt, "unknown node tag 0x%02x", tag)
}
