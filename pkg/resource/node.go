// Package resource defines the structured node model shared by the
// differ and the merge composer, together with its binary (SDOC) and
// YAML codecs and the per-format merge specifications.
package resource

import (
	"bytes"
	"fmt"
)

// Kind tags the variant a Node holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Node is one node of a structured document. Exactly one of the value
// fields is meaningful, selected by Kind.
type Node struct {
	Kind   Kind
	BoolV  bool
	IntV   int64
	FloatV float64
	StrV   string
	BytesV []byte
	ListV  []*Node
	MapV   *Map
}

// Map is an order-preserving string-keyed map of child nodes. Iteration
// and serialization follow insertion order, which keeps codec round-trips
// deterministic.
type Map struct {
	keys   []string
	values map[string]*Node
}

// NewMap creates an empty ordered map node value.
func NewMap() *Map {
	return &Map{values: make(map[string]*Node)}
}

// Get returns the child for key, or nil.
func (m *Map) Get(key string) *Node {
	if m == nil {
		return nil
	}
	return m.values[key]
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Set inserts or replaces the child for key, preserving first-insertion
// order.
func (m *Map) Set(key string, value *Node) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Convenience constructors.

func Null() *Node            { return &Node{Kind: KindNull} }
func Bool(v bool) *Node      { return &Node{Kind: KindBool, BoolV: v} }
func Int(v int64) *Node      { return &Node{Kind: KindInt, IntV: v} }
func Float(v float64) *Node  { return &Node{Kind: KindFloat, FloatV: v} }
func String(v string) *Node  { return &Node{Kind: KindString, StrV: v} }
func Bytes(v []byte) *Node   { return &Node{Kind: KindBytes, BytesV: v} }
func List(v ...*Node) *Node  { return &Node{Kind: KindList, ListV: v} }
func MapNode(m *Map) *Node   { return &Node{Kind: KindMap, MapV: m} }
func EmptyMap() *Node        { return &Node{Kind: KindMap, MapV: NewMap()} }

// Equal reports deep structural equality of two nodes.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.BoolV == b.BoolV
	case KindInt:
		return a.IntV == b.IntV
	case KindFloat:
		return a.FloatV == b.FloatV
	case KindString:
		return a.StrV == b.StrV
	case KindBytes:
		return bytes.Equal(a.BytesV, b.BytesV)
	case KindList:
		if len(a.ListV) != len(b.ListV) {
			return false
		}
		for i := range a.ListV {
			if !Equal(a.ListV[i], b.ListV[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.MapV.Len() != b.MapV.Len() {
			return false
		}
		for _, k := range a.MapV.Keys() {
			if !b.MapV.Has(k) || !Equal(a.MapV.Get(k), b.MapV.Get(k)) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:   n.Kind,
		BoolV:  n.BoolV,
		IntV:   n.IntV,
		FloatV: n.FloatV,
		StrV:   n.StrV,
	}
	if n.BytesV != nil {
		out.BytesV = append([]byte(nil), n.BytesV...)
	}
	if n.Kind == KindList {
		out.ListV = make([]*Node, len(n.ListV))
		for i, item := range n.ListV {
			out.ListV[i] = item.Clone()
		}
	}
	if n.Kind == KindMap {
		out.MapV = NewMap()
		for _, k := range n.MapV.Keys() {
			out.MapV.Set(k, n.MapV.Get(k).Clone())
		}
	}
	return out
}
