package resource

import (
	"encoding/base64"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/errors"
)

// The YAML codec is used for diff payloads inside mod packages, where
// human-diffable text beats the binary form. Key order is preserved in
// both directions.

// MarshalYAML encodes the node tree as YAML text.
func MarshalYAML(n *Node) ([]byte, error) {
	yn, err := toYAMLNode(n)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(yn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode node as YAML")
	}
	return out, nil
}

// UnmarshalYAML decodes YAML text into a node tree.
func UnmarshalYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrContainerCorrupt, "invalid YAML document")
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(doc.Content[0])
	}
	return fromYAMLNode(&doc)
}

// ToYAMLNode converts a node tree to a yaml.Node tree, for callers that
// embed node values inside larger YAML documents.
func ToYAMLNode(n *Node) (*yaml.Node, error) {
	return toYAMLNode(n)
}

// FromYAMLNode converts a yaml.Node tree back into a node tree.
func FromYAMLNode(yn *yaml.Node) (*Node, error) {
	return fromYAMLNode(yn)
}

func toYAMLNode(n *Node) (*yaml.Node, error) {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	switch n.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.BoolV)}, nil
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.IntV, 10)}, nil
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(n.FloatV, 'g', -1, 64)}, nil
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.StrV}, nil
	case KindBytes:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString(n.BytesV),
		}, nil
	case KindList:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.ListV {
			yn, err := toYAMLNode(item)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, yn)
		}
		return out, nil
	case KindMap:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.MapV.Keys() {
			yn, err := toYAMLNode(n.MapV.Get(k))
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				yn,
			)
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrInternal, "cannot encode node kind %s", n.Kind)
}

func fromYAMLNode(yn *yaml.Node) (*Node, error) {
	switch yn.Kind {
	case yaml.ScalarNode:
		switch yn.Tag {
		case "!!null", "":
			return Null(), nil
		case "!!bool":
			v, err := strconv.ParseBool(yn.Value)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrContainerCorrupt, "invalid bool %q", yn.Value)
			}
			return Bool(v), nil
		case "!!int":
			v, err := strconv.ParseInt(yn.Value, 0, 64)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrContainerCorrupt, "invalid int %q", yn.Value)
			}
			return Int(v), nil
		case "!!float":
			v, err := strconv.ParseFloat(yn.Value, 64)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrContainerCorrupt, "invalid float %q", yn.Value)
			}
			return Float(v), nil
		case "!!binary":
			v, err := base64.StdEncoding.DecodeString(yn.Value)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrContainerCorrupt, "invalid binary scalar")
			}
			return Bytes(v), nil
		default:
			return String(yn.Value), nil
		}
	case yaml.SequenceNode:
		items := make([]*Node, 0, len(yn.Content))
		for _, c := range yn.Content {
			item, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(yn.Content); i += 2 {
			v, err := fromYAMLNode(yn.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(yn.Content[i].Value, v)
		}
		return MapNode(m), nil
	case yaml.AliasNode:
		return fromYAMLNode(yn.Alias)
	}
	return nil, errors.Newf(errors.ErrContainerCorrupt, "unsupported YAML node kind %d", yn.Kind)
}
