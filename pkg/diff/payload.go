package diff

import (
	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/resource"
)

// Diff payloads travel inside mod packages as YAML so they stay
// reviewable. One document per resource.

type payloadOp struct {
	Op    string    `yaml:"op"`
	Path  []string  `yaml:"path"`
	Value yaml.Node `yaml:"value,omitempty"`
}

type payloadDoc struct {
	Ops []payloadOp `yaml:"ops"`
}

// EncodeYAML renders the diff as a YAML payload document.
func EncodeYAML(d *ResourceDiff) ([]byte, error) {
	doc := payloadDoc{Ops: make([]payloadOp, 0, len(d.Ops))}
	for _, op := range d.Ops {
		p := payloadOp{Op: string(op.Kind)}
		for _, seg := range op.Path {
			p.Path = append(p.Path, seg.String())
		}
		if op.Value != nil {
			yn, err := resource.ToYAMLNode(op.Value)
			if err != nil {
				return nil, err
			}
			p.Value = *yn
		}
		doc.Ops = append(doc.Ops, p)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode diff payload")
	}
	return out, nil
}

// DecodeYAML parses a YAML payload document back into a diff.
func DecodeYAML(data []byte) (*ResourceDiff, error) {
	var doc payloadDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrDiffInvalid, "invalid diff payload")
	}
	d := &ResourceDiff{Ops: make([]Op, 0, len(doc.Ops))}
	for _, p := range doc.Ops {
		op := Op{}
		switch OpKind(p.Op) {
		case OpAdd, OpRemove, OpReplace:
			op.Kind = OpKind(p.Op)
		default:
			return nil, errors.Newf(errors.ErrDiffInvalid, "unknown diff operation %q", p.Op)
		}
		for _, raw := range p.Path {
			seg, err := ParseSegment(raw)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrDiffInvalid, "invalid diff path")
			}
			op.Path = append(op.Path, seg)
		}
		if !p.Value.IsZero() {
			v, err := resource.FromYAMLNode(&p.Value)
			if err != nil {
				return nil, err
			}
			op.Value = v
		}
		if op.Kind != OpRemove && op.Value == nil {
			return nil, errors.Newf(errors.ErrDiffInvalid, "%s operation missing value", op.Kind)
		}
		d.Ops = append(d.Ops, op)
	}
	return d, nil
}
