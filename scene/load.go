package scene

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

// document is the JSON form of a scene:
//
//	{
//	  "fps": 24,
//	  "roots": {
//	    "data": {"members": {"objects": {"items": [
//	      {"name": "Cube", "attrs": {
//	        "location": {"kind": "float", "value": [0, 0, 0]},
//	        "display_type": {"kind": "enum", "items": ["BOUNDS", "WIRE", "SOLID"], "value": 2}
//	      }}
//	    ]}}}
//	  }
//	}
type document struct {
	FPS   float64            `json:"fps"`
	Roots map[string]nodeDoc `json:"roots"`
}

type nodeDoc struct {
	Name    string             `json:"name"`
	Attrs   map[string]attrDoc `json:"attrs"`
	Members map[string]nodeDoc `json:"members"`
	Items   []nodeDoc          `json:"items"`
}

type attrDoc struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
	Items []string        `json:"items"`
}

// Load reads a JSON scene document. opts.FPS is taken from the document when unset.
func Load(r io.Reader, opts Options) (*Scene, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode scene")
	}

	if opts.FPS <= 0 {
		opts.FPS = doc.FPS
	}
	s := New(opts)

	for name, nd := range doc.Roots {
		if nd.Name == "" {
			nd.Name = name
		}
		n, err := buildNode(nd)
		if err != nil {
			return nil, errors.Wrapf(err, "root %s", name)
		}
		s.AddRoot(name, n)
	}

	return s, nil
}

// LoadFile reads a JSON scene document from path.
func LoadFile(path string, opts Options) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scene")
	}
	defer f.Close()
	return Load(f, opts)
}

func buildNode(nd nodeDoc) (*Node, error) {
	n := NewNode(nd.Name)

	for attr, ad := range nd.Attrs {
		if err := buildAttr(n, attr, ad); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", nd.Name, attr)
		}
	}
	for name, md := range nd.Members {
		if md.Name == "" {
			md.Name = name
		}
		child, err := buildNode(md)
		if err != nil {
			return nil, err
		}
		n.AddMember(name, child)
	}
	for i, id := range nd.Items {
		if id.Name == "" {
			return nil, errors.Errorf("%s: item %d has no name", nd.Name, i)
		}
		child, err := buildNode(id)
		if err != nil {
			return nil, err
		}
		n.AddItem(child)
	}

	return n, nil
}

func buildAttr(n *Node, attr string, ad attrDoc) error {
	kind, err := parseKind(ad.Kind)
	if err != nil {
		return err
	}

	if kind == host.KindEnum {
		var idx int
		if err := json.Unmarshal(ad.Value, &idx); err != nil {
			var name string
			if err := json.Unmarshal(ad.Value, &name); err != nil {
				return errors.Wrap(err, "enum value must be an index or an item name")
			}
			idx = -1
			for i, it := range ad.Items {
				if it == name {
					idx = i
				}
			}
		}
		return n.DeclareEnum(attr, ad.Items, idx)
	}

	var v any
	switch kind {
	case host.KindBool:
		v, err = unmarshalScalarOrVector[bool](ad.Value)
	case host.KindInt:
		v, err = unmarshalScalarOrVector[int](ad.Value)
	case host.KindFloat:
		v, err = unmarshalScalarOrVector[float64](ad.Value)
	default:
		var s string
		err = json.Unmarshal(ad.Value, &s)
		v = s
	}
	if err != nil {
		return errors.Wrap(err, "value")
	}
	return n.SetAttr(attr, kind, v)
}

func unmarshalScalarOrVector[T any](raw json.RawMessage) (any, error) {
	var vec []T
	if err := json.Unmarshal(raw, &vec); err == nil {
		return vec, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseKind(s string) (host.Kind, error) {
	switch s {
	case "bool":
		return host.KindBool, nil
	case "int":
		return host.KindInt, nil
	case "float":
		return host.KindFloat, nil
	case "enum":
		return host.KindEnum, nil
	case "string", "other":
		return host.KindOther, nil
	}
	return host.KindUnknown, errors.Errorf("unknown attribute kind %q", s)
}
