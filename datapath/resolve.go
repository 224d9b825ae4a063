package datapath

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

// ResolveError reports a path that could not be resolved.
type ResolveError struct {
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Target is a resolved property path.
type Target struct {
	Path
	Owner host.Object
}

// Resolve parses expr and walks its owner expression through g.
// The result is never cached by this package; hosts may rename or delete
// objects between calls.
func Resolve(g host.Graph, expr string) (Target, error) {
	p, err := Split(expr)
	if err != nil {
		return Target{}, &ResolveError{Path: expr, Err: err}
	}

	steps, err := ParseOwner(p.Owner)
	if err != nil {
		return Target{}, &ResolveError{Path: expr, Err: err}
	}

	obj, err := Walk(g, steps)
	if err != nil {
		return Target{}, &ResolveError{Path: expr, Err: err}
	}

	return Target{Path: p, Owner: obj}, nil
}

// Walk follows steps from the graph root.
func Walk(g host.Graph, steps []Step) (host.Object, error) {
	if len(steps) == 0 || steps[0].Kind != StepName {
		return nil, errors.Wrap(ErrSyntax, "path must start with a name")
	}

	obj, err := g.Root(steps[0].Name)
	if err != nil {
		return nil, errors.Wrapf(err, "root %s", steps[0].Name)
	}

	for _, st := range steps[1:] {
		switch st.Kind {
		case StepName:
			obj, err = obj.Member(st.Name)
		case StepKey:
			obj, err = obj.Lookup(st.Name)
		case StepIndex:
			obj, err = obj.Element(st.Index)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "step %s", st)
		}
	}

	return obj, nil
}

// Get reads the targeted attribute or element.
func (t Target) Get() (any, error) {
	if t.HasIndex {
		return t.Owner.GetIndex(t.Attr, t.Index)
	}
	return t.Owner.Get(t.Attr)
}

// Set assigns the targeted attribute or element.
func (t Target) Set(v any) error {
	if t.HasIndex {
		return t.Owner.SetIndex(t.Attr, t.Index, v)
	}
	return t.Owner.Set(t.Attr, v)
}

// KeyIndex is the index to key: the element index, or -1 for scalars.
func (t Target) KeyIndex() int {
	if t.HasIndex {
		return t.Index
	}
	return -1
}

// CurveIndex is the array index of the animation curve for the target.
// Scalar attributes use curve 0.
func (t Target) CurveIndex() int {
	if t.HasIndex {
		return t.Index
	}
	return 0
}
