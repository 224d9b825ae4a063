package scene

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

// Node is an object in a Scene. It holds typed attributes, named members and
// an ordered, keyed collection of items.
type Node struct {
	name string

	mu      sync.RWMutex
	attrs   map[string]*attribute
	members map[string]*Node
	items   []*Node
	keys    map[string]*Node
}

type attribute struct {
	kind  host.Kind
	value any // bool, int, float64, string or a slice of bool, int or float64
	enum  []string
}

var (
	_ host.Object       = (*Node)(nil)
	_ host.Introspector = (*Node)(nil)
)

// NewNode returns an empty node.
func NewNode(name string) *Node {
	return &Node{
		name:    name,
		attrs:   make(map[string]*attribute),
		members: make(map[string]*Node),
		keys:    make(map[string]*Node),
	}
}

// Name returns the node's name, which is also its key in a parent collection.
func (n *Node) Name() string { return n.name }

// SetAttr declares attr with the given kind and initial value. Vector
// attributes take a []bool, []int or []float64.
func (n *Node) SetAttr(attr string, kind host.Kind, value any) error {
	v, err := normalize(kind, value)
	if err != nil {
		return errors.Wrapf(err, "attribute %s", attr)
	}

	n.mu.Lock()
	n.attrs[attr] = &attribute{kind: kind, value: v}
	n.mu.Unlock()
	return nil
}

// DeclareEnum declares an enumeration attribute holding an index into items.
func (n *Node) DeclareEnum(attr string, items []string, value int) error {
	if value < 0 || value >= len(items) {
		return errors.Wrapf(host.ErrInvalidValue, "enum %s: index %d out of range", attr, value)
	}

	n.mu.Lock()
	n.attrs[attr] = &attribute{kind: host.KindEnum, value: value, enum: append([]string(nil), items...)}
	n.mu.Unlock()
	return nil
}

// AddMember attaches child under name.
func (n *Node) AddMember(name string, child *Node) *Node {
	n.mu.Lock()
	n.members[name] = child
	n.mu.Unlock()
	return child
}

// AddItem appends child to the node's collection, keyed by the child's name.
func (n *Node) AddItem(child *Node) *Node {
	n.mu.Lock()
	n.items = append(n.items, child)
	n.keys[child.name] = child
	n.mu.Unlock()
	return child
}

// RemoveItem drops the item with the given key.
func (n *Node) RemoveItem(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	child, ok := n.keys[key]
	if !ok {
		return false
	}
	delete(n.keys, key)
	for i, it := range n.items {
		if it == child {
			n.items = append(n.items[:i], n.items[i+1:]...)
			break
		}
	}
	return true
}

// Attrs returns the sorted attribute names.
func (n *Node) Attrs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.attrs))
	for name := range n.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) Member(name string) (host.Object, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if m, ok := n.members[name]; ok {
		return m, nil
	}
	return nil, errors.Wrapf(host.ErrNotFound, "%s has no member %s", n.name, name)
}

func (n *Node) Lookup(key string) (host.Object, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if m, ok := n.keys[key]; ok {
		return m, nil
	}
	return nil, errors.Wrapf(host.ErrNotFound, "%s has no item %q", n.name, key)
}

func (n *Node) Element(i int) (host.Object, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if i < 0 || i >= len(n.items) {
		return nil, errors.Wrapf(host.ErrNotFound, "%s has no item %d", n.name, i)
	}
	return n.items[i], nil
}

func (n *Node) AttrKind(attr string) (host.Kind, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	a, ok := n.attrs[attr]
	if !ok {
		return host.KindUnknown, false
	}
	return a.kind, true
}

// EnumItems returns the item names of an enumeration attribute.
func (n *Node) EnumItems(attr string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if a, ok := n.attrs[attr]; ok {
		return append([]string(nil), a.enum...)
	}
	return nil
}

func (n *Node) Get(attr string) (any, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	a, err := n.attr(attr)
	if err != nil {
		return nil, err
	}
	return copyValue(a.value), nil
}

func (n *Node) Set(attr string, v any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	a, err := n.attr(attr)
	if err != nil {
		return err
	}
	if isVector(a.value) {
		return errors.Wrapf(host.ErrInvalidValue, "%s.%s is a vector, assign an element", n.name, attr)
	}

	cv, err := convert(a, v)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", n.name, attr)
	}
	a.value = cv
	return nil
}

func (n *Node) GetIndex(attr string, i int) (any, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	a, err := n.attr(attr)
	if err != nil {
		return nil, err
	}

	switch vec := a.value.(type) {
	case []float64:
		if i >= 0 && i < len(vec) {
			return vec[i], nil
		}
	case []int:
		if i >= 0 && i < len(vec) {
			return vec[i], nil
		}
	case []bool:
		if i >= 0 && i < len(vec) {
			return vec[i], nil
		}
	default:
		return nil, errors.Wrapf(host.ErrNotIndexable, "%s.%s", n.name, attr)
	}
	return nil, errors.Wrapf(host.ErrNotFound, "%s.%s has no element %d", n.name, attr, i)
}

func (n *Node) SetIndex(attr string, i int, v any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	a, err := n.attr(attr)
	if err != nil {
		return err
	}

	cv, err := convert(a, v)
	if err != nil {
		return errors.Wrapf(err, "%s.%s[%d]", n.name, attr, i)
	}

	outOfRange := errors.Wrapf(host.ErrNotFound, "%s.%s has no element %d", n.name, attr, i)
	switch vec := a.value.(type) {
	case []float64:
		if i < 0 || i >= len(vec) {
			return outOfRange
		}
		vec[i] = cv.(float64)
	case []int:
		if i < 0 || i >= len(vec) {
			return outOfRange
		}
		vec[i] = cv.(int)
	case []bool:
		if i < 0 || i >= len(vec) {
			return outOfRange
		}
		vec[i] = cv.(bool)
	default:
		return errors.Wrapf(host.ErrNotIndexable, "%s.%s", n.name, attr)
	}
	return nil
}

// attr must be called with n.mu held.
func (n *Node) attr(name string) (*attribute, error) {
	a, ok := n.attrs[name]
	if !ok {
		return nil, errors.Wrapf(host.ErrNotFound, "%s has no attribute %s", n.name, name)
	}
	return a, nil
}
