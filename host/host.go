// Package host defines what oscbind needs from the application whose objects
// it drives: an object graph with typed attributes, animation curves, a
// playback clock, a display and a scheduler.
package host

import (
	"errors"
	"time"
)

// Kind is a coarse classification of an attribute's type.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindFloat
	KindEnum
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound is returned when a named object, key, index or attribute does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotIndexable is returned for element access on a scalar attribute or collection.
	ErrNotIndexable = errors.New("not indexable")
	// ErrInvalidValue is returned when an attribute rejects a value.
	ErrInvalidValue = errors.New("invalid value")
)

// Object is a node of the host's object graph.
type Object interface {
	// Member returns the object held by the named attribute.
	Member(name string) (Object, error)
	// Lookup returns the element of a keyed collection.
	Lookup(key string) (Object, error)
	// Element returns the element at index i of an ordered collection.
	Element(i int) (Object, error)

	// Get returns the value of a scalar or vector attribute.
	Get(attr string) (any, error)
	// Set assigns a scalar attribute.
	Set(attr string, v any) error
	// GetIndex returns element i of a vector attribute.
	GetIndex(attr string, i int) (any, error)
	// SetIndex assigns element i of a vector attribute.
	SetIndex(attr string, i int, v any) error
}

// Introspector is implemented by objects that declare attribute types. For
// vector attributes the reported kind is that of the elements.
type Introspector interface {
	AttrKind(attr string) (Kind, bool)
}

// Graph resolves the first identifier of a path.
type Graph interface {
	Root(name string) (Object, error)
}

// Animator records keyframes and controls recorded curves.
type Animator interface {
	// InsertKeyframe keys the current value of attr at frame. index is -1 for scalar attributes.
	InsertKeyframe(owner Object, attr string, index, frame int) error
	// MuteCurve sets the mute flag of the curve recorded for attr[index].
	// It reports whether such a curve exists.
	MuteCurve(owner Object, attr string, index int, mute bool) (bool, error)
}

// Playback exposes the host's animation clock.
type Playback interface {
	Playing() bool
	SetPlaying(play bool) error
	Frame() int
}

// Display is the host's user facing status line and redraw hook.
type Display interface {
	SetStatus(text string)
	// Redraw asks for a repaint. It must not block.
	Redraw()
}

// TimerFunc is called by a Scheduler. It returns the delay before the next
// call; a negative delay ends the registration.
type TimerFunc func() time.Duration

// Scheduler runs callbacks on the host's main context.
type Scheduler interface {
	// Register calls fn after first and then after every delay fn returns.
	// The returned cancel function is idempotent.
	Register(first time.Duration, fn TimerFunc) (cancel func())
}
