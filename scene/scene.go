// Package scene is an in-memory host for oscbind: an object graph with typed
// attributes, animation curves that drive attributes during playback unless
// muted, a frame clock, a status line and a scheduler that runs every
// callback on one goroutine.
package scene

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/host"
)

const (
	DefaultFPS            = 24
	DefaultTickResolution = 4 * time.Millisecond
)

// Options configures a Scene.
type Options struct {
	FPS            float64
	TickResolution time.Duration
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Keyframe is one recorded key of a curve.
type Keyframe struct {
	Frame int
	Value float64
}

// Curve is the recorded animation of one attribute element.
type Curve struct {
	Attr  string
	Index int
	Muted bool
	Keys  []Keyframe
}

type curveKey struct {
	node  *Node
	attr  string
	index int
}

type timer struct {
	due       time.Time
	fn        host.TimerFunc
	cancelled bool
}

// Scene implements every host interface oscbind consumes.
type Scene struct {
	opts Options

	mu       sync.Mutex
	roots    map[string]*Node
	curves   map[curveKey]*Curve
	playing  bool
	frame    int
	frameAcc float64
	lastPoll time.Time
	status   string
	redraws  int
	timers   []*timer
}

var (
	_ host.Graph     = (*Scene)(nil)
	_ host.Animator  = (*Scene)(nil)
	_ host.Playback  = (*Scene)(nil)
	_ host.Display   = (*Scene)(nil)
	_ host.Scheduler = (*Scene)(nil)
)

// New returns an empty scene.
func New(opts Options) *Scene {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.TickResolution <= 0 {
		opts.TickResolution = DefaultTickResolution
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scene{
		opts:   opts,
		roots:  make(map[string]*Node),
		curves: make(map[curveKey]*Curve),
	}
}

// FPS returns the playback rate.
func (s *Scene) FPS() float64 { return s.opts.FPS }

// AddRoot registers n as a top level name.
func (s *Scene) AddRoot(name string, n *Node) *Node {
	s.mu.Lock()
	s.roots[name] = n
	s.mu.Unlock()
	return n
}

func (s *Scene) Root(name string) (host.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.roots[name]; ok {
		return n, nil
	}
	return nil, errors.Wrapf(host.ErrNotFound, "no root %s", name)
}

////
// Animation
////

func (s *Scene) InsertKeyframe(owner host.Object, attr string, index, frame int) error {
	n, ok := owner.(*Node)
	if !ok {
		return errors.Wrapf(host.ErrInvalidValue, "foreign object %T", owner)
	}

	var v any
	var err error
	if index < 0 {
		v, err = n.Get(attr)
	} else {
		v, err = n.GetIndex(attr, index)
	}
	if err != nil {
		return err
	}
	f, err := toFloat(v)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", n.name, attr)
	}

	if index < 0 {
		index = 0
	}
	key := curveKey{node: n, attr: attr, index: index}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.curves[key]
	if !ok {
		c = &Curve{Attr: attr, Index: index}
		s.curves[key] = c
	}
	i := sort.Search(len(c.Keys), func(i int) bool { return c.Keys[i].Frame >= frame })
	if i < len(c.Keys) && c.Keys[i].Frame == frame {
		c.Keys[i].Value = f
	} else {
		c.Keys = append(c.Keys, Keyframe{})
		copy(c.Keys[i+1:], c.Keys[i:])
		c.Keys[i] = Keyframe{Frame: frame, Value: f}
	}
	return nil
}

func (s *Scene) MuteCurve(owner host.Object, attr string, index int, mute bool) (bool, error) {
	n, ok := owner.(*Node)
	if !ok {
		return false, errors.Wrapf(host.ErrInvalidValue, "foreign object %T", owner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.curves[curveKey{node: n, attr: attr, index: index}]
	if !ok {
		return false, nil
	}
	c.Muted = mute
	return true, nil
}

// Curve returns a copy of the curve recorded for owner.attr[index].
func (s *Scene) Curve(owner host.Object, attr string, index int) (Curve, bool) {
	n, ok := owner.(*Node)
	if !ok {
		return Curve{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.curves[curveKey{node: n, attr: attr, index: index}]
	if !ok {
		return Curve{}, false
	}
	cp := *c
	cp.Keys = append([]Keyframe(nil), c.Keys...)
	return cp, true
}

// KeyframeCount returns the number of keys across all curves.
func (s *Scene) KeyframeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, c := range s.curves {
		total += len(c.Keys)
	}
	return total
}

// evaluate writes the value of every unmuted curve at frame to its attribute.
func (s *Scene) evaluate(frame int) {
	type write struct {
		key  curveKey
		kind host.Kind
		v    float64
	}

	s.mu.Lock()
	writes := make([]write, 0, len(s.curves))
	for k, c := range s.curves {
		if c.Muted || len(c.Keys) == 0 {
			continue
		}
		kind, _ := k.node.AttrKind(k.attr)
		writes = append(writes, write{key: k, kind: kind, v: valueAt(c.Keys, frame)})
	}
	s.mu.Unlock()

	for _, w := range writes {
		v := fromFloat(w.kind, w.v)
		var err error
		if vec, _ := w.key.node.Get(w.key.attr); isVector(vec) {
			err = w.key.node.SetIndex(w.key.attr, w.key.index, v)
		} else {
			err = w.key.node.Set(w.key.attr, v)
		}
		if err != nil {
			s.opts.Logger.Debug("curve evaluation failed", "attr", w.key.attr, "index", w.key.index, "err", err)
		}
	}
}

// valueAt interpolates linearly between keys and holds the end values.
func valueAt(keys []Keyframe, frame int) float64 {
	if frame <= keys[0].Frame {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if frame >= last.Frame {
		return last.Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame >= frame })
	a, b := keys[i-1], keys[i]
	t := float64(frame-a.Frame) / float64(b.Frame-a.Frame)
	return a.Value + t*(b.Value-a.Value)
}

////
// Playback
////

func (s *Scene) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Scene) SetPlaying(play bool) error {
	s.mu.Lock()
	if play && !s.playing {
		s.frameAcc = 0
		s.lastPoll = s.opts.Clock()
	}
	s.playing = play
	s.mu.Unlock()
	return nil
}

func (s *Scene) Frame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// SetFrame jumps to frame and evaluates curves there.
func (s *Scene) SetFrame(frame int) {
	s.mu.Lock()
	s.frame = frame
	s.frameAcc = 0
	s.mu.Unlock()
	s.evaluate(frame)
}

////
// Display
////

func (s *Scene) SetStatus(text string) {
	s.mu.Lock()
	s.status = text
	s.mu.Unlock()
}

// Status returns the current status line.
func (s *Scene) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scene) Redraw() {
	s.mu.Lock()
	s.redraws++
	s.mu.Unlock()
}

// Redraws returns how many redraws were requested.
func (s *Scene) Redraws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redraws
}

////
// Scheduling
////

func (s *Scene) Register(first time.Duration, fn host.TimerFunc) (cancel func()) {
	t := &timer{due: s.opts.Clock().Add(first), fn: fn}

	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

// Timers returns the number of live registrations.
func (s *Scene) Timers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Poll advances playback to now, evaluates curves on a frame change and runs
// every timer that is due. Callbacks run on the caller's goroutine.
func (s *Scene) Poll(now time.Time) {
	s.mu.Lock()
	advanced := false
	if s.playing && !s.lastPoll.IsZero() {
		s.frameAcc += now.Sub(s.lastPoll).Seconds() * s.opts.FPS
		if n := int(s.frameAcc); n > 0 {
			s.frame += n
			s.frameAcc -= float64(n)
			advanced = true
		}
	}
	s.lastPoll = now
	frame := s.frame

	var due []*timer
	live := s.timers[:0]
	for _, t := range s.timers {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if !t.due.After(now) {
			due = append(due, t)
		}
	}
	s.timers = live
	s.mu.Unlock()

	if advanced {
		s.evaluate(frame)
	}

	for _, t := range due {
		next := t.fn()

		s.mu.Lock()
		if next < 0 {
			t.cancelled = true
		} else {
			t.due = now.Add(next)
		}
		s.mu.Unlock()
	}
}

// Run polls the scene until ctx is done. It is the scene's main context.
func (s *Scene) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.TickResolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Poll(s.opts.Clock())
		}
	}
}
