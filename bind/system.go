// Package bind drives host properties from received OSC values.
//
// A System owns a network listener that publishes into a values.Store and an
// apply loop, registered with the host scheduler, that copies stored values
// onto the property paths of the configured mappings. While recording and
// playing back, every applied value is also keyed once per frame.
package bind

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/datapath"
	"github.com/chabad360/oscbind/host"
	"github.com/chabad360/oscbind/osc"
	"github.com/chabad360/oscbind/values"
)

// ErrNotRunning is returned when recording is enabled on a stopped System.
var ErrNotRunning = errors.New("system not running")

// Host is the set of host capabilities a System uses.
type Host struct {
	Graph     host.Graph
	Animator  host.Animator
	Playback  host.Playback
	Display   host.Display
	Scheduler host.Scheduler
	Mappings  MappingSource
}

func (h Host) validate() error {
	switch {
	case h.Graph == nil:
		return errors.New("host has no object graph")
	case h.Animator == nil:
		return errors.New("host has no animator")
	case h.Playback == nil:
		return errors.New("host has no playback")
	case h.Display == nil:
		return errors.New("host has no display")
	case h.Scheduler == nil:
		return errors.New("host has no scheduler")
	case h.Mappings == nil:
		return errors.New("host has no mapping source")
	}
	return nil
}

// System is the receive and apply pipeline. Start and Stop are idempotent.
type System struct {
	host  Host
	store *values.Store
	memo  frameMemo
	fails failures

	mu        sync.Mutex
	cfg       Config
	server    *osc.Server
	cancel    func()
	running   bool
	recording bool
}

// New returns a stopped System.
func New(cfg Config, h Host) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &System{cfg: cfg, host: h, store: values.New()}, nil
}

// Store returns the value store fed by the listener.
func (s *System) Store() *values.Store { return s.store }

// Start binds the listener and registers the apply loop. A bind failure
// leaves the System stopped.
func (s *System) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	srv := &osc.Server{
		Addr:        s.cfg.Addr(),
		ReadTimeout: s.cfg.ReadTimeout,
		JoinTimeout: s.cfg.JoinTimeout,
		ReadBuffer:  s.cfg.ReadBuffer,
		Logger:      s.cfg.listenerLogger(),
	}

	var pub osc.Publisher = s.store
	if s.cfg.Middleware != nil {
		pub = s.cfg.Middleware(pub)
	}
	if err := srv.Start(pub); err != nil {
		s.cfg.logger().Error("failed to start", "addr", srv.Addr, "err", err)
		return errors.Wrapf(err, "listen on %s", srv.Addr)
	}

	s.server = srv
	s.running = true
	s.cancel = s.host.Scheduler.Register(s.cfg.Interval, s.Tick)
	s.cfg.logger().Info("started", "addr", srv.LocalAddr())
	return nil
}

// Stop shuts the listener down, unregisters the apply loop, turns recording
// off and forgets every received value.
func (s *System) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	srv, cancel := s.server, s.cancel
	s.server, s.cancel = nil, nil
	s.running = false
	s.recording = false
	s.mu.Unlock()

	if !srv.Stop() {
		s.cfg.logger().Warn("listener did not stop in time")
	}
	cancel()

	if err := s.host.Playback.SetPlaying(false); err != nil {
		s.cfg.logger().Warn("failed to stop playback", "err", err)
	}
	s.muteAll(false)

	s.memo.clear()
	s.fails.reset()
	s.store.Clear()
	s.host.Display.SetStatus("")
	s.host.Display.Redraw()
	s.cfg.logger().Info("stopped")
}

// Reconfigure changes the bind address. A running System is stopped and
// started again on the new address.
func (s *System) Reconfigure(hostname string, port int) error {
	s.mu.Lock()
	cfg := s.cfg
	cfg.Host, cfg.Port = hostname, port
	if err := cfg.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	changed := cfg.Addr() != s.cfg.Addr()
	s.cfg = cfg
	running := s.running
	s.mu.Unlock()

	if !running || !changed {
		return nil
	}
	s.Stop()
	return s.Start()
}

// SetRecording turns keyframe recording on or off. Turning it on mutes the
// curve of every mapping and starts playback; turning it off unmutes them
// and stops playback.
func (s *System) SetRecording(on bool) error {
	s.mu.Lock()
	if on && !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.recording = on
	s.mu.Unlock()

	s.muteAll(on)
	if err := s.host.Playback.SetPlaying(on); err != nil {
		s.cfg.logger().Warn("failed to toggle playback", "playing", on, "err", err)
	}
	s.host.Display.Redraw()
	return nil
}

// Running reports whether the listener and apply loop are active.
func (s *System) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Recording reports whether applied values are being keyed.
func (s *System) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Addr returns the bound listener address, or nil when stopped.
func (s *System) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.LocalAddr()
}

// Status is the most recent received value with four decimals, or "".
func (s *System) Status() string {
	if v, ok := s.store.Latest(); ok {
		return fmt.Sprintf("%.4f", v)
	}
	return ""
}

// Tick runs one pass of the apply loop. It is registered with the host
// scheduler by Start and always asks to be called again after the interval.
func (s *System) Tick() time.Duration {
	s.mu.Lock()
	running, recording := s.running, s.recording
	holdLast, interval := s.cfg.HoldLast, s.cfg.Interval
	s.mu.Unlock()

	if !running {
		s.host.Display.SetStatus("")
		return interval
	}

	s.apply(holdLast, recording && s.host.Playback.Playing())
	s.store.EndCycle()

	s.host.Display.SetStatus(s.Status())
	s.host.Display.Redraw()
	return interval
}

func (s *System) apply(holdLast, keying bool) {
	log := s.cfg.logger()
	frame := s.host.Playback.Frame()

	for i, m := range s.host.Mappings.Mappings() {
		if !m.Enabled {
			continue
		}
		addr := NormalizeAddress(m.Address)
		if addr == "" {
			continue
		}
		v, ok := s.store.Read(addr, holdLast)
		if !ok {
			continue
		}

		tgt, err := s.set(m.Datapath, v)
		if err != nil {
			if s.fails.report(i, err) {
				log.Warn("failed to apply mapping", "mapping", i, "address", addr, "datapath", m.Datapath, "err", err)
			}
			continue
		}
		s.fails.ok(i)

		if keying {
			s.key(tgt, m.Datapath, frame)
		}
	}
}

// set resolves path, coerces v for its attribute and assigns it.
func (s *System) set(path string, v float64) (datapath.Target, error) {
	tgt, err := datapath.Resolve(s.host.Graph, path)
	if err != nil {
		return tgt, err
	}
	cv, err := Coerce(tgt.Owner, tgt.Attr, tgt.Index, tgt.HasIndex, v)
	if err != nil {
		return tgt, err
	}
	return tgt, errors.Wrapf(tgt.Set(cv), "set %s", path)
}

// key inserts a keyframe for tgt at frame unless path was already keyed
// there, then mutes the recorded curve.
func (s *System) key(tgt datapath.Target, path string, frame int) {
	if s.memo.keyed(path, frame) {
		return
	}

	log := s.cfg.logger()
	if err := s.host.Animator.InsertKeyframe(tgt.Owner, tgt.Attr, tgt.KeyIndex(), frame); err != nil {
		log.Warn("failed to insert keyframe", "datapath", path, "frame", frame, "err", err)
		return
	}
	if _, err := s.host.Animator.MuteCurve(tgt.Owner, tgt.Attr, tgt.CurveIndex(), true); err != nil {
		log.Warn("failed to mute curve", "datapath", path, "err", err)
	}
	s.memo.mark(path, frame)
	log.Debug("keyed", "datapath", path, "frame", frame)
}

// muteAll sets the mute flag on the recorded curve of every mapping, enabled or not.
func (s *System) muteAll(mute bool) {
	log := s.cfg.logger()
	for _, m := range s.host.Mappings.Mappings() {
		tgt, err := datapath.Resolve(s.host.Graph, m.Datapath)
		if err != nil {
			log.Debug("cannot resolve mapping for muting", "datapath", m.Datapath, "err", err)
			continue
		}
		found, err := s.host.Animator.MuteCurve(tgt.Owner, tgt.Attr, tgt.CurveIndex(), mute)
		if err != nil {
			log.Warn("failed to set curve mute", "datapath", m.Datapath, "mute", mute, "err", err)
			continue
		}
		if found {
			log.Debug("curve mute", "datapath", m.Datapath, "mute", mute)
		}
	}
}

// failures remembers the last error of each mapping row so a row failing on
// every tick is logged once per distinct error.
type failures struct {
	mu   sync.Mutex
	last map[int]string
}

func (f *failures) report(row int, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := err.Error()
	if f.last[row] == msg {
		return false
	}
	if f.last == nil {
		f.last = make(map[int]string)
	}
	f.last[row] = msg
	return true
}

func (f *failures) ok(row int) {
	f.mu.Lock()
	delete(f.last, row)
	f.mu.Unlock()
}

func (f *failures) reset() {
	f.mu.Lock()
	clear(f.last)
	f.mu.Unlock()
}
