package osc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultReadTimeout bounds each blocking receive so a stop request is seen promptly.
	DefaultReadTimeout = 100 * time.Millisecond
	// DefaultJoinTimeout bounds how long Stop waits for the receive loop to exit.
	DefaultJoinTimeout = time.Second
)

// ErrServerRunning is returned by Start when the server is not idle.
var ErrServerRunning = errors.New("server already running")

// State is the lifecycle state of a Server.
type State int32

const (
	StateIdle State = iota
	StateBinding
	StateListening
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBinding:
		return "binding"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Publisher receives the first argument of every decoded message.
type Publisher interface {
	Publish(address string, value float64)
}

// PublisherFunc implements the Publisher interface.
type PublisherFunc func(address string, value float64)

// Publish calls itself with the given address and value. Implements the Publisher interface.
func (f PublisherFunc) Publish(address string, value float64) {
	f(address, value)
}

// Server represents an OSC server. The server listens on Addr for incoming OSC packets and bundles
// and publishes the first argument of every message it decodes.
//
// A Server moves Idle → Binding → Listening → Draining → Idle. Changing Addr
// requires a Stop followed by a Start.
type Server struct {
	Addr        string
	ReadTimeout time.Duration
	JoinTimeout time.Duration
	// ReadBuffer sets the socket receive buffer size in bytes before binding. Zero keeps the OS default.
	ReadBuffer int
	Logger     *slog.Logger

	mu    sync.Mutex
	state State
	run   *run
}

// run is the state of one receive loop. A loop abandoned by Stop keeps its own
// quit flag, so it can never observe a later Start.
type run struct {
	conn net.PacketConn
	quit atomic.Bool
	done chan struct{}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalAddr returns the bound address, or nil when the server is not listening.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil || s.state != StateListening {
		return nil
	}
	return s.run.conn.LocalAddr()
}

// Start binds the UDP socket and starts the receive loop in its own goroutine.
// On a bind failure the server stays idle and no goroutine is started.
func (s *Server) Start(p Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("Start: %w (%s)", ErrServerRunning, s.state)
	}
	s.state = StateBinding

	lc := net.ListenConfig{Control: socketControl(s.ReadBuffer)}
	conn, err := lc.ListenPacket(context.Background(), "udp", s.Addr)
	if err != nil {
		s.state = StateIdle
		s.logger().Error("failed to bind", "addr", s.Addr, "err", err)
		return fmt.Errorf("Start: %w", err)
	}

	r := &run{conn: conn, done: make(chan struct{})}
	s.run = r
	s.state = StateListening
	s.logger().Info("listening", "addr", conn.LocalAddr().String())

	go s.serve(r, p)
	return nil
}

// Stop signals the receive loop, closes the socket to unblock a pending read
// and waits up to JoinTimeout for the loop to exit. The server is idle
// afterwards either way; Stop reports whether the loop was joined.
func (s *Server) Stop() bool {
	s.mu.Lock()
	r := s.run
	if r == nil {
		s.state = StateIdle
		s.mu.Unlock()
		return true
	}
	s.state = StateDraining
	r.quit.Store(true)
	s.mu.Unlock()

	r.conn.Close()

	joined := true
	select {
	case <-r.done:
	case <-time.After(s.joinTimeout()):
		joined = false
		s.logger().Warn("receive loop did not exit in time, abandoning it", "timeout", s.joinTimeout())
	}

	s.mu.Lock()
	if s.run == r {
		s.run = nil
	}
	s.state = StateIdle
	s.mu.Unlock()

	return joined
}

// serve retrieves incoming OSC packets until the run is stopped or the socket fails.
func (s *Server) serve(r *run, p Publisher) {
	defer close(r.done)
	defer s.cleanup(r)

	buf := make([]byte, MaxPacketSize)
	for !r.quit.Load() {
		if err := r.conn.SetReadDeadline(time.Now().Add(s.readTimeout())); err != nil {
			if !r.quit.Load() {
				s.logger().Error("set read deadline", "err", err)
			}
			return
		}

		n, a, err := r.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if !r.quit.Load() {
				s.logger().Error("receive failed, stopping listener", "err", err)
			}
			return
		}

		s.dispatch(buf[:n], a, p)
	}
}

// dispatch decodes one datagram and publishes the first argument of each message.
func (s *Server) dispatch(data []byte, a net.Addr, p Publisher) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			s.logger().Error("panic handling packet", "from", a, "err", err, "stack", string(buf))
		}
	}()

	count := 0
	for addr, args := range Decode(data) {
		count++
		if len(args) == 0 {
			continue
		}
		s.logger().Debug("received", "from", a, "address", addr, "value", args[0])
		p.Publish(addr, args[0])
	}
	if count == 0 {
		s.logger().Debug("dropped undecodable packet", "from", a, "size", len(data))
	}
}

// cleanup closes the socket and, when the loop ended on its own, returns the server to idle.
func (s *Server) cleanup(r *run) {
	r.conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == r && s.state == StateListening {
		s.run = nil
		s.state = StateIdle
	}
}

func (s *Server) readTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return s.ReadTimeout
}

func (s *Server) joinTimeout() time.Duration {
	if s.JoinTimeout <= 0 {
		return DefaultJoinTimeout
	}
	return s.JoinTimeout
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
