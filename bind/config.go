package bind

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/osc"
)

const (
	DefaultHost     = "localhost"
	DefaultPort     = 10000
	DefaultInterval = 16 * time.Millisecond
)

// Config holds the settings of a System.
type Config struct {
	// Host and Port are the UDP address the listener binds to.
	Host string
	Port int
	// HoldLast makes mappings fall back to the last value ever received
	// when nothing new arrived since the previous tick.
	HoldLast bool
	// Interval is the delay between two ticks of the apply loop.
	Interval time.Duration

	ReadTimeout time.Duration
	JoinTimeout time.Duration
	ReadBuffer  int

	// Middleware, if set, wraps the value store before it is handed to the listener.
	Middleware func(next osc.Publisher) osc.Publisher

	// Logger is used by the apply loop, ListenerLogger by the network listener.
	// Both default to slog.Default().
	Logger         *slog.Logger
	ListenerLogger *slog.Logger
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		HoldLast:    true,
		Interval:    DefaultInterval,
		ReadTimeout: osc.DefaultReadTimeout,
		JoinTimeout: osc.DefaultJoinTimeout,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.Interval <= 0 {
		return errors.Errorf("apply interval must be positive, got %s", c.Interval)
	}
	if c.ReadTimeout < 0 || c.JoinTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.ReadBuffer < 0 {
		return errors.Errorf("read buffer must not be negative, got %d", c.ReadBuffer)
	}
	return nil
}

// Addr returns Host and Port as a dialable address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) listenerLogger() *slog.Logger {
	if c.ListenerLogger == nil {
		return c.logger()
	}
	return c.ListenerLogger
}
