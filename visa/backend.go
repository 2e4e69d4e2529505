package visa

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/telemetry"
)

// Backend performs message based I/O with a single instrument.
//
// A timeout of zero selects the backend's configured default. Backends that
// open their connection lazily per call must not fail on a "not connected"
// precondition; an unreachable resource surfaces as a *TransportError.
type Backend interface {
	Write(message string, timeout time.Duration) error
	Query(message string, timeout time.Duration) (string, error)
	Read(timeout time.Duration) (string, error)
	WriteAndRead(message string, timeout time.Duration) (string, error)
	Close() error
}

// Options carry the connection parameters for one instrument.
type Options struct {
	// Location addresses the instrument, e.g. "tcp://10.0.0.5:5025",
	// "serial:///dev/ttyUSB0?baud=115200" or "gpib:///dev/ttyUSB1:9".
	Location string
	// Termination is appended to every outgoing message.
	Termination string
	// Timeout is the default per-call timeout. Zero leaves the choice to the
	// underlying resource manager.
	Timeout time.Duration
	// Check requests an identification query during construction. Failures
	// propagate so unreachable hardware is caught early.
	Check bool

	Logger    zerolog.Logger
	Collector telemetry.Collector
}

// Factory constructs a backend bound to one instrument.
type Factory func(opts Options) (Backend, error)
