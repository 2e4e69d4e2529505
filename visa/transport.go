package visa

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/telemetry"
)

// Transport is the real backend. Every operation opens a scoped session to
// the resource location, performs exactly one exchange and releases the
// session before returning, also on failure. Opening per call trades
// connection reuse for robustness against stale handles between the
// low-frequency instrument commands.
type Transport struct {
	rm        ResourceManager
	opts      Options
	logger    zerolog.Logger
	collector telemetry.Collector
}

// NewTransport builds a transport backend on the default resource managers.
// It is the factory the registry falls back to.
func NewTransport(opts Options) (Backend, error) {
	return NewTransportWith(&managerMux{}, opts)
}

// NewTransportWith builds a transport backend on an injected resource
// manager.
func NewTransportWith(rm ResourceManager, opts Options) (Backend, error) {
	collector := opts.Collector
	if collector == nil {
		collector = telemetry.Noop()
	}
	t := &Transport{
		rm:        rm,
		opts:      opts,
		logger:    opts.Logger.With().Str("backend", "transport").Str("location", opts.Location).Logger(),
		collector: collector,
	}
	if opts.Check {
		idn, err := t.Query("*IDN?", 0)
		if err != nil {
			return nil, err
		}
		t.logger.Info().Str("idn", idn).Msg("connected")
	}
	return t, nil
}

func (t *Transport) Write(message string, timeout time.Duration) error {
	t.logger.Trace().Str("message", message).Msg("write")
	t.collector.IncWrite(t.opts.Location)
	return t.withSession(timeout, func(s Session) error {
		if err := s.WriteLine(message); err != nil {
			return t.fail("write", err)
		}
		return nil
	})
}

func (t *Transport) Query(message string, timeout time.Duration) (string, error) {
	t.logger.Trace().Str("message", message).Msg("query")
	t.collector.IncQuery(t.opts.Location)
	var reply string
	err := t.withSession(timeout, func(s Session) error {
		if err := s.WriteLine(message); err != nil {
			return t.fail("write", err)
		}
		line, err := s.ReadLine()
		if err != nil {
			return t.fail("read", err)
		}
		reply = line
		return nil
	})
	return reply, err
}

func (t *Transport) Read(timeout time.Duration) (string, error) {
	t.logger.Trace().Msg("read")
	t.collector.IncQuery(t.opts.Location)
	var reply string
	err := t.withSession(timeout, func(s Session) error {
		line, err := s.ReadLine()
		if err != nil {
			return t.fail("read", err)
		}
		reply = line
		return nil
	})
	return reply, err
}

func (t *Transport) WriteAndRead(message string, timeout time.Duration) (string, error) {
	return t.Query(message, timeout)
}

// Close releases resource-manager level state. Per-call sessions are already
// closed by the time it runs.
func (t *Transport) Close() error {
	if err := t.rm.Close(); err != nil {
		return t.fail("close", err)
	}
	return nil
}

// withSession opens a session with the configured termination and optional
// per-call timeout override, runs op and guarantees that the session is
// released exactly once. A close failure is reported only when op itself
// succeeded, so it never masks the operation error.
func (t *Transport) withSession(timeout time.Duration, op func(Session) error) (err error) {
	if timeout <= 0 {
		timeout = t.opts.Timeout
	}
	start := time.Now()
	session, openErr := t.rm.Open(t.opts.Location, t.opts.Termination, timeout)
	if openErr != nil {
		return t.fail("open", openErr)
	}
	defer func() {
		closeErr := session.Close()
		if err == nil && closeErr != nil {
			err = t.fail("close", closeErr)
		}
		t.collector.ObserveSession(t.opts.Location, time.Since(start))
	}()
	return op(session)
}

func (t *Transport) fail(op string, err error) error {
	t.collector.IncTransportError(t.opts.Location, op)
	return &TransportError{Op: op, Location: t.opts.Location, Err: err}
}
