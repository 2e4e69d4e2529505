package visa

import (
	"fmt"
	"strings"
	"time"
)

// openTimeout bounds how long a resource manager may take to open a session.
const openTimeout = time.Second

// Session is one open channel to a physical resource location. It carries the
// write termination and any per-call timeout it was opened with and is only
// valid inside the scope that opened it.
type Session interface {
	// WriteLine sends message followed by the configured termination.
	WriteLine(message string) error
	// ReadLine returns the next reply line with the framing stripped.
	ReadLine() (string, error)
	Close() error
}

// ResourceManager opens sessions to instrument resource locations. A timeout
// of zero keeps the manager's own default read timeout.
type ResourceManager interface {
	Open(location, termination string, timeout time.Duration) (Session, error)
	Close() error
}

// managerMux routes locations by their scheme prefix to the concrete
// resource manager implementations.
type managerMux struct {
	serial serialManager
	tcp    tcpManager
	gpib   gpibManager
}

func (m *managerMux) Open(location, termination string, timeout time.Duration) (Session, error) {
	scheme, rest, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "serial":
		return m.serial.open(rest, termination, timeout)
	case "tcp":
		return m.tcp.open(rest, termination, timeout)
	case "gpib":
		return m.gpib.open(rest, termination, timeout)
	default:
		return nil, fmt.Errorf("unsupported resource scheme %q in %s", scheme, location)
	}
}

func (m *managerMux) Close() error { return nil }

func splitLocation(location string) (scheme, rest string, err error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return "", "", fmt.Errorf("resource location must not be empty")
	}
	parts := strings.SplitN(trimmed, "://", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("resource location %q must look like scheme://address", location)
	}
	return strings.ToLower(parts[0]), parts[1], nil
}
