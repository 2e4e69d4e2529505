// Package driver provides the base every instrument driver builds on: the
// write/ask helpers over the selected backend, value coercion and the common
// IEEE 488.2 operations (identification, reset, clear, error queue).
package driver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/visa"
)

// Config is the configuration surface a concrete driver passes through to
// the backend.
type Config struct {
	Location    string
	Termination string
	Timeout     time.Duration
	Check       bool
}

// Driver owns exactly one backend instance, bound at construction via the
// process-wide factory selection. All methods delegate to that backend;
// failures propagate unchanged, retries are the caller's concern because
// instrument semantics vary per command.
type Driver struct {
	backend visa.Backend
	logger  zerolog.Logger
	params  *Params
}

// New resolves a backend through the registry and binds it to the returned
// driver. Later factory changes do not affect this instance.
func New(cfg Config, logger zerolog.Logger) (*Driver, error) {
	backend, err := visa.SelectedFactory()(visa.Options{
		Location:    cfg.Location,
		Termination: cfg.Termination,
		Timeout:     cfg.Timeout,
		Check:       cfg.Check,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("construct backend for %s: %w", cfg.Location, err)
	}
	return &Driver{backend: backend, logger: logger, params: newParams()}, nil
}

// NewWithBackend binds the driver to an explicit backend instance, bypassing
// the registry. Concrete-driver tests use it to inject scripted doubles.
func NewWithBackend(backend visa.Backend, logger zerolog.Logger) *Driver {
	return &Driver{backend: backend, logger: logger, params: newParams()}
}

// Params exposes the guarded parameter set of this instance.
func (d *Driver) Params() *Params { return d.params }

// Write sends a command. A zero timeout uses the backend default.
func (d *Driver) Write(message string, timeout time.Duration) error {
	return d.backend.Write(message, timeout)
}

// Ask sends a query and returns the trimmed response text.
func (d *Driver) Ask(message string, timeout time.Duration) (string, error) {
	reply, err := d.backend.Query(message, timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Read returns the next trimmed reply line without sending anything first.
func (d *Driver) Read(timeout time.Duration) (string, error) {
	reply, err := d.backend.Read(timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// WriteAndRead writes, then reads, and returns the raw response. Callers
// trim as needed.
func (d *Driver) WriteAndRead(message string, timeout time.Duration) (string, error) {
	return d.backend.WriteAndRead(message, timeout)
}

// ValueToBool coerces an on/off-like value. Accepted are booleans, the
// strings "on" and "off" in any casing, and the integers 0 and 1.
func (d *Driver) ValueToBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if strings.EqualFold(v, "on") {
			return true, nil
		}
		if strings.EqualFold(v, "off") {
			return false, nil
		}
	case int:
		if v == 0 {
			return false, nil
		}
		if v == 1 {
			return true, nil
		}
	}
	return false, &ValueKindError{Value: value}
}

// IDN returns the device identification string.
func (d *Driver) IDN() (string, error) {
	return d.Ask("*IDN?", 0)
}

// LastError returns the head of the instrument's error queue.
func (d *Driver) LastError() (string, error) {
	return d.Ask("SYST:ERR?", 0)
}

// PrintError queries the error queue and prints the result.
func (d *Driver) PrintError() error {
	msg, err := d.LastError()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Errors: %s\n", msg)
	return nil
}

// Reset restores the factory default state. Volatile memory is untouched.
func (d *Driver) Reset() error {
	if err := d.Write("*RST", 0); err != nil {
		return err
	}
	return d.Write("*WAI", 0)
}

// Clear empties the event register and the error queue.
func (d *Driver) Clear() error {
	if err := d.Write("*CLS", 0); err != nil {
		return err
	}
	return d.Write("*WAI", 0)
}

// Close releases the backend.
func (d *Driver) Close() error {
	return d.backend.Close()
}
