package visa

import (
	"errors"
	"fmt"
)

// TransportError reports a failure at the transport layer: the resource could
// not be reached, or an open, write, read or close on it failed.
type TransportError struct {
	Op       string
	Location string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err carries a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
