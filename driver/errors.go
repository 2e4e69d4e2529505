package driver

import "fmt"

// ValueKindError reports a value that cannot be coerced, e.g. a string other
// than "on"/"off" handed to ValueToBool.
type ValueKindError struct {
	Value any
}

func (e *ValueKindError) Error() string {
	return fmt.Sprintf("cannot convert %v (%T) to bool: must be bool, int 0/1 or string \"ON\"/\"OFF\"", e.Value, e.Value)
}

// ParamError reports an assignment to a parameter name the driver never
// declared. It turns misspelled parameter names into immediate failures
// instead of silently creating shadow state.
type ParamError struct {
	Name string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("no such parameter %q", e.Name)
}

// ConfigurationError reports an operation that is inconsistent with the
// driver's declared mode, e.g. querying current on a source configured for
// voltage.
type ConfigurationError struct {
	Op   string
	Want string
	Got  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s requires %s mode, instrument is configured for %s", e.Op, e.Want, e.Got)
}
