package driver

import "sync"

// Params guards the mutable per-instance state a driver exposes. Settable
// names are declared up front; writing any other name fails with a
// *ParamError for the lifetime of the instance. The allow-list is fixed from
// the first call on, there is no construction-time window in which arbitrary
// names become settable.
type Params struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
	values  map[string]any
}

func newParams() *Params {
	return &Params{
		allowed: make(map[string]struct{}),
		values:  make(map[string]any),
	}
}

// Declare adds names to the allow-list. Drivers call it once during
// construction.
func (p *Params) Declare(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		p.allowed[name] = struct{}{}
	}
}

// Set stores a value under a declared name. Undeclared names are rejected,
// whether or not they were ever written before.
func (p *Params) Set(name string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.allowed[name]; !ok {
		return &ParamError{Name: name}
	}
	p.values[name] = value
	return nil
}

// Get returns the last value stored under name.
func (p *Params) Get(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.values[name]
	return value, ok
}
