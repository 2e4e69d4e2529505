package visa

import "sync"

var (
	factoryMu      sync.Mutex
	currentFactory Factory
)

// SelectedFactory returns the backend factory used for newly constructed
// drivers. The transport factory is installed and cached on first read if no
// selection was made. Drivers capture the result at construction time, so a
// later SelectFactory call does not affect instances that already exist.
func SelectedFactory() Factory {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if currentFactory == nil {
		currentFactory = NewTransport
	}
	return currentFactory
}

// SelectFactory overrides the backend factory for all subsequently constructed
// drivers. Test suites use this to substitute NewLoggerBackend globally
// without threading a parameter through every constructor call site.
func SelectFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	currentFactory = f
}

// ResetFactory clears the selection so the next SelectedFactory call falls
// back to the transport factory again.
func ResetFactory() {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	currentFactory = nil
}
