package config

import "github.com/sneuron/sneuron/core"

// Load loads configuration from filename, or the built-in defaults if
// filename is empty. It is the package-level convenience wrapper around a
// default Loader, for callers that don't need custom search paths.
func Load(filename string) (*Config, error) {
	return NewLoader().Load(filename)
}

// Watch starts watching filename for changes and returns the live Watcher.
// Callers should register with OnConfigChange before the first tick that
// depends on a fresh Tuning block, and must call Stop when done.
func Watch(filename string, logger core.Logger) (*Watcher, error) {
	watcher, err := NewWatcher(filename, NewLoader(), logger)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}
