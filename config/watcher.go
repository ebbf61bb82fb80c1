// Package config provides configuration watching and hot-reload functionality
package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sneuron/sneuron/core"
)

// reloadDebounce coalesces a burst of writes (editors often truncate then
// rewrite) into a single reload. readdDelay gives a remove/rename a moment
// to settle — e.g. an editor's save-via-rename — before re-arming the watch.
const (
	reloadDebounce = 500 * time.Millisecond
	readdDelay     = 1 * time.Second
)

// ConfigChangeCallback is called when configuration changes.
type ConfigChangeCallback func(oldConfig, newConfig *Config)

// Watcher watches a configuration file for changes and hot-reloads it. It
// also tracks a set of live node actors: every successful reload pushes the
// new Tuning block's hot-swappable fields onto each tracked node directly,
// rather than leaving that to whatever reads GetConfig next.
type Watcher struct {
	configFile string
	loader     *Loader
	logger     core.Logger

	mu     sync.RWMutex
	config *Config

	nodesMu sync.Mutex
	nodes   []*core.Node

	callbacksMu sync.RWMutex
	callbacks   []ConfigChangeCallback

	fsWatcher   *fsnotify.Watcher
	reloadTimer *time.Timer
	readdTimer  *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over configFile, synchronously loading it
// once so GetConfig has a value even before Start is called.
func NewWatcher(configFile string, loader *Loader, logger core.Logger) (*Watcher, error) {
	if logger == nil {
		logger = core.DefaultLogger()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}

	cfg, err := loader.LoadFromFile(configFile)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		configFile: configFile,
		loader:     loader,
		logger:     logger,
		config:     cfg,
		fsWatcher:  fsWatcher,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Track registers live node actors that should pick up a reloaded Tuning
// block's hot-swappable fields (currently just the status probe timeout)
// the moment the watched file changes, instead of only on process restart.
func (w *Watcher) Track(nodes ...*core.Node) {
	w.nodesMu.Lock()
	defer w.nodesMu.Unlock()
	w.nodes = append(w.nodes, nodes...)
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.configFile); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.wg.Add(1)
	go w.watchLoop()

	return nil
}

// Stop stops watching and releases the underlying file system watcher.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// GetConfig returns the current, live configuration.
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// GetTuning returns just the current Tuning block, the slice of
// configuration a coordinator actually consumes on every tick.
func (w *Watcher) GetTuning() Tuning {
	return w.GetConfig().Tuning
}

// OnConfigChange registers a callback invoked on every successful reload,
// after tracked nodes have already picked up the new Tuning.
func (w *Watcher) OnConfigChange(callback ConfigChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Reload manually reloads the configuration from disk.
func (w *Watcher) Reload() error {
	return w.reloadConfig()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	defer func() {
		if w.reloadTimer != nil {
			w.reloadTimer.Stop()
		}
		if w.readdTimer != nil {
			w.readdTimer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Name == w.configFile {
				w.handleEvent(event)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger("config: watcher error: %v", err)
		}
	}
}

// handleEvent schedules a debounced reload for a write/create, or arms a
// delayed re-watch for a remove/rename (an editor that saves via
// rename-over-original otherwise permanently drops the watch).
func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if w.reloadTimer != nil {
			w.reloadTimer.Stop()
		}
		w.reloadTimer = time.AfterFunc(reloadDebounce, func() {
			if err := w.reloadConfig(); err != nil {
				w.logger("config: failed to reload %s: %v", w.configFile, err)
			}
		})

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.logger("config: %s was removed or renamed", w.configFile)
		if w.readdTimer != nil {
			w.readdTimer.Stop()
		}
		w.readdTimer = time.AfterFunc(readdDelay, func() {
			if err := w.fsWatcher.Add(w.configFile); err != nil {
				w.logger("config: failed to re-watch %s: %v", w.configFile, err)
			}
		})
	}
}

func (w *Watcher) reloadConfig() error {
	newConfig, err := w.loader.LoadFromFile(w.configFile)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	w.mu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.mu.Unlock()

	w.applyTuning(newConfig.Tuning)
	w.notifyCallbacks(oldConfig, newConfig)
	w.logger("config: reloaded from %s", w.configFile)
	return nil
}

// applyTuning pushes the fields of a reloaded Tuning block that a running
// node can actually pick up without a restart onto every tracked node.
// Mailbox capacity, poll interval, and the default activation function id
// are consulted only at node construction and cannot be hot-swapped this
// way.
func (w *Watcher) applyTuning(t Tuning) {
	w.nodesMu.Lock()
	nodes := append([]*core.Node(nil), w.nodes...)
	w.nodesMu.Unlock()

	for _, n := range nodes {
		n.SetProbeTimeout(t.StatusProbeTimeout)
	}
	if len(nodes) > 0 {
		w.logger("config: applied reloaded probe timeout %s to %d tracked node(s)", t.StatusProbeTimeout, len(nodes))
	}
}

func (w *Watcher) notifyCallbacks(oldConfig, newConfig *Config) {
	w.callbacksMu.RLock()
	callbacks := append([]ConfigChangeCallback(nil), w.callbacks...)
	w.callbacksMu.RUnlock()

	for _, cb := range callbacks {
		go func(cb ConfigChangeCallback) {
			defer func() {
				if r := recover(); r != nil {
					w.logger("config: change callback panicked: %v", r)
				}
			}()
			cb(oldConfig, newConfig)
		}(cb)
	}
}
