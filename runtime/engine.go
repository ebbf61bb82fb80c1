// Package runtime is the process-level driver that repeatedly ticks a
// network: synchronise every sensor, wait for quiescence, activate gated
// actuators, and prime recurrent loops, until an OS signal or a cancelled
// context asks it to stop.
//
// It is a much smaller surface than a general-purpose application
// container: this engine only ever runs one long-lived loop over one
// network, so it keeps the graceful-shutdown signal handling from
// bootstrap/application.go's Run/Shutdown pair without that package's
// dependency-injection container or multi-service lifecycle manager, which
// exist to start and stop several independently pluggable services — a
// concern this engine has no second service to exercise.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sneuron/sneuron/config"
	"github.com/sneuron/sneuron/coordinator"
	"github.com/sneuron/sneuron/core"
)

// Engine drives a network's activation ticks for the lifetime of a process.
type Engine struct {
	network coordinator.Network
	logger  core.Logger

	mu           sync.Mutex
	running      bool
	tuning       config.Tuning
	shutdownChan chan os.Signal
}

// NewEngine builds an Engine over network, using cfg's Tuning block for
// per-tick timing (think-time budget) and logger for its own trace, or
// core.DefaultLogger when logger is nil.
func NewEngine(network coordinator.Network, cfg *config.Config, logger core.Logger) *Engine {
	if logger == nil {
		logger = core.DefaultLogger()
	}
	return &Engine{
		network:      network,
		tuning:       cfg.Tuning,
		logger:       logger,
		shutdownChan: make(chan os.Signal, 1),
	}
}

// Run ticks the network until ctx is cancelled or the process receives
// SIGINT/SIGTERM, then tears the network down gracefully via
// coordinator.Kill. The first tick also primes recurrent loops, so purely
// recurrent cycles see a full barrier on cycle zero.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("runtime: engine already running")
	}
	e.running = true
	e.mu.Unlock()

	signal.Notify(e.shutdownChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(e.shutdownChan)

	if err := coordinator.PrimeRecurrentLoops(ctx, e.network); err != nil {
		return fmt.Errorf("runtime: priming recurrent loops: %w", err)
	}

	for {
		select {
		case <-e.shutdownChan:
			e.logger("runtime: received shutdown signal, stopping")
			return e.shutdown()
		case <-ctx.Done():
			e.logger("runtime: context cancelled, stopping")
			return e.shutdown()
		default:
		}

		if err := e.tick(ctx); err != nil {
			e.logger("runtime: tick failed: %v", err)
			return e.shutdown()
		}
	}
}

func (e *Engine) tick(ctx context.Context) error {
	if err := coordinator.Synchronize(ctx, e.network); err != nil {
		return fmt.Errorf("synchronizing sensors: %w", err)
	}

	e.mu.Lock()
	thinkTime := e.tuning.DefaultThinkTime
	e.mu.Unlock()

	if _, err := coordinator.WaitOnNetwork(ctx, e.network, true, &thinkTime); err != nil {
		return fmt.Errorf("waiting for quiescence: %w", err)
	}

	if err := coordinator.ActivateActuators(ctx, e.network); err != nil {
		return fmt.Errorf("activating actuators: %w", err)
	}

	return nil
}

// ApplyTuning hot-swaps the think-time budget a running engine uses on its
// next tick and pushes the reloaded status-probe timeout onto every live
// node in the network, so a config.Watcher callback can keep both in sync
// with the file on disk without restarting the process. Mailbox capacity
// and poll interval are fixed at node construction and cannot be applied
// this way; a reload touching those fields only takes effect after a
// restart.
func (e *Engine) ApplyTuning(t config.Tuning) {
	e.mu.Lock()
	e.tuning = t
	e.mu.Unlock()

	for _, n := range e.network {
		n.SetProbeTimeout(t.StatusProbeTimeout)
	}
	e.logger("runtime: applied reloaded tuning (think-time=%s, probe-timeout=%s)", t.DefaultThinkTime, t.StatusProbeTimeout)
}

func (e *Engine) shutdown() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := coordinator.Kill(shutdownCtx, e.network); err != nil {
		return fmt.Errorf("runtime: shutdown: %w", err)
	}
	return nil
}
