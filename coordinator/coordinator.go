// Package coordinator implements the network-level coordination primitives
// an external cortex uses to drive synchronised activation ticks: waiting
// for quiescence, broadcasting synchronisation to every sensor, globally
// activating gated actuators, and tearing a network down.
//
// Every broadcast here follows the same shape the teacher actor framework
// uses to fan work out across many actors at once: a sync.WaitGroup gates
// a goroutine per node, mirroring najoast-sngo/core/system.go's actor
// shutdown fan-out, rather than a generic errgroup dependency this corpus
// never actually reaches for.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sneuron/sneuron/core"
)

// Network is a live-network handle: the flat set of node actors an
// external cortex addresses as a unit.
type Network []*core.Node

// pollRetryInterval is how long WaitOnNetwork waits between unready polls.
// It is intentionally shorter than the node's own mailbox poll interval so
// quiescence is noticed promptly once it occurs.
const pollRetryInterval = 20 * time.Millisecond

// WaitOnNetwork polls every node with GetNodeStatus until all are ready or
// thinkTime elapses. A nil thinkTime means wait indefinitely (bounded only
// by ctx). An unresponsive node is fatal: the status probe itself already
// enforces the ~500ms node-level timeout, so any error here is surfaced to
// the caller rather than retried.
func WaitOnNetwork(ctx context.Context, network Network, checkActuators bool, thinkTime *time.Duration) (bool, error) {
	var deadline <-chan time.Time
	if thinkTime != nil {
		timer := time.NewTimer(*thinkTime)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		ready, err := pollOnce(ctx, network, checkActuators)
		if err != nil {
			return false, err
		}
		if ready {
			return true, nil
		}

		select {
		case <-deadline:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollRetryInterval):
		}
	}
}

func pollOnce(ctx context.Context, network Network, checkActuators bool) (bool, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		allReady = true
		firstErr error
	)

	for _, node := range network {
		wg.Add(1)
		go func(n *core.Node) {
			defer wg.Done()

			status, err := n.GetNodeStatus(ctx, checkActuators)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("coordinator: node %s: %w", n.ID(), core.ErrInstanceUnavailable)
				}
				return
			}
			if status != core.NodeIsReady {
				allReady = false
			}
		}(node)
	}
	wg.Wait()

	if firstErr != nil {
		return false, firstErr
	}
	return allReady, nil
}

// broadcast runs fn against every node in the network in parallel, waits
// for all of them, and returns the first error encountered (if any).
func broadcast(network Network, fn func(*core.Node) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, node := range network {
		wg.Add(1)
		go func(n *core.Node) {
			defer wg.Done()
			if err := fn(n); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(node)
	}
	wg.Wait()
	return firstErr
}

// Synchronize broadcasts Sync to every node in parallel. Sensors initiate
// their fan-out; neurons and actuators no-op.
func Synchronize(ctx context.Context, network Network) error {
	return broadcast(network, func(n *core.Node) error {
		return n.Sync(ctx)
	})
}

// ActivateActuators broadcasts ActivateActuator to every node in parallel.
// Only cortex-gated actuators that are in the ready sub-state will
// actually fire their output hook.
func ActivateActuators(ctx context.Context, network Network) error {
	return broadcast(network, func(n *core.Node) error {
		return n.ActivateActuator(ctx)
	})
}

// PrimeRecurrentLoops broadcasts SendRecurrentSignals to every node in
// parallel, seeding purely-recurrent loops that would otherwise never see
// a full barrier at cycle zero.
func PrimeRecurrentLoops(ctx context.Context, network Network) error {
	return broadcast(network, func(n *core.Node) error {
		return n.SendRecurrentSignals(ctx)
	})
}

// Kill waits for quiescence (without the actuator-readiness check) and
// then broadcasts Die to every node in parallel, tearing the network down.
func Kill(ctx context.Context, network Network) error {
	if _, err := WaitOnNetwork(ctx, network, false, nil); err != nil {
		return fmt.Errorf("coordinator: waiting for quiescence before kill: %w", err)
	}
	return broadcast(network, func(n *core.Node) error {
		return n.Die(ctx)
	})
}
