// Package wiring implements the graph construction primitives layered over
// the node actor: connecting one node's output to another's input with a
// weight, and the sensor fan-out special case that assigns a stable
// ordinal to each connection a sensor originates.
//
// ConnectNodeToNode synchronously posts AddOutboundConnection to the source
// and waits for the inner AddInboundConnection acknowledgement from the
// target before returning, mirroring the Call-style synchronous handshake
// the teacher actor framework uses for request/response round trips — the
// two-phase commit is what lets a caller trust that, once wiring returns,
// both endpoints agree on the connection's identity and weight.
package wiring

import (
	"context"
	"fmt"

	"github.com/sneuron/sneuron/core"
)

// ConnectNodeToNode wires a weighted connection from source to target and
// blocks until target has acknowledged the inbound half of the handshake.
func ConnectNodeToNode(ctx context.Context, source, target *core.Node, weight float64) (core.ConnectionId, error) {
	connID, err := source.AddOutboundConnection(ctx, target, weight)
	if err != nil {
		return core.ConnectionId{}, fmt.Errorf("wiring: connect %s -> %s: %w", source.ID(), target.ID(), err)
	}
	return connID, nil
}

// ConnectNodeToActuator wires source to an actuator target with the weight
// pinned to zero, per the actuator's definition: it sums its barrier
// rather than weighting it.
func ConnectNodeToActuator(ctx context.Context, source, actuator *core.Node) (core.ConnectionId, error) {
	return ConnectNodeToNode(ctx, source, actuator, 0)
}

// ConnectSensorToNode wires one connection per weight in weights, in order,
// from sensor to target. Because AddOutboundConnection assigns a sensor's
// ConnectionOrder as len(outbound) at the moment of the call, issuing these
// sequentially (rather than in parallel) is what gives the sensor's fan-out
// a stable ordinal that later determines input-vector alignment.
func ConnectSensorToNode(ctx context.Context, sensor, target *core.Node, weights []float64) ([]core.ConnectionId, error) {
	ids := make([]core.ConnectionId, 0, len(weights))
	for i, w := range weights {
		id, err := ConnectNodeToNode(ctx, sensor, target, w)
		if err != nil {
			return nil, fmt.Errorf("wiring: sensor fan-out connection %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
