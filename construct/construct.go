// Package construct builds fresh NodeRecords and rehydrates live actors
// from persisted ones. It is the only place outside core that knows the
// shape of a NodeRecord, mirroring the way najoast-sngo's handle.go keeps
// construction logic next to the type it builds rather than scattering
// field-by-field literals across callers.
package construct

import (
	"context"
	"fmt"

	"github.com/sneuron/sneuron/activation"
	"github.com/sneuron/sneuron/core"
)

// NewSensorRecord builds the record for a sensor with fanOut outbound
// connections still to be wired, pulling its data vector from the sync
// function registered under syncFunctionID.
func NewSensorRecord(layer, fanOut int, syncFunctionID string) core.NodeRecord {
	rec := core.NodeRecord{
		NodeId:             core.NewNodeId(),
		Layer:              layer,
		NodeType:           core.NodeType{Kind: core.KindSensor, FanOut: fanOut},
		InboundConnections: map[core.ConnectionId]core.InactiveConnection{},
		LearningAlgorithm:  core.LearningAlgorithm{Kind: core.NoLearning},
	}
	if syncFunctionID != "" {
		id := syncFunctionID
		rec.SyncFunctionId = &id
	}
	return rec
}

// NewNeuronRecord builds the record for a neuron with the given bias and
// activation function, still unwired on both sides.
func NewNeuronRecord(layer int, bias float64, activationFunctionID string, learning core.LearningAlgorithm) core.NodeRecord {
	rec := core.NodeRecord{
		NodeId:             core.NewNodeId(),
		Layer:              layer,
		NodeType:           core.NodeType{Kind: core.KindNeuron},
		InboundConnections: map[core.ConnectionId]core.InactiveConnection{},
		LearningAlgorithm:  learning,
	}
	rec.Bias = &bias
	if activationFunctionID != "" {
		id := activationFunctionID
		rec.ActivationFunctionId = &id
	}
	return rec
}

// NewActuatorRecord builds the record for an actuator whose output is
// delivered through the hook registered under outputHookID.
func NewActuatorRecord(layer int, outputHookID string) core.NodeRecord {
	rec := core.NodeRecord{
		NodeId:             core.NewNodeId(),
		Layer:              layer,
		NodeType:           core.NodeType{Kind: core.KindActuator},
		InboundConnections: map[core.ConnectionId]core.InactiveConnection{},
		LearningAlgorithm:  core.LearningAlgorithm{Kind: core.NoLearning},
	}
	if outputHookID != "" {
		id := outputHookID
		rec.OutputHookId = &id
	}
	return rec
}

// Hydrate rebuilds a live, started actor from a persisted NodeRecord. It
// resolves ActivationFunctionId against reg, and SyncFunctionId /
// OutputHookId against the caller-supplied syncFns / outputHooks tables,
// since neither a func value nor a live channel can round-trip through a
// record.
//
// Hydrate restores the node's own inbound connection list (with each
// connection's current weight reseated as its new InitialWeight, since a
// persisted InactiveConnection carries only one weight, not separate
// current/initial values), using the connection ids already present in the
// record rather than minting new ones. It does not, and cannot, recreate
// this node's outbound wiring: a NodeRecord only captures what a node
// receives. Reconstructing a whole graph's outbound edges from a set of
// hydrated records is a persistence/wiring concern one layer up, and must
// not be done by replaying wiring.ConnectNodeToNode against an
// already-hydrated target — that mints a second, unfillable inbound
// connection alongside the one RestoreInboundConnections already restored.
func Hydrate(
	ctx context.Context,
	rec core.NodeRecord,
	reg *activation.Registry,
	syncFns map[string]core.SyncFunc,
	outputHooks map[string]core.OutputHook,
	logger core.Logger,
) (*core.Node, error) {
	opts := core.Options{
		Id:                rec.NodeId,
		Kind:              rec.NodeType.Kind,
		Layer:             rec.Layer,
		LearningAlgorithm: rec.LearningAlgorithm,
		Logger:            logger,
	}

	if rec.Bias != nil {
		b := *rec.Bias
		opts.Bias = &b
	}

	if rec.ActivationFunctionId != nil {
		opts.ActivationFnId = *rec.ActivationFunctionId
		if reg == nil {
			return nil, fmt.Errorf("construct: hydrate %s: activation registry required", rec.NodeId)
		}
		fn, err := reg.Lookup(*rec.ActivationFunctionId)
		if err != nil {
			return nil, fmt.Errorf("construct: hydrate %s: %w", rec.NodeId, err)
		}
		opts.ActivationFn = core.ActivationFunc(fn)
	}

	if rec.SyncFunctionId != nil {
		opts.SyncFnId = *rec.SyncFunctionId
		fn, ok := syncFns[*rec.SyncFunctionId]
		if !ok {
			return nil, fmt.Errorf("construct: hydrate %s: unknown sync function %q", rec.NodeId, *rec.SyncFunctionId)
		}
		opts.SyncFn = fn
	}

	if rec.OutputHookId != nil {
		opts.OutputHookId = *rec.OutputHookId
		fn, ok := outputHooks[*rec.OutputHookId]
		if !ok {
			return nil, fmt.Errorf("construct: hydrate %s: unknown output hook %q", rec.NodeId, *rec.OutputHookId)
		}
		opts.OutputHook = fn
	}

	node := core.New(opts)
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("construct: hydrate %s: %w", rec.NodeId, err)
	}

	if len(rec.InboundConnections) > 0 {
		entries := make([]core.InboundConnectionSpec, 0, len(rec.InboundConnections))
		for connID, ic := range rec.InboundConnections {
			entries = append(entries, core.InboundConnectionSpec{
				ConnectionId:    connID,
				ConnectionOrder: ic.ConnectionOrder,
				FromNodeId:      ic.SourceNodeId,
				InitialWeight:   ic.Weight,
			})
		}
		if err := node.RestoreInboundConnections(ctx, entries); err != nil {
			return nil, fmt.Errorf("construct: hydrate %s: restoring inbound connections: %w", rec.NodeId, err)
		}
	}

	return node, nil
}
