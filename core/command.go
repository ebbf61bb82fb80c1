package core

import "context"

// command is the sealed union of messages a node actor's mailbox accepts.
// Each concrete type below corresponds to exactly one row of the message
// table in the node actor specification; the actor's message loop resolves
// which to run with a type switch rather than a discriminant field, per the
// "discriminated node kinds vs inheritance" design note.
type command interface {
	isCommand()
}

type syncCmd struct{ ctx context.Context }

func (syncCmd) isCommand() {}

type receiveInputCmd struct {
	ctx    context.Context
	connID ConnectionId
	value  float64
	option ActivationOption
}

func (receiveInputCmd) isCommand() {}

// addOutboundConnectionCmd asks the receiving node to wire a fresh outbound
// connection to target and, as part of handling it, perform the inbound
// handshake with target before replying.
type addOutboundConnectionCmd struct {
	ctx    context.Context
	target *Node
	weight float64
	reply  chan addOutboundResult
}

func (addOutboundConnectionCmd) isCommand() {}

type addOutboundResult struct {
	connID ConnectionId
	err    error
}

// InboundConnectionSpec is the payload of an AddInboundConnection handshake:
// the identity and weight the source has already committed to for this
// connection.
type InboundConnectionSpec struct {
	ConnectionId    ConnectionId
	ConnectionOrder int
	FromNodeId      NodeId
	InitialWeight   float64
}

type addInboundConnectionCmd struct {
	ctx  context.Context
	spec InboundConnectionSpec

	reply chan error
}

func (addInboundConnectionCmd) isCommand() {}

type getNodeRecordCmd struct {
	ctx   context.Context
	reply chan NodeRecord
}

func (getNodeRecordCmd) isCommand() {}

type dieCmd struct {
	reply chan struct{}
}

func (dieCmd) isCommand() {}

type registerCortexCmd struct{ ctx context.Context }

func (registerCortexCmd) isCommand() {}

type activateActuatorCmd struct{ ctx context.Context }

func (activateActuatorCmd) isCommand() {}

type getNodeStatusCmd struct {
	checkActuators bool
	reply          chan NodeStatus
}

func (getNodeStatusCmd) isCommand() {}

type resetNeuronCmd struct{ ctx context.Context }

func (resetNeuronCmd) isCommand() {}

type sendRecurrentSignalsCmd struct{ ctx context.Context }

func (sendRecurrentSignalsCmd) isCommand() {}

// restoreInboundConnectionsCmd wholesale-replaces the inbound list. It is
// used only by construct.Hydrate to reseed a node rebuilt from a persisted
// NodeRecord, where there is no live source actor to run the normal
// AddOutboundConnection/AddInboundConnection handshake against.
type restoreInboundConnectionsCmd struct {
	ctx     context.Context
	entries []InboundConnectionSpec
	reply   chan error
}

func (restoreInboundConnectionsCmd) isCommand() {}
