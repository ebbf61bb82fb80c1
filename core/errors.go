package core

import "errors"

// Sentinel errors of the node actor. ErrInstanceUnavailable and
// ErrNodeStopped are returned to callers, who should compare against them
// with errors.Is rather than matching error strings. The other three are
// reported only through the node's logger: Sync and ReceiveInput return
// once the command is queued, so their callers never receive them.
var (
	// ErrInstanceUnavailable is returned when a status or command reply
	// does not arrive within the configured probe timeout.
	ErrInstanceUnavailable = errors.New("core: neuron instance unavailable")

	// ErrSensorHasNoOutboundConnections is raised when a Sync message
	// arrives at a sensor with an empty outbound connection list.
	ErrSensorHasNoOutboundConnections = errors.New("core: sensor has no outbound connections")

	// ErrMissingInboundConnection is raised when a satisfied barrier is
	// missing an entry for one of the node's inbound connections during
	// neuron activation. This indicates a structural bug, not a transient
	// condition.
	ErrMissingInboundConnection = errors.New("core: missing inbound connection in barrier")

	// ErrSensorReceivedInput is raised when a ReceiveInput message is
	// delivered to a sensor, which never has inbound connections.
	ErrSensorReceivedInput = errors.New("core: sensor received input")

	// ErrNodeStopped is returned by any operation attempted against a
	// node actor that has already processed Die.
	ErrNodeStopped = errors.New("core: node is stopped")
)
