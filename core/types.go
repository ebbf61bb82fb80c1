package core

import "context"

// NodeKind discriminates the three actor roles sharing the Node skeleton.
type NodeKind uint8

const (
	KindSensor NodeKind = iota
	KindNeuron
	KindActuator
)

// String returns the lower-case name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindNeuron:
		return "neuron"
	case KindActuator:
		return "actuator"
	default:
		return "unknown"
	}
}

// NodeType carries the discriminant plus the one field that only makes sense
// for a sensor: its fan-out, i.e. the number of outbound connections, which
// fixes the expected sync-function input vector length.
type NodeType struct {
	Kind NodeKind

	// FanOut is meaningful only when Kind == KindSensor.
	FanOut int
}

// LearningKind selects the weight-update rule applied after a neuron fires.
type LearningKind uint8

const (
	NoLearning LearningKind = iota
	Hebbian
)

// LearningAlgorithm is NoLearning, or Hebbian with its learning rate.
type LearningAlgorithm struct {
	Kind LearningKind
	Rate float64
}

// ActivationOption is carried on every ReceiveInput / Sync dispatch and
// decides whether the recipient should attempt to fire once the value has
// been placed in its barrier.
type ActivationOption uint8

const (
	ActivateIfBarrierIsFull ActivationOption = iota
	ActivateIfNeuronHasOneConnection
	DoNotActivate
)

// NodeStatus is the reply to GetNodeStatus.
type NodeStatus uint8

const (
	NodeIsReady NodeStatus = iota
	NodeIsBusy
)

// String renders the status for logging.
func (s NodeStatus) String() string {
	if s == NodeIsReady {
		return "ready"
	}
	return "busy"
}

// InactiveConnection is the persisted form of one inbound connection, as
// reported by GetNodeRecord and consumed by construct.Hydrate.
type InactiveConnection struct {
	SourceNodeId   NodeId
	Weight         float64
	ConnectionOrder int
}

// NodeRecord is the persistent, round-trippable form of a node's state. It
// is recomputed from live actor state on demand by GetNodeRecord and is the
// only representation construct.Hydrate needs to rebuild a live actor.
type NodeRecord struct {
	NodeId   NodeId
	Layer    int
	NodeType NodeType

	InboundConnections map[ConnectionId]InactiveConnection

	Bias                 *float64
	ActivationFunctionId *string
	SyncFunctionId       *string
	OutputHookId         *string
	MaximumVectorLength  *int

	LearningAlgorithm LearningAlgorithm
}

// SyncFunc pulls a data vector for a sensor once per Sync message. It may
// return a vector shorter or longer than the sensor's fan-out; the node
// inflates or truncates it to line up with outbound connections.
type SyncFunc func(ctx context.Context) ([]float64, error)

// OutputHook is invoked once per actuator firing with the sum of the
// actuator's barrier values, whether or not the actuator is cortex-gated.
type OutputHook func(ctx context.Context, value float64) error

// ActivationFunc is a pure scalar activation function applied by a neuron.
type ActivationFunc func(float64) float64

// Logger is the side-band textual trace sink described by the engine's
// external interfaces. Implementations are not required to be safe for
// concurrent use unless documented otherwise; DefaultLogger is.
type Logger func(format string, args ...any)
