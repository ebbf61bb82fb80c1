package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// inboundConn is the live form of an inbound connection: immutable identity
// plus the mutable weight learning acts on.
type inboundConn struct {
	id            ConnectionId
	order         int
	fromNodeId    NodeId
	initialWeight float64
	weight        float64
}

// outboundConn is the live form of an outbound connection, carrying a direct
// handle to the target actor so firing never needs a lookup.
type outboundConn struct {
	id            ConnectionId
	order         int
	initialWeight float64
	targetId      NodeId
	target        *Node
}

// gatingState models the optional cortex-gating flag on an actuator:
// gatingNone ("no cortex registered"), gatingWaiting ("cortex exists, do
// not fire on barrier satisfaction"), gatingReady ("ready to fire on the
// next ActivateActuator").
type gatingState uint8

const (
	gatingNone gatingState = iota
	gatingWaiting
	gatingReady
)

// Options configures a new Node. Only the fields relevant to the node's Kind
// are consulted; the rest are ignored.
type Options struct {
	Id    NodeId
	Kind  NodeKind
	Layer int

	Bias              *float64
	ActivationFn      ActivationFunc
	ActivationFnId    string
	LearningAlgorithm LearningAlgorithm

	SyncFn   SyncFunc
	SyncFnId string

	OutputHook   OutputHook
	OutputHookId string

	Logger             Logger
	MailboxSize        int
	MailboxPollInterval time.Duration
	ProbeTimeout       time.Duration
}

const (
	defaultMailboxSize        = 64
	defaultMailboxPollInterval = 250 * time.Millisecond
	defaultProbeTimeout        = 500 * time.Millisecond
)

// Node is the uniform actor behind sensors, neurons, and actuators. The
// fields under the actor-private marker below are touched only from inside
// run(), the single goroutine driving the actor's message loop, and
// therefore need no locking; the atomics above it are read and written from
// other goroutines.
type Node struct {
	id    NodeId
	kind  NodeKind
	layer int

	mailbox        chan command
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	pollInterval   time.Duration
	probeTimeoutNs int64 // atomic: read by concurrent callers in callWithProbe, hot-swappable via SetProbeTimeout
	logger         Logger

	started int32 // atomic bool
	stopped int32 // atomic bool

	// --- actor-private state (loop goroutine only) ---
	inbound           []inboundConn
	outbound          []outboundConn
	recurrentOutbound []outboundConn
	barrier           map[ConnectionId]float64
	overflow          map[ConnectionId]float64
	maxVectorLen      int

	hasBias        bool
	bias           float64
	activationFn   ActivationFunc
	activationFnId string
	learning       LearningAlgorithm

	syncFn   SyncFunc
	syncFnId string

	outputHook   OutputHook
	outputHookId string

	gating gatingState
}

// New constructs a node actor in the stopped state; call Start to begin its
// message loop.
func New(opts Options) *Node {
	id := opts.Id
	if id.IsZero() {
		id = NewNodeId()
	}

	logger := opts.Logger
	if logger == nil {
		logger = DefaultLogger()
	}

	mailboxSize := opts.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}

	pollInterval := opts.MailboxPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultMailboxPollInterval
	}

	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	activationFn := opts.ActivationFn
	learning := opts.LearningAlgorithm

	gating := gatingNone

	n := &Node{
		id:             id,
		kind:           opts.Kind,
		layer:          opts.Layer,
		mailbox:        make(chan command, mailboxSize),
		pollInterval:   pollInterval,
		probeTimeoutNs: int64(probeTimeout),
		logger:         logger,
		barrier:        make(map[ConnectionId]float64),
		overflow:       make(map[ConnectionId]float64),
		activationFn:   activationFn,
		activationFnId: opts.ActivationFnId,
		learning:       learning,
		syncFn:         opts.SyncFn,
		syncFnId:       opts.SyncFnId,
		outputHook:     opts.OutputHook,
		outputHookId:   opts.OutputHookId,
		gating:         gating,
	}

	if opts.Bias != nil {
		n.hasBias = true
		n.bias = *opts.Bias
	}

	return n
}

// ID returns the node's stable identifier.
func (n *Node) ID() NodeId { return n.id }

// Kind returns the node's role.
func (n *Node) Kind() NodeKind { return n.kind }

// Layer returns the node's topological layer, used by recurrent
// classification.
func (n *Node) Layer() int { return n.layer }

// ProbeTimeout returns the budget callWithProbe currently waits for a
// command reply before declaring the node unavailable.
func (n *Node) ProbeTimeout() time.Duration {
	return time.Duration(atomic.LoadInt64(&n.probeTimeoutNs))
}

// SetProbeTimeout hot-swaps the probe timeout a running node enforces on
// every subsequent AddOutboundConnection/AddInboundConnection/GetNodeRecord/
// Die/GetNodeStatus/RestoreInboundConnections call, so a reloaded tuning
// value takes effect without restarting the actor. A non-positive duration
// is ignored rather than disabling the timeout.
func (n *Node) SetProbeTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	atomic.StoreInt64(&n.probeTimeoutNs, int64(d))
}

// Start begins the node's message processing loop. It must be called
// exactly once.
func (n *Node) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&n.started, 0, 1) {
		return fmt.Errorf("core: node %s already started", n.id)
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.ctx = runCtx
	n.cancel = cancel

	n.wg.Add(1)
	go n.run()
	return nil
}

// run is the actor's message loop. It polls the mailbox with a bounded
// wait so the actor can periodically notice cancellation without busy
// waiting, and serially dispatches every command it dequeues.
func (n *Node) run() {
	defer n.wg.Done()
	defer atomic.StoreInt32(&n.stopped, 1)
	defer n.cancel()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd, ok := <-n.mailbox:
			if !ok {
				return
			}
			if stop := n.dispatchRecovering(cmd); stop {
				return
			}
		case <-ticker.C:
			// Liveness tick; nothing to do but re-enter the loop.
		case <-n.ctx.Done():
			return
		}
	}
}

// dispatchRecovering runs dispatch with a panic guard: a node-actor
// exception is forwarded to the logger rather than crashing the process,
// and the actor terminates rather than attempting an automatic restart, per
// the no-automatic-restart error handling policy.
func (n *Node) dispatchRecovering(cmd command) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger("core: node %s: panic handling %T: %v", n.id, cmd, r)
			stop = true
		}
	}()
	return n.dispatch(cmd)
}

// dispatch runs one command and reports whether the actor loop should exit.
func (n *Node) dispatch(cmd command) (stop bool) {
	switch c := cmd.(type) {
	case syncCmd:
		n.handleSync(c.ctx)
	case receiveInputCmd:
		if n.handleReceiveInput(c) {
			return true
		}
	case addOutboundConnectionCmd:
		n.handleAddOutboundConnection(c)
	case addInboundConnectionCmd:
		n.handleAddInboundConnection(c)
	case getNodeRecordCmd:
		n.handleGetNodeRecord(c)
	case dieCmd:
		close(c.reply)
		return true
	case registerCortexCmd:
		n.handleRegisterCortex()
	case activateActuatorCmd:
		n.handleActivateActuator(c.ctx)
	case getNodeStatusCmd:
		n.handleGetNodeStatus(c)
	case resetNeuronCmd:
		n.handleResetNeuron()
	case sendRecurrentSignalsCmd:
		n.handleSendRecurrentSignals(c.ctx)
	case restoreInboundConnectionsCmd:
		n.handleRestoreInboundConnections(c)
	default:
		n.logger("core: node %s received unknown command %T", n.id, cmd)
	}
	return false
}

// enqueue posts a one-way command to the mailbox, failing fast if the actor
// has already stopped. While the mailbox is full it blocks until there is
// room, ctx is done, or the actor stops.
func (n *Node) enqueue(ctx context.Context, cmd command) error {
	if atomic.LoadInt32(&n.stopped) == 1 {
		return ErrNodeStopped
	}
	select {
	case n.mailbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.ctx.Done():
		return ErrNodeStopped
	}
}

// callWithProbe posts cmd and waits on wait() for its reply, surfacing
// ErrInstanceUnavailable if neither the reply nor a cancellation arrives
// within the node's configured probe timeout. On timeout the wait()
// goroutine is left blocked on its reply channel; this only happens once
// the actor is already considered unavailable, so the leak is bounded by
// how often callers hit that exceptional path.
func (n *Node) callWithProbe(ctx context.Context, cmd command, wait func() error) error {
	if err := n.enqueue(ctx, cmd); err != nil {
		return err
	}

	timer := time.NewTimer(n.ProbeTimeout())
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- wait() }()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("core: node %s: %w", n.id, ErrInstanceUnavailable)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- public, typed API mirroring the message table ----

// Sync asks a sensor to pull its data vector and dispatch it to every
// outbound connection. It is a no-op on neurons and actuators.
func (n *Node) Sync(ctx context.Context) error {
	return n.enqueue(ctx, syncCmd{ctx: ctx})
}

// ReceiveInput delivers one synapse on the named connection.
func (n *Node) ReceiveInput(ctx context.Context, connID ConnectionId, value float64, option ActivationOption) error {
	return n.enqueue(ctx, receiveInputCmd{ctx: ctx, connID: connID, value: value, option: option})
}

// AddOutboundConnection wires a fresh outbound connection from n to target,
// performing the synchronous two-phase handshake described in the wiring
// specification: n mints a ConnectionId, classifies it as recurrent or not,
// and blocks until target has acknowledged the corresponding inbound
// connection before returning.
func (n *Node) AddOutboundConnection(ctx context.Context, target *Node, weight float64) (ConnectionId, error) {
	reply := make(chan addOutboundResult, 1)
	cmd := addOutboundConnectionCmd{ctx: ctx, target: target, weight: weight, reply: reply}

	var res addOutboundResult
	err := n.callWithProbe(ctx, cmd, func() error {
		res = <-reply
		return res.err
	})
	if err != nil {
		return ConnectionId{}, err
	}
	return res.connID, nil
}

// AddInboundConnection appends a new inbound connection, acknowledging once
// it has been committed to the node's inbound list.
func (n *Node) AddInboundConnection(ctx context.Context, spec InboundConnectionSpec) error {
	reply := make(chan error, 1)
	cmd := addInboundConnectionCmd{ctx: ctx, spec: spec, reply: reply}
	return n.callWithProbe(ctx, cmd, func() error {
		return <-reply
	})
}

// GetNodeRecord takes a consistent snapshot of the node's current state and
// returns it as a NodeRecord.
func (n *Node) GetNodeRecord(ctx context.Context) (NodeRecord, error) {
	reply := make(chan NodeRecord, 1)
	cmd := getNodeRecordCmd{ctx: ctx, reply: reply}

	var record NodeRecord
	err := n.callWithProbe(ctx, cmd, func() error {
		record = <-reply
		return nil
	})
	return record, err
}

// Die stops the actor after acknowledging the request.
func (n *Node) Die(ctx context.Context) error {
	reply := make(chan struct{})
	cmd := dieCmd{reply: reply}

	err := n.callWithProbe(ctx, cmd, func() error {
		<-reply
		return nil
	})
	atomic.StoreInt32(&n.stopped, 1)
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	return err
}

// RegisterCortex transitions an actuator's gating flag from None to
// Some(false); a no-op on sensors and neurons.
func (n *Node) RegisterCortex(ctx context.Context) error {
	return n.enqueue(ctx, registerCortexCmd{ctx: ctx})
}

// ActivateActuator fires a cortex-gated actuator's output hook if it is in
// the ready sub-state; ignored otherwise and on non-actuators.
func (n *Node) ActivateActuator(ctx context.Context) error {
	return n.enqueue(ctx, activateActuatorCmd{ctx: ctx})
}

// GetNodeStatus reports whether the node is quiescent: its mailbox is empty
// and, when checkActuators is set, any registered cortex gate is in its
// ready-to-fire sub-state.
func (n *Node) GetNodeStatus(ctx context.Context, checkActuators bool) (NodeStatus, error) {
	reply := make(chan NodeStatus, 1)
	cmd := getNodeStatusCmd{checkActuators: checkActuators, reply: reply}

	var status NodeStatus
	err := n.callWithProbe(ctx, cmd, func() error {
		status = <-reply
		return nil
	})
	return status, err
}

// ResetNeuron restores every inbound weight to its InitialWeight, clears
// both barriers, and drains the mailbox of anything queued before the
// reset.
func (n *Node) ResetNeuron(ctx context.Context) error {
	return n.enqueue(ctx, resetNeuronCmd{ctx: ctx})
}

// SendRecurrentSignals posts a zero-valued synapse, with the
// one-connection activation option, along every recurrent outbound
// connection — used by the coordinator to seed purely-recurrent loops that
// would otherwise never see a full barrier.
func (n *Node) SendRecurrentSignals(ctx context.Context) error {
	return n.enqueue(ctx, sendRecurrentSignalsCmd{ctx: ctx})
}

// RestoreInboundConnections wholesale-replaces the inbound list from a set
// of connection specs, initializing each connection's current weight to its
// recorded InitialWeight. It is used only by construct.Hydrate when
// rebuilding a node from a persisted NodeRecord, where no live source actor
// exists to run the normal wiring handshake against.
func (n *Node) RestoreInboundConnections(ctx context.Context, entries []InboundConnectionSpec) error {
	reply := make(chan error, 1)
	cmd := restoreInboundConnectionsCmd{ctx: ctx, entries: entries, reply: reply}
	return n.callWithProbe(ctx, cmd, func() error {
		return <-reply
	})
}

// sortedOutbound returns a copy of the outbound list ordered by
// ConnectionOrder, used when dispatching a sensor's inflated data vector.
func (n *Node) sortedOutbound() []outboundConn {
	out := append([]outboundConn(nil), n.outbound...)
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}
