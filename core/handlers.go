package core

import (
	"context"
	"fmt"
	"math"
)

// handleSync implements the Sync row of the message table: sensors pull a
// data vector and fan it out; neurons and actuators no-op.
func (n *Node) handleSync(ctx context.Context) {
	if n.kind != KindSensor {
		return
	}
	if len(n.outbound) == 0 {
		n.logger("core: sensor %s: %v", n.id, ErrSensorHasNoOutboundConnections)
		return
	}
	if n.syncFn == nil {
		n.logger("core: sensor %s has no sync function configured", n.id)
		return
	}

	data, err := n.syncFn(ctx)
	if err != nil {
		n.logger("core: sensor %s: sync function failed: %v", n.id, err)
		return
	}
	if len(data) > n.maxVectorLen {
		n.maxVectorLen = len(data)
	}

	for i, oc := range n.sortedOutbound() {
		var v float64
		if i < len(data) {
			v = data[i]
		}
		if err := oc.target.ReceiveInput(context.Background(), oc.id, v, ActivateIfBarrierIsFull); err != nil {
			n.logger("core: sensor %s: dispatch to %s failed: %v", n.id, oc.targetId, err)
		}
	}
}

// handleReceiveInput implements the barrier accumulation and activation
// decision rules. It returns true if the node hit a fatal structural error
// and must terminate.
func (n *Node) handleReceiveInput(c receiveInputCmd) (fatal bool) {
	if n.kind == KindSensor {
		n.logger("core: sensor %s: %v", n.id, ErrSensorReceivedInput)
		return false
	}

	if _, full := n.barrier[c.connID]; full {
		n.overflow[c.connID] = c.value
	} else {
		n.barrier[c.connID] = c.value
	}

	doFire := (c.option == ActivateIfBarrierIsFull ||
		(c.option == ActivateIfNeuronHasOneConnection && len(n.inbound) == 1)) &&
		n.barrierSatisfied()
	if !doFire {
		return false
	}

	switch n.kind {
	case KindNeuron:
		return n.activateNeuron()
	case KindActuator:
		n.activateActuatorFire(c.ctx)
	}
	return false
}

// barrierSatisfied reports whether the current barrier holds a synapse for
// every inbound connection.
func (n *Node) barrierSatisfied() bool {
	for _, ic := range n.inbound {
		if _, ok := n.barrier[ic.id]; !ok {
			return false
		}
	}
	return true
}

// activateNeuron computes the weighted sum over inbound connections in
// their stored order, applies the activation function and learning rule,
// fires the result to every outbound connection, and promotes overflow
// into the current barrier. It returns true if a satisfied barrier was
// missing an entry for one of the node's own inbound connections, which is
// a fatal structural bug.
func (n *Node) activateNeuron() (fatal bool) {
	sum := 0.0
	for _, ic := range n.inbound {
		v, ok := n.barrier[ic.id]
		if !ok {
			n.logger("core: neuron %s: %v (connection %s)", n.id, ErrMissingInboundConnection, ic.id)
			return true
		}
		sum += v * ic.weight
	}

	bias := 0.0
	if n.hasBias {
		bias = n.bias
	}

	activation := n.activationFn
	if activation == nil {
		// Sigmoid is the engine's default activation function.
		activation = func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	}
	output := activation(bias + sum)

	if n.learning.Kind == Hebbian {
		for i := range n.inbound {
			ic := &n.inbound[i]
			input := n.barrier[ic.id]
			ic.weight += n.learning.Rate * input * output
		}
	}

	for _, oc := range n.outbound {
		if err := oc.target.ReceiveInput(context.Background(), oc.id, output, ActivateIfBarrierIsFull); err != nil {
			n.logger("core: neuron %s: dispatch to %s failed: %v", n.id, oc.targetId, err)
		}
	}

	n.barrier = n.overflow
	n.overflow = make(map[ConnectionId]float64)
	return false
}

// activateActuatorFire implements the actuator half of the activation
// decision: fire immediately when there is no cortex, or flip the gating
// flag to "ready" and wait for an explicit ActivateActuator otherwise.
func (n *Node) activateActuatorFire(ctx context.Context) {
	if n.gating == gatingNone {
		n.fireActuator(ctx)
		return
	}
	n.gating = gatingReady
}

func (n *Node) fireActuator(ctx context.Context) {
	sum := 0.0
	for _, v := range n.barrier {
		sum += v
	}
	if n.outputHook != nil {
		if err := n.outputHook(ctx, sum); err != nil {
			n.logger("core: actuator %s: output hook failed: %v", n.id, err)
		}
	}
	n.barrier = n.overflow
	n.overflow = make(map[ConnectionId]float64)
}

func (n *Node) handleAddOutboundConnection(c addOutboundConnectionCmd) {
	connID := NewConnectionId()

	order := 0
	if n.kind == KindSensor {
		order = len(n.outbound)
	}

	oc := outboundConn{
		id:            connID,
		order:         order,
		initialWeight: c.weight,
		targetId:      c.target.ID(),
		target:        c.target,
	}
	n.outbound = append(n.outbound, oc)

	if n.kind == KindNeuron && c.target.Kind() == KindNeuron && n.layer >= c.target.Layer() {
		n.recurrentOutbound = append(n.recurrentOutbound, oc)
	}

	spec := InboundConnectionSpec{
		ConnectionId:    connID,
		ConnectionOrder: order,
		FromNodeId:      n.id,
		InitialWeight:   c.weight,
	}

	var err error
	if c.target == n {
		// A self-edge targets the very actor running this handler. Routing
		// it through the normal cross-actor handshake would deadlock: that
		// handshake waits for this same goroutine to dequeue the inbound
		// command it just posted to its own mailbox, but this goroutine is
		// the one doing the waiting. Commit the inbound half directly.
		n.inbound = append(n.inbound, inboundConn{
			id:            spec.ConnectionId,
			order:         spec.ConnectionOrder,
			fromNodeId:    spec.FromNodeId,
			initialWeight: spec.InitialWeight,
			weight:        spec.InitialWeight,
		})
	} else {
		err = c.target.AddInboundConnection(c.ctx, spec)
		if err != nil {
			err = fmt.Errorf("core: connecting %s to %s: %w", n.id, c.target.ID(), err)
		}
	}
	c.reply <- addOutboundResult{connID: connID, err: err}
}

func (n *Node) handleAddInboundConnection(c addInboundConnectionCmd) {
	n.inbound = append(n.inbound, inboundConn{
		id:            c.spec.ConnectionId,
		order:         c.spec.ConnectionOrder,
		fromNodeId:    c.spec.FromNodeId,
		initialWeight: c.spec.InitialWeight,
		weight:        c.spec.InitialWeight,
	})
	c.reply <- nil
}

func (n *Node) handleGetNodeRecord(c getNodeRecordCmd) {
	inboundSnapshot := make(map[ConnectionId]InactiveConnection, len(n.inbound))
	for _, ic := range n.inbound {
		inboundSnapshot[ic.id] = InactiveConnection{
			SourceNodeId:    ic.fromNodeId,
			Weight:          ic.weight,
			ConnectionOrder: ic.order,
		}
	}

	nodeType := NodeType{Kind: n.kind}
	if n.kind == KindSensor {
		nodeType.FanOut = len(n.outbound)
	}

	rec := NodeRecord{
		NodeId:             n.id,
		Layer:              n.layer,
		NodeType:           nodeType,
		InboundConnections: inboundSnapshot,
		LearningAlgorithm:  n.learning,
	}
	if n.hasBias {
		b := n.bias
		rec.Bias = &b
	}
	if n.activationFnId != "" {
		id := n.activationFnId
		rec.ActivationFunctionId = &id
	}
	if n.syncFnId != "" {
		id := n.syncFnId
		rec.SyncFunctionId = &id
	}
	if n.outputHookId != "" {
		id := n.outputHookId
		rec.OutputHookId = &id
	}
	if n.kind == KindSensor {
		mv := n.maxVectorLen
		rec.MaximumVectorLength = &mv
	}

	// Reply from a detached goroutine: the snapshot above is already a
	// consistent copy taken before any further state transition, so
	// delivering it need not block the actor from handling its next
	// message.
	go func() { c.reply <- rec }()
}

func (n *Node) handleRegisterCortex() {
	if n.kind != KindActuator {
		return
	}
	if n.gating == gatingNone {
		n.gating = gatingWaiting
	}
}

func (n *Node) handleActivateActuator(ctx context.Context) {
	if n.kind != KindActuator {
		return
	}
	if n.gating != gatingReady {
		return
	}
	n.fireActuator(ctx)
	n.gating = gatingWaiting
}

func (n *Node) handleGetNodeStatus(c getNodeStatusCmd) {
	mailboxEmpty := len(n.mailbox) == 0
	ready := mailboxEmpty && (n.kind != KindActuator ||
		n.gating == gatingNone ||
		!c.checkActuators ||
		n.gating == gatingReady)

	if ready {
		c.reply <- NodeIsReady
	} else {
		c.reply <- NodeIsBusy
	}
}

func (n *Node) handleResetNeuron() {
	for i := range n.inbound {
		n.inbound[i].weight = n.inbound[i].initialWeight
	}
	n.barrier = make(map[ConnectionId]float64)
	n.overflow = make(map[ConnectionId]float64)

	for {
		select {
		case <-n.mailbox:
		default:
			return
		}
	}
}

func (n *Node) handleSendRecurrentSignals(ctx context.Context) {
	for _, oc := range n.recurrentOutbound {
		if err := oc.target.ReceiveInput(context.Background(), oc.id, 0.0, ActivateIfNeuronHasOneConnection); err != nil {
			n.logger("core: node %s: recurrent signal to %s failed: %v", n.id, oc.targetId, err)
		}
	}
}

func (n *Node) handleRestoreInboundConnections(c restoreInboundConnectionsCmd) {
	inbound := make([]inboundConn, 0, len(c.entries))
	for _, e := range c.entries {
		inbound = append(inbound, inboundConn{
			id:            e.ConnectionId,
			order:         e.ConnectionOrder,
			fromNodeId:    e.FromNodeId,
			initialWeight: e.InitialWeight,
			weight:        e.InitialWeight,
		})
	}
	n.inbound = inbound
	n.barrier = make(map[ConnectionId]float64)
	n.overflow = make(map[ConnectionId]float64)
	c.reply <- nil
}
