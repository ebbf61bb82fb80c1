package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testLogger(t *testing.T) Logger {
	return func(format string, args ...any) { t.Logf(format, args...) }
}

func newStartedNode(t *testing.T, opts Options) *Node {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger(t)
	}
	n := New(opts)
	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { n.Die(context.Background()) })
	return n
}

func mustConnect(t *testing.T, source, target *Node, weight float64) ConnectionId {
	t.Helper()
	id, err := source.AddOutboundConnection(context.Background(), target, weight)
	if err != nil {
		t.Fatalf("AddOutboundConnection: %v", err)
	}
	return id
}

// TestBarrierOverflow exercises S4: a second synapse on an already-filled
// connection id is deferred to overflow rather than corrupting the current
// barrier, and is promoted once the neuron actually fires.
func TestBarrierOverflow(t *testing.T) {
	var mu sync.Mutex
	var outputs []float64

	neuron := newStartedNode(t, Options{Kind: KindNeuron, Layer: 1, ActivationFn: identityFn})
	actuator := newStartedNode(t, Options{Kind: KindActuator, Layer: 2, OutputHook: func(ctx context.Context, v float64) error {
		mu.Lock()
		outputs = append(outputs, v)
		mu.Unlock()
		return nil
	}})

	sourceA := NewConnectionId()
	sourceB := NewConnectionId()
	if err := neuron.AddInboundConnection(context.Background(), InboundConnectionSpec{
		ConnectionId: sourceA, ConnectionOrder: 0, InitialWeight: 1,
	}); err != nil {
		t.Fatalf("AddInboundConnection A: %v", err)
	}
	if err := neuron.AddInboundConnection(context.Background(), InboundConnectionSpec{
		ConnectionId: sourceB, ConnectionOrder: 1, InitialWeight: 1,
	}); err != nil {
		t.Fatalf("AddInboundConnection B: %v", err)
	}
	mustConnect(t, neuron, actuator, 0)

	// Two synapses on connection A before B ever arrives: the second must
	// not complete the barrier on its own.
	if err := neuron.ReceiveInput(context.Background(), sourceA, 1.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput A#1: %v", err)
	}
	if err := neuron.ReceiveInput(context.Background(), sourceA, 99.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput A#2: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	fired := len(outputs)
	mu.Unlock()
	if fired != 0 {
		t.Fatalf("neuron fired before barrier was satisfied: %d firings", fired)
	}

	// Now complete the barrier with B: the first cycle must use A's first
	// value (1.0), not the overflowed 99.0.
	if err := neuron.ReceiveInput(context.Background(), sourceB, 2.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput B: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	if len(outputs) != 1 {
		t.Fatalf("expected exactly 1 firing, got %d", len(outputs))
	}
	if outputs[0] != 3.0 {
		t.Fatalf("expected first-cycle output 1.0+2.0=3.0, got %v", outputs[0])
	}
	mu.Unlock()

	// The deferred 99.0 on A should now be present in the next cycle's
	// barrier, waiting for a new B to complete it.
	if err := neuron.ReceiveInput(context.Background(), sourceB, 5.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput B#2: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(outputs) != 2 {
		t.Fatalf("expected 2 firings total, got %d", len(outputs))
	}
	if outputs[1] != 104.0 {
		t.Fatalf("expected second-cycle output 99.0+5.0=104.0, got %v", outputs[1])
	}
}

func identityFn(x float64) float64 { return x }

// TestHebbianLearningAndReset exercises S3.
func TestHebbianLearningAndReset(t *testing.T) {
	var mu sync.Mutex
	var outputs []float64

	neuron := newStartedNode(t, Options{
		Kind:              KindNeuron,
		ActivationFn:      identityFn,
		LearningAlgorithm: LearningAlgorithm{Kind: Hebbian, Rate: 0.1},
	})
	actuator := newStartedNode(t, Options{Kind: KindActuator, OutputHook: func(ctx context.Context, v float64) error {
		mu.Lock()
		outputs = append(outputs, v)
		mu.Unlock()
		return nil
	}})

	connID := NewConnectionId()
	if err := neuron.AddInboundConnection(context.Background(), InboundConnectionSpec{
		ConnectionId: connID, ConnectionOrder: 0, InitialWeight: 1.0,
	}); err != nil {
		t.Fatalf("AddInboundConnection: %v", err)
	}
	mustConnect(t, neuron, actuator, 0)

	if err := neuron.ReceiveInput(context.Background(), connID, 2.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	if len(outputs) != 1 || outputs[0] != 2.0 {
		t.Fatalf("expected output 2.0, got %v", outputs)
	}
	mu.Unlock()

	rec, err := neuron.GetNodeRecord(context.Background())
	if err != nil {
		t.Fatalf("GetNodeRecord: %v", err)
	}
	ic, ok := rec.InboundConnections[connID]
	if !ok {
		t.Fatalf("inbound connection %s missing from record", connID)
	}
	if got, want := ic.Weight, 1.4; got != want {
		t.Fatalf("expected learned weight %v, got %v", want, got)
	}

	if err := neuron.ResetNeuron(context.Background()); err != nil {
		t.Fatalf("ResetNeuron: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	rec, err = neuron.GetNodeRecord(context.Background())
	if err != nil {
		t.Fatalf("GetNodeRecord after reset: %v", err)
	}
	if got := rec.InboundConnections[connID].Weight; got != 1.0 {
		t.Fatalf("expected weight reset to InitialWeight 1.0, got %v", got)
	}
}

// TestRecurrentClassification exercises invariant 5: recurrent iff both
// ends are neurons and the source's layer is >= the target's layer.
func TestRecurrentClassification(t *testing.T) {
	tests := []struct {
		name          string
		sourceKind    NodeKind
		sourceLayer   int
		targetKind    NodeKind
		targetLayer   int
		wantRecurrent bool
	}{
		{"feedforward neuron to neuron", KindNeuron, 1, KindNeuron, 2, false},
		{"same layer counts as recurrent", KindNeuron, 2, KindNeuron, 2, true},
		{"backward neuron to neuron", KindNeuron, 3, KindNeuron, 1, true},
		{"sensor to neuron never recurrent", KindSensor, 5, KindNeuron, 1, false},
		{"neuron to actuator never recurrent", KindNeuron, 5, KindActuator, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newStartedNode(t, Options{Kind: tt.sourceKind, Layer: tt.sourceLayer})
			target := newStartedNode(t, Options{Kind: tt.targetKind, Layer: tt.targetLayer})

			connID := mustConnect(t, source, target, 1.0)

			rec, err := source.GetNodeRecord(context.Background())
			if err != nil {
				t.Fatalf("GetNodeRecord: %v", err)
			}
			_ = rec // outbound connections aren't part of the record; classification is verified indirectly below.

			// SendRecurrentSignals only has an observable effect through
			// recurrent connections, so use it as the classification probe:
			// seed a neuron with exactly one inbound connection (the one
			// just created) and check whether a zero-valued recurrent
			// signal alone is enough to fire it.
			if tt.targetKind != KindNeuron {
				return
			}
			var mu sync.Mutex
			var fired bool
			hookTarget := newStartedNode(t, Options{Kind: KindActuator, OutputHook: func(ctx context.Context, v float64) error {
				mu.Lock()
				fired = true
				mu.Unlock()
				return nil
			}})
			mustConnect(t, target, hookTarget, 0)

			if err := source.SendRecurrentSignals(context.Background()); err != nil {
				t.Fatalf("SendRecurrentSignals: %v", err)
			}
			time.Sleep(50 * time.Millisecond)

			mu.Lock()
			got := fired
			mu.Unlock()
			if got != tt.wantRecurrent {
				t.Errorf("connection %s: recurrent fire = %v, want %v", connID, got, tt.wantRecurrent)
			}
		})
	}
}

// TestGetNodeRecordRoundTrip exercises invariant 3.
func TestGetNodeRecordRoundTrip(t *testing.T) {
	bias := 0.25
	actFn := "sigmoid"
	syncFn := "my-sync"

	sensor := newStartedNode(t, Options{
		Kind:     KindSensor,
		Layer:    0,
		SyncFnId: syncFn,
		SyncFn:   func(ctx context.Context) ([]float64, error) { return []float64{1, 2, 3}, nil },
	})
	neuron := newStartedNode(t, Options{Kind: KindNeuron, Layer: 1, Bias: &bias, ActivationFnId: actFn})

	for i := 0; i < 3; i++ {
		mustConnect(t, sensor, neuron, float64(i))
	}

	if err := sensor.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	rec, err := sensor.GetNodeRecord(context.Background())
	if err != nil {
		t.Fatalf("GetNodeRecord: %v", err)
	}
	if rec.NodeType.Kind != KindSensor {
		t.Errorf("expected sensor kind, got %v", rec.NodeType.Kind)
	}
	if rec.NodeType.FanOut != 3 {
		t.Errorf("expected fan-out 3, got %d", rec.NodeType.FanOut)
	}
	if rec.SyncFunctionId == nil || *rec.SyncFunctionId != syncFn {
		t.Errorf("expected sync function id %q preserved, got %v", syncFn, rec.SyncFunctionId)
	}
	if rec.MaximumVectorLength == nil || *rec.MaximumVectorLength != 3 {
		t.Errorf("expected maximum vector length 3, got %v", rec.MaximumVectorLength)
	}

	neuronRec, err := neuron.GetNodeRecord(context.Background())
	if err != nil {
		t.Fatalf("GetNodeRecord neuron: %v", err)
	}
	if neuronRec.Bias == nil || *neuronRec.Bias != bias {
		t.Errorf("expected bias %v preserved, got %v", bias, neuronRec.Bias)
	}
	if neuronRec.ActivationFunctionId == nil || *neuronRec.ActivationFunctionId != actFn {
		t.Errorf("expected activation function id %q preserved, got %v", actFn, neuronRec.ActivationFunctionId)
	}
	if len(neuronRec.InboundConnections) != 3 {
		t.Errorf("expected 3 inbound connections, got %d", len(neuronRec.InboundConnections))
	}
}

// TestGetNodeStatusQuiescence exercises invariant 6's per-node half: ready
// iff the mailbox is empty and, when checking actuators, gating isn't
// mid-cycle.
func TestGetNodeStatusQuiescence(t *testing.T) {
	actuator := newStartedNode(t, Options{Kind: KindActuator})

	status, err := actuator.GetNodeStatus(context.Background(), true)
	if err != nil {
		t.Fatalf("GetNodeStatus: %v", err)
	}
	if status != NodeIsReady {
		t.Fatalf("expected ready with no cortex registered, got %v", status)
	}

	if err := actuator.RegisterCortex(context.Background()); err != nil {
		t.Fatalf("RegisterCortex: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	status, err = actuator.GetNodeStatus(context.Background(), true)
	if err != nil {
		t.Fatalf("GetNodeStatus: %v", err)
	}
	if status != NodeIsBusy {
		t.Fatalf("expected busy while gating is waiting, got %v", status)
	}

	status, err = actuator.GetNodeStatus(context.Background(), false)
	if err != nil {
		t.Fatalf("GetNodeStatus: %v", err)
	}
	if status != NodeIsReady {
		t.Fatalf("expected ready when not checking actuators, got %v", status)
	}
}

// TestSensorIgnoresReceiveInput exercises the ReceiveInput-on-a-sensor
// structural error: a sensor has no inbound connections, so the message is
// logged and dropped rather than treated as fatal.
func TestSensorIgnoresReceiveInput(t *testing.T) {
	sensor := newStartedNode(t, Options{Kind: KindSensor, SyncFn: func(ctx context.Context) ([]float64, error) { return nil, nil }})

	if err := sensor.ReceiveInput(context.Background(), NewConnectionId(), 1.0, ActivateIfBarrierIsFull); err != nil {
		t.Fatalf("ReceiveInput on sensor should not itself error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	status, err := sensor.GetNodeStatus(context.Background(), false)
	if err != nil {
		t.Fatalf("sensor should still be alive and respond to GetNodeStatus: %v", err)
	}
	if status != NodeIsReady {
		t.Fatalf("expected sensor still ready after spurious ReceiveInput, got %v", status)
	}
}
