package activation

import (
	"math"
	"testing"
)

func TestActivationFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   Func
		in   float64
		want float64
	}{
		{"sigmoid at zero", Sigmoid, 0, 0.5},
		{"sigmoid large positive saturates near 1", Sigmoid, 20, 1},
		{"tanh at zero", Tanh, 0, 0},
		{"identity passes through", Identity, -3.5, -3.5},
		{"relu negative clamps to zero", ReLU, -2, 0},
		{"relu positive passes through", ReLU, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.in)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	for _, id := range []string{SigmoidID, TanhID, IdentityID, ReLUID} {
		if _, err := reg.Lookup(id); err != nil {
			t.Errorf("expected built-in id %q to be registered: %v", id, err)
		}
	}

	if _, err := reg.Lookup("does-not-exist"); err == nil {
		t.Errorf("expected an error looking up an unregistered id")
	}

	custom := func(x float64) float64 { return x * 2 }
	reg.Register("double", custom)
	fn, err := reg.Lookup("double")
	if err != nil {
		t.Fatalf("Lookup(double): %v", err)
	}
	if got := fn(3); got != 6 {
		t.Errorf("expected custom function to be callable, got %v", got)
	}
}
