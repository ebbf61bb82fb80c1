// Package core implements the node actor that is the fundamental runtime unit
// of the signal-propagation engine.
//
// A Node is a long-lived, independently scheduled actor playing one of three
// roles — sensor, neuron, or actuator — that communicates with its neighbours
// exclusively through its mailbox. The package owns the actor's message loop,
// its barrier/overflow accumulation, Hebbian weight updates, recurrent
// connection bookkeeping, and the node record snapshot/round-trip.
package core
