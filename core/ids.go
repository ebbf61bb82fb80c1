package core

import "github.com/google/uuid"

// NodeId uniquely identifies a node actor for the life of a network.
type NodeId uuid.UUID

// NewNodeId mints a fresh, globally unique NodeId.
func NewNodeId() NodeId {
	return NodeId(uuid.New())
}

// String returns the canonical textual form of the id.
func (id NodeId) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never minted).
func (id NodeId) IsZero() bool {
	return id == NodeId{}
}

// ConnectionId uniquely identifies a connection across the entire network.
// Outside tests, the engine mints one only while handling
// Node.AddOutboundConnection; construct.Hydrate reuses the ids a record
// already carries.
type ConnectionId uuid.UUID

// NewConnectionId mints a fresh, globally unique ConnectionId.
func NewConnectionId() ConnectionId {
	return ConnectionId(uuid.New())
}

// String returns the canonical textual form of the id.
func (id ConnectionId) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never minted).
func (id ConnectionId) IsZero() bool {
	return id == ConnectionId{}
}
