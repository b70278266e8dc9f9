package dht

import (
	"fmt"
	"net"
	"strconv"
)

// NodeRef identifies a ring peer by value. Two references are the same
// node iff their identifiers match; Valid=false marks a sentinel such as
// the unknown predecessor at startup.
type NodeRef struct {
	ID      int
	Address string
	Port    int
	Valid   bool
}

// NewNodeRef builds a valid reference for the node listening at
// address:port, deriving the identifier from the endpoint.
func NewNodeRef(address string, port int) NodeRef {
	return NodeRef{
		ID:      HashID(fmt.Sprintf("%s:%d", address, port)),
		Address: address,
		Port:    port,
		Valid:   true,
	}
}

// sentinelRef is an invalid reference carrying a node's own coordinates,
// used as the unknown-predecessor placeholder.
func sentinelRef(address string, port int) NodeRef {
	r := NewNodeRef(address, port)
	r.Valid = false
	return r
}

// Addr returns the dialable host:port form of the reference.
func (r NodeRef) Addr() string {
	return net.JoinHostPort(r.Address, strconv.Itoa(r.Port))
}

// Equal compares references by ring identifier.
func (r NodeRef) Equal(o NodeRef) bool {
	return r.ID == o.ID
}

func (r NodeRef) String() string {
	if !r.Valid {
		return fmt.Sprintf("node-%d(invalid)", r.ID)
	}
	return fmt.Sprintf("node-%d@%s", r.ID, r.Addr())
}
