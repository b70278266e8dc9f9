package dht

import (
	"fmt"
	"time"
)

// walkLimit bounds ring walks so a half-formed ring cannot loop forever.
const walkLimit = 1024

// Client is a thin key/value client. It connects to one known ring node;
// that node routes every request, so the client never needs to know the
// ring shape.
type Client struct {
	entry     NodeRef
	transport Transport
}

// NewClient creates a client whose entry point is the node at
// address:port.
func NewClient(address string, port int, timeout time.Duration) *Client {
	return &Client{
		entry:     NewNodeRef(address, port),
		transport: NewRPCTransport(timeout),
	}
}

// Entry returns the entry node reference.
func (c *Client) Entry() NodeRef {
	return c.entry
}

// Put stores key=value somewhere on the ring.
func (c *Client) Put(key, value string) (KVResult, error) {
	return c.transport.Put(c.entry, key, value)
}

// Get resolves key through the ring.
func (c *Client) Get(key string) (KVResult, error) {
	return c.transport.Lookup(c.entry, key)
}

// Leave instructs the node at ref to leave the ring gracefully.
func (c *Client) Leave(ref NodeRef) error {
	return c.transport.LeaveNetwork(ref)
}

// Join instructs the node at ref to join the ring via the entry node.
func (c *Client) Join(ref NodeRef) error {
	return c.transport.Join(ref, c.entry)
}

// Walk follows successor pointers from the entry node all the way around
// the ring and returns the members in ring order.
func (c *Client) Walk() ([]NodeRef, error) {
	start, err := c.transport.GetID(c.entry)
	if err != nil {
		return nil, fmt.Errorf("entry node %s unreachable: %v", c.entry, err)
	}

	nodes := []NodeRef{c.entry}
	current := c.entry
	for i := 0; i < walkLimit; i++ {
		next, err := c.transport.GetSuccessor(current)
		if err != nil {
			return nodes, fmt.Errorf("successor walk broke at %s: %v", current, err)
		}
		if next.ID == start {
			return nodes, nil
		}
		nodes = append(nodes, next)
		current = next
	}
	return nodes, fmt.Errorf("ring walk did not close after %d hops", walkLimit)
}

// NodeData fetches all three stores of one node.
func (c *Client) NodeData(ref NodeRef) (local, predReplica, succReplica map[string]string, err error) {
	if local, err = c.transport.GetAllData(ref, PlaceSelf); err != nil {
		return nil, nil, nil, err
	}
	if predReplica, err = c.transport.GetAllData(ref, PlacePredecessor); err != nil {
		return nil, nil, nil, err
	}
	if succReplica, err = c.transport.GetAllData(ref, PlaceSuccessor); err != nil {
		return nil, nil, nil, err
	}
	return local, predReplica, succReplica, nil
}

// Neighbors fetches a node's predecessor and successor pointers.
func (c *Client) Neighbors(ref NodeRef) (pred, succ NodeRef, err error) {
	if pred, err = c.transport.GetPredecessor(ref); err != nil {
		return NodeRef{}, NodeRef{}, err
	}
	if succ, err = c.transport.GetSuccessor(ref); err != nil {
		return NodeRef{}, NodeRef{}, err
	}
	return pred, succ, nil
}
