// Package dht implements a Chord distributed hash table: nodes form a
// logical ring on an M-bit identifier space and collectively store
// key/value pairs, with each key owned by the successor of its hash and
// replicated to the owner's two neighbors.
package dht

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Mode selects the routing capability set of a node.
type Mode int

const (
	// ModeFingerTable routes through the finger table and repairs the
	// ring with fixChord when the successor dies.
	ModeFingerTable Mode = iota
	// ModeBasic always forwards to the immediate successor and has no
	// finger repair or ring recovery.
	ModeBasic
)

// ParseMode converts a mode name ("finger" or "basic") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "finger", "finger_table":
		return ModeFingerTable, nil
	case "basic", "basic_query":
		return ModeBasic, nil
	}
	return ModeFingerTable, fmt.Errorf("unknown node mode %q", s)
}

// fingerEntry pairs a finger-table start identifier with the last known
// successor of that identifier.
type fingerEntry struct {
	start int
	node  NodeRef
}

// Node is one member of the ring. All mutable state is guarded by mu;
// outbound RPCs are always issued with mu released.
type Node struct {
	mu sync.Mutex

	self        NodeRef
	predecessor NodeRef
	successor   NodeRef
	finger      []fingerEntry
	nextFinger  int

	store       map[string]string
	predReplica map[string]string
	succReplica map[string]string

	paused bool
	mode   Mode

	transport Transport
	interval  time.Duration
	logger    *log.Logger

	timerMu sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewNode creates a node bound to address:port. The node starts as a
// one-node ring (successor is itself, predecessor unknown); call Join to
// enter an existing ring and Start to run maintenance.
func NewNode(address string, port int, mode Mode, transport Transport, interval time.Duration) *Node {
	self := NewNodeRef(address, port)

	n := &Node{
		self:        self,
		predecessor: sentinelRef(address, port),
		successor:   self,
		finger:      make([]fingerEntry, M),
		store:       make(map[string]string),
		predReplica: make(map[string]string),
		succReplica: make(map[string]string),
		mode:        mode,
		transport:   transport,
		interval:    interval,
		logger:      log.New(os.Stderr, fmt.Sprintf("[node-%d] ", self.ID), log.LstdFlags),
	}

	for i := range n.finger {
		n.finger[i].start = (self.ID + 1<<i) % RingSize
	}

	n.logger.Printf("node %d listening at %s", self.ID, self.Addr())
	return n
}

// Self returns this node's reference.
func (n *Node) Self() NodeRef {
	return n.self
}

// ID returns this node's ring identifier.
func (n *Node) ID() int {
	return n.self.ID
}

// Mode returns the node's routing mode.
func (n *Node) Mode() Mode {
	return n.mode
}

// Predecessor returns the current predecessor reference.
func (n *Node) Predecessor() NodeRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.predecessor
}

// Successor returns the current successor reference.
func (n *Node) Successor() NodeRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.successor
}

// SetPredecessor replaces the predecessor pointer. Peers call this while
// splicing themselves out of the ring.
func (n *Node) SetPredecessor(p NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.predecessor = p
	n.logger.Printf("predecessor set to %s", p)
}

// SetSuccessor replaces the successor pointer.
func (n *Node) SetSuccessor(s NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successor = s
	n.logger.Printf("successor set to %s", s)
}

// Pause suspends the stabilize step of the maintenance loop.
func (n *Node) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = true
}

// Resume re-enables the stabilize step.
func (n *Node) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = false
}

func (n *Node) isPaused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.paused
}

// neighbors returns a consistent snapshot of both neighbor pointers.
func (n *Node) neighbors() (pred, succ NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.predecessor, n.successor
}

// IsSuccessorAlive probes the successor and reports whether it answered.
func (n *Node) IsSuccessorAlive() bool {
	succ := n.Successor()
	if succ.Equal(n.self) {
		return true
	}
	_, err := n.transport.GetID(succ)
	return err == nil
}

// FingerTable returns a copy of the finger-table targets, in start order.
func (n *Node) FingerTable() []NodeRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	refs := make([]NodeRef, len(n.finger))
	for i, f := range n.finger {
		refs[i] = f.node
	}
	return refs
}
