package dht

import (
	"testing"
)

func TestStabilizeAdoptsSuccessorsPredecessor(t *testing.T) {
	lt := NewLocalTransport()
	a := newTestNode(t, lt, 50001, ModeFingerTable)
	b := newTestNode(t, lt, 50002, ModeFingerTable)

	if err := b.Join(a.Self()); err != nil {
		t.Fatalf("join: %v", err)
	}
	settle([]*Node{a, b}, 4)

	if succ := a.Successor(); !succ.Equal(b.Self()) {
		t.Errorf("a.successor = %s, want %s", succ, b.Self())
	}
	if succ := b.Successor(); !succ.Equal(a.Self()) {
		t.Errorf("b.successor = %s, want %s", succ, a.Self())
	}
	if pred := a.Predecessor(); !pred.Valid || !pred.Equal(b.Self()) {
		t.Errorf("a.predecessor = %s, want %s", pred, b.Self())
	}
	if pred := b.Predecessor(); !pred.Valid || !pred.Equal(a.Self()) {
		t.Errorf("b.predecessor = %s, want %s", pred, a.Self())
	}
}

func TestCheckPredecessorClearsDeadPointer(t *testing.T) {
	lt, nodes := buildRing(t, 3, ModeFingerTable)

	victim := nodes[1]
	var downstream *Node
	for _, nd := range nodes {
		if nd.Predecessor().Equal(victim.Self()) {
			downstream = nd
		}
	}
	if downstream == nil {
		t.Fatal("no node has the victim as predecessor")
	}

	lt.Deregister(victim.ID())
	downstream.checkPredecessor()

	if pred := downstream.Predecessor(); pred.Valid {
		t.Errorf("predecessor still valid after its death: %s", pred)
	}
}

func TestReplicaCoverageAfterOneInterval(t *testing.T) {
	lt, nodes := buildRing(t, 3, ModeFingerTable)
	seed(t, nodes[0], 50)

	// One full maintenance interval is enough to rebuild both replicas.
	settle(nodes, 1)
	assertReplicaCoverage(t, lt, nodes)
}

func TestPauseSkipsStabilizeOnly(t *testing.T) {
	lt := NewLocalTransport()
	a := newTestNode(t, lt, 50001, ModeFingerTable)
	b := newTestNode(t, lt, 50002, ModeFingerTable)

	if err := b.Join(a.Self()); err != nil {
		t.Fatalf("join: %v", err)
	}
	settle([]*Node{a, b}, 4)

	// Freeze b's view of the ring, then move a's successor away. With
	// stabilize paused, b must not adopt anything new.
	b.Pause()
	before := b.Successor()
	c := newTestNode(t, lt, 50003, ModeFingerTable)
	if err := c.Join(a.Self()); err != nil {
		t.Fatalf("join: %v", err)
	}
	settle([]*Node{a, c}, 4)
	b.runMaintenance()

	if succ := b.Successor(); !succ.Equal(before) {
		t.Errorf("paused node changed successor: %s -> %s", before, succ)
	}

	b.Resume()
	settle([]*Node{a, b, c}, 2*M)
	assertRingClosed(t, lt, []*Node{a, b, c})
}

func TestMaintenanceTickSurvivesPanic(t *testing.T) {
	lt := NewLocalTransport()
	n := newTestNode(t, lt, 50001, ModeFingerTable)

	// A nil store makes the replica merge in update_data panic; the
	// guarded tick must swallow it and keep the node usable.
	n.mu.Lock()
	n.store = nil
	n.succReplica["x"] = "y"
	n.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("tick let a panic escape: %v", r)
			}
		}()
		n.tick()
	}()

	n.mu.Lock()
	n.store = make(map[string]string)
	n.mu.Unlock()
	if _, err := n.Put("k", "v"); err != nil {
		t.Fatalf("node unusable after recovered panic: %v", err)
	}
}
