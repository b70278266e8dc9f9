package dht

import (
	"fmt"
	"testing"
)

// liveNodes filters out a crashed node from the maintenance rotation.
func liveNodes(nodes []*Node, dead *Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, nd := range nodes {
		if nd != dead {
			out = append(out, nd)
		}
	}
	return out
}

// findOwner returns the node currently owning key.
func findOwner(t *testing.T, nodes []*Node, key string) *Node {
	t.Helper()
	h := HashID(key)
	for _, nd := range nodes {
		pred := nd.Predecessor()
		if between(h, pred.ID, nd.ID()) {
			return nd
		}
	}
	t.Fatalf("no node owns key %q (hash %d)", key, h)
	return nil
}

func TestCrashedOwnerKeysSurvive(t *testing.T) {
	lt, nodes := buildRing(t, 4, ModeFingerTable)
	seed(t, nodes[0], 50)
	settle(nodes, 3)

	owner := findOwner(t, nodes, "key-17")
	lt.Deregister(owner.ID())
	survivors := liveNodes(nodes, owner)
	settle(survivors, 2*M)

	assertRingClosed(t, lt, survivors)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := fmt.Sprintf("value-%d", i)
		for _, entry := range survivors {
			res, err := entry.Lookup(key)
			if err != nil {
				t.Fatalf("lookup %s via %d after crash: %v", key, entry.ID(), err)
			}
			if res.Status != StatusValid || res.Value != want {
				t.Fatalf("lookup %s via %d after crash = %+v, want %s", key, entry.ID(), res, want)
			}
		}
	}
}

func TestGracefulLeaveKeepsKeys(t *testing.T) {
	lt, nodes := buildRing(t, 4, ModeFingerTable)
	seed(t, nodes[0], 50)
	settle(nodes, 3)

	leaver := findOwner(t, nodes, "key-17")
	// Pick a survivor as the entry for later lookups.
	survivors := liveNodes(nodes, leaver)

	if err := leaver.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	lt.Deregister(leaver.ID())
	settle(survivors, 2*M)

	assertRingClosed(t, lt, survivors)
	assertOwnership(t, survivors)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := fmt.Sprintf("value-%d", i)
		res, err := survivors[0].Lookup(key)
		if err != nil {
			t.Fatalf("lookup %s after leave: %v", key, err)
		}
		if res.Status != StatusValid || res.Value != want {
			t.Fatalf("lookup %s after leave = %+v, want %s", key, res, want)
		}
	}
}

func TestLeaveOnOneNodeRingResets(t *testing.T) {
	lt := NewLocalTransport()
	n := newTestNode(t, lt, 50001, ModeFingerTable)
	n.Put("k", "v")

	if err := n.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(n.GetAllData(PlaceSelf)) != 0 {
		t.Error("store not cleared after leave")
	}
	if succ := n.Successor(); !succ.Equal(n.Self()) {
		t.Errorf("successor after leave = %s, want self", succ)
	}
	if pred := n.Predecessor(); !pred.Valid || !pred.Equal(n.Self()) {
		t.Errorf("predecessor after leave = %s, want valid self", pred)
	}
}

func TestNotifyAdoptsCloserPredecessor(t *testing.T) {
	lt, nodes := buildRing(t, 3, ModeFingerTable)

	// A fresh node sitting between its owner's predecessor and that owner
	// must be adopted on notify.
	joiner := newTestNode(t, lt, 50005, ModeFingerTable)
	target := findOwner(t, nodes, "localhost:50005")
	old := target.Predecessor()

	target.Notify(joiner.Self())
	if got := target.Predecessor(); !got.Equal(joiner.Self()) {
		t.Fatalf("predecessor after notify = %s, want %s (old %s)", got, joiner.Self(), old)
	}

	// A farther candidate must not displace it.
	target.Notify(old)
	if got := target.Predecessor(); !got.Equal(joiner.Self()) {
		t.Fatalf("farther candidate displaced predecessor: %s", got)
	}
}

func TestWalkPredecessorChainFindsBreak(t *testing.T) {
	lt, nodes := buildRing(t, 4, ModeFingerTable)
	settle(nodes, 3)

	owner := findOwner(t, nodes, "key-17")
	lt.Deregister(owner.ID())
	survivors := liveNodes(nodes, owner)

	// The dead node's successor notices its predecessor is gone.
	var orphan *Node
	for _, nd := range survivors {
		if nd.Predecessor().Equal(owner.Self()) {
			orphan = nd
		}
		nd.checkPredecessor()
	}
	if orphan == nil {
		t.Fatal("no node had the dead node as predecessor")
	}

	// Walking the chain from any survivor must end at the orphan.
	for _, nd := range survivors {
		if nd == orphan {
			continue
		}
		if head := nd.WalkPredecessorChain(); !head.Equal(orphan.Self()) {
			t.Errorf("walk from %d ended at %s, want %s", nd.ID(), head, orphan.Self())
		}
	}
}

func TestFixChordPromotesReplica(t *testing.T) {
	lt, nodes := buildRing(t, 4, ModeFingerTable)
	seed(t, nodes[0], 50)
	settle(nodes, 3)

	owner := findOwner(t, nodes, "key-17")

	var upstream *Node
	for _, nd := range liveNodes(nodes, owner) {
		if nd.Successor().Equal(owner.Self()) {
			upstream = nd
		}
	}
	if upstream == nil {
		t.Fatal("no node had the dead node as successor")
	}

	lt.Deregister(owner.ID())
	for _, nd := range liveNodes(nodes, owner) {
		nd.checkPredecessor()
	}

	if err := upstream.fixChord(); err != nil {
		t.Fatalf("fix_chord: %v", err)
	}

	repl := upstream.Successor()
	if repl.Equal(owner.Self()) || !repl.Valid {
		t.Fatalf("fix_chord kept dead successor %s", repl)
	}
	// The dead owner's keys must have been promoted on the replacement.
	promoted, err := lt.GetAllData(repl, PlaceSelf)
	if err != nil {
		t.Fatalf("replacement unreachable: %v", err)
	}
	if promoted["key-17"] != "value-17" {
		t.Errorf("key-17 not promoted on replacement %s", repl)
	}
}
