package dht

import "fmt"

// Join enters the ring known to bootstrap by adopting the successor of
// this node's identifier. The predecessor stays unknown; stabilize fills
// it in within a round.
func (n *Node) Join(bootstrap NodeRef) error {
	succ, err := n.transport.FindSuccessor(bootstrap, n.self.ID)
	if err != nil {
		return fmt.Errorf("join via %s: %v", bootstrap, err)
	}
	n.SetSuccessor(succ)
	n.logger.Printf("joined ring via %s", bootstrap)
	return nil
}

// Notify is called by a peer that believes it is our predecessor. The
// candidate is adopted when no valid predecessor is known or when it sits
// on the arc between the current predecessor and this node.
func (n *Node) Notify(candidate NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.predecessor.Valid || between(candidate.ID, n.predecessor.ID, n.self.ID) {
		n.predecessor = candidate
	}
}

// Leave takes this node out of the ring gracefully: both neighbors stop
// stabilizing while the ring is spliced around us, every local entry is
// re-put through the successor so ownership transfers before exit, and
// the node resets to an empty one-node ring.
func (n *Node) Leave() error {
	self := n.self
	pred, succ := n.neighbors()

	if succ.Equal(self) {
		n.reset()
		return nil
	}

	n.Pause()
	if err := n.transport.PauseMaintenance(succ); err != nil {
		n.logger.Printf("leave: pause successor %s: %v", succ, err)
	}
	if err := n.transport.PauseMaintenance(pred); err != nil {
		n.logger.Printf("leave: pause predecessor %s: %v", pred, err)
	}

	var err error
	if e := n.transport.UpdatePredecessor(succ, pred); e != nil {
		err = mergeErrors(err, fmt.Errorf("hand predecessor to %s: %v", succ, e))
	}
	if e := n.transport.UpdateSuccessor(pred, succ); e != nil {
		err = mergeErrors(err, fmt.Errorf("hand successor to %s: %v", pred, e))
	}

	if e := n.transport.ResumeMaintenance(succ); e != nil {
		n.logger.Printf("leave: resume successor %s: %v", succ, e)
	}
	if e := n.transport.ResumeMaintenance(pred); e != nil {
		n.logger.Printf("leave: resume predecessor %s: %v", pred, e)
	}

	for k, v := range n.GetAllData(PlaceSelf) {
		if _, e := n.transport.Put(succ, k, v); e != nil {
			n.logger.Printf("leave: handoff of %q to %s failed: %v", k, succ, e)
		}
	}

	n.reset()
	n.logger.Printf("left the ring")
	return err
}

// reset returns the node to its initial one-node-ring state.
func (n *Node) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.predecessor = n.self
	n.successor = n.self
	n.store = make(map[string]string)
	n.predReplica = make(map[string]string)
	n.succReplica = make(map[string]string)
	for i := range n.finger {
		n.finger[i].node = NodeRef{}
	}
}

// fixChord rebuilds the ring after the successor stopped answering: find
// a live replacement through the finger table, salvage the dead node's
// keys from the replacement's predecessor replica, and splice the ring.
func (n *Node) fixChord() error {
	n.Pause()
	defer n.Resume()

	repl := n.findAliveSuccessor()
	self := n.self

	if !repl.Valid || repl.Equal(self) {
		// No finger other than the dead successor answered; collapse to
		// a one-node ring and let stabilize and joins rebuild it.
		n.SetSuccessor(self)
		return nil
	}

	if err := n.transport.PauseMaintenance(repl); err != nil {
		return fmt.Errorf("pause replacement %s: %v", repl, err)
	}

	// The replacement's predecessor replica holds the dead node's
	// authoritative data; promote it before the ring closes.
	salvaged, err := n.transport.GetAllData(repl, PlacePredecessor)
	if err != nil {
		n.logger.Printf("fix_chord: salvage from %s failed: %v", repl, err)
	} else {
		for k, v := range salvaged {
			if _, e := n.transport.DoPut(repl, k, v, PlaceSelf); e != nil {
				n.logger.Printf("fix_chord: promote %q on %s failed: %v", k, repl, e)
			}
		}
	}

	n.SetSuccessor(repl)
	if err := n.transport.UpdatePredecessor(repl, self); err != nil {
		n.logger.Printf("fix_chord: set predecessor on %s: %v", repl, err)
	}
	if err := n.transport.ResumeMaintenance(repl); err != nil {
		n.logger.Printf("fix_chord: resume %s: %v", repl, err)
	}

	n.logger.Printf("ring repaired, new successor %s", repl)
	return nil
}

// findAliveSuccessor scans the finger table for a live peer and asks it
// for the head of its predecessor chain, which is the dead node's old
// successor. Dead fingers are skipped until one answers; self is the
// last resort.
func (n *Node) findAliveSuccessor() NodeRef {
	dead := n.Successor()

	for _, f := range n.FingerTable() {
		if !f.Valid || f.Equal(n.self) || f.Equal(dead) {
			continue
		}
		head, err := n.transport.WalkPredecessorChain(f)
		if err != nil {
			continue
		}
		if head.Valid {
			return head
		}
	}
	return n.self
}

// WalkPredecessorChain returns the farthest reachable node along the
// predecessor chain starting here. The walk ends at the node whose
// predecessor is dead or unknown; during ring repair that is the dead
// node's successor.
func (n *Node) WalkPredecessorChain() NodeRef {
	pred := n.Predecessor()
	if !pred.Valid || pred.Equal(n.self) {
		return n.self
	}
	head, err := n.transport.WalkPredecessorChain(pred)
	if err != nil {
		return n.self
	}
	return head
}

// mergeErrors folds two optional errors into one.
func mergeErrors(err1, err2 error) error {
	switch {
	case err1 == nil:
		return err2
	case err2 == nil:
		return err1
	default:
		return fmt.Errorf("%v; %v", err1, err2)
	}
}
