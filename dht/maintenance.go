package dht

import (
	"fmt"
	"time"
)

// Start arms the maintenance timer. Each tick runs stabilize,
// fix-fingers, check-predecessor and the data update, then rearms itself;
// a single worker per node keeps the lock discipline simple.
func (n *Node) Start() {
	n.armTimer()
}

// Stop cancels the maintenance timer. The node keeps serving requests.
func (n *Node) Stop() {
	n.timerMu.Lock()
	defer n.timerMu.Unlock()
	n.stopped = true
	if n.timer != nil {
		n.timer.Stop()
	}
}

func (n *Node) armTimer() {
	n.timerMu.Lock()
	defer n.timerMu.Unlock()
	if n.stopped {
		return
	}
	n.timer = time.AfterFunc(n.interval, n.tick)
}

// tick is the timer callback: one maintenance round, then rearm. The
// round is guarded so a failing task never kills the loop.
func (n *Node) tick() {
	defer n.armTimer()
	defer func() {
		if r := recover(); r != nil {
			n.logger.Printf("maintenance tick panic: %v", r)
		}
	}()
	n.runMaintenance()
}

// runMaintenance performs one maintenance round in protocol order.
func (n *Node) runMaintenance() {
	if !n.isPaused() {
		if err := n.stabilize(); err != nil {
			n.logger.Printf("stabilize: %v", err)
		}
	}
	if n.mode == ModeFingerTable {
		n.fixFingers()
	}
	n.checkPredecessor()
	n.updateData()
	n.logSelf()
}

// stabilize verifies the successor pointer against the successor's own
// predecessor and notifies the successor of this node. An unreachable
// successor triggers ring repair in finger mode.
func (n *Node) stabilize() error {
	self := n.self
	succ := n.Successor()

	x, err := n.transport.GetPredecessor(succ)
	if err != nil {
		if n.mode == ModeFingerTable {
			n.logger.Printf("successor %s unreachable, repairing ring: %v", succ, err)
			return n.fixChord()
		}
		return fmt.Errorf("successor %s unreachable: %v", succ, err)
	}

	if x.Valid && !x.Equal(succ) && between(x.ID, self.ID, succ.ID) {
		n.logger.Printf("stabilize: adopting %s as successor", x)
		n.SetSuccessor(x)
		succ = x
	}

	if err := n.transport.Notify(succ, self); err != nil {
		return fmt.Errorf("notify %s: %v", succ, err)
	}
	return nil
}

// fixFingers refreshes one finger-table entry per round, cycling through
// the table.
func (n *Node) fixFingers() {
	n.mu.Lock()
	i := n.nextFinger
	start := n.finger[i].start
	n.nextFinger = (i + 1) % M
	n.mu.Unlock()

	succ, err := n.FindSuccessor(start)
	if err != nil {
		n.logger.Printf("fix_fingers[%d]: %v", i, err)
		return
	}

	n.mu.Lock()
	n.finger[i].node = succ
	n.mu.Unlock()
}

// checkPredecessor probes the predecessor and invalidates the pointer
// when it no longer answers, so notify can accept a replacement.
func (n *Node) checkPredecessor() {
	pred := n.Predecessor()
	if !pred.Valid || pred.Equal(n.self) {
		return
	}
	if _, err := n.transport.GetID(pred); err != nil {
		n.logger.Printf("predecessor %s unreachable, clearing: %v", pred, err)
		n.mu.Lock()
		if n.predecessor.Equal(pred) {
			n.predecessor.Valid = false
		}
		n.mu.Unlock()
	}
}

// updateData reconciles this node's store with the replicas its
// neighbors hold for it, drops keys it no longer owns, and refreshes
// both neighbors' replicas from the new authoritative set. On a key
// collision the incoming replica value wins; replicas are rebuilt from
// the merged store in the same round, so any divergence converges within
// one interval. Skipped unless both neighbors answer.
func (n *Node) updateData() {
	pred, succ := n.neighbors()
	if !pred.Valid || !succ.Valid {
		return
	}

	fromPred, err := n.transport.GetAllData(pred, PlaceSuccessor)
	if err != nil {
		return
	}
	fromSucc, err := n.transport.GetAllData(succ, PlacePredecessor)
	if err != nil {
		return
	}

	func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for k, v := range fromPred {
			n.store[k] = v
		}
		for k, v := range fromSucc {
			n.store[k] = v
		}
		for key := range n.store {
			if !between(HashID(key), n.predecessor.ID, n.self.ID) {
				delete(n.store, key)
			}
		}
	}()

	if err := n.transport.UpdatePredecessorStore(succ); err != nil {
		n.logger.Printf("update_data: refresh successor replica: %v", err)
	}
	if err := n.transport.UpdateSuccessorStore(pred); err != nil {
		n.logger.Printf("update_data: refresh predecessor replica: %v", err)
	}
}

// logSelf records the node's position in the ring once per round.
func (n *Node) logSelf() {
	n.mu.Lock()
	pred, succ := n.predecessor, n.successor
	local, replicas := len(n.store), len(n.predReplica)+len(n.succReplica)
	n.mu.Unlock()

	predID := "null"
	if pred.Valid {
		predID = fmt.Sprintf("%d", pred.ID)
	}
	n.logger.Printf("ring: %s - %d - %d (keys: %d local, %d replica)",
		predID, n.self.ID, succ.ID, local, replicas)
}
