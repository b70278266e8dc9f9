package dht

// Lookup resolves key to its value, serving locally when this node owns
// the key's identifier and forwarding through the ring otherwise. A dead
// next hop degrades to NOT_FOUND rather than an error; the value is still
// reachable through any live entry node once maintenance has repaired the
// ring.
func (n *Node) Lookup(key string) (KVResult, error) {
	h := HashID(key)

	n.mu.Lock()
	owns := between(h, n.predecessor.ID, n.self.ID)
	n.mu.Unlock()

	if owns {
		return n.localLookup(key), nil
	}

	next := n.closestPrecedingNode(h)
	if next.Equal(n.self) {
		return n.localLookup(key), nil
	}

	res, err := n.transport.Lookup(next, key)
	if err != nil {
		n.logger.Printf("lookup %q: forward to %s failed: %v", key, next, err)
		return KVResult{Key: key, NodeID: n.self.ID, Status: StatusNotFound}, nil
	}
	return res, nil
}

// localLookup answers a lookup from this node's own store.
func (n *Node) localLookup(key string) KVResult {
	n.mu.Lock()
	defer n.mu.Unlock()

	if v, ok := n.store[key]; ok {
		return KVResult{Key: key, Value: v, NodeID: n.self.ID, Status: StatusValid}
	}
	return KVResult{Key: key, NodeID: n.self.ID, Status: StatusNotFound}
}

// FindSuccessor returns the node that owns identifier id. When the next
// hop is unreachable the node falls back to itself, mirroring the join
// bootstrap behavior.
func (n *Node) FindSuccessor(id int) (NodeRef, error) {
	n.mu.Lock()
	self, succ := n.self, n.successor
	n.mu.Unlock()

	if between(id, self.ID, succ.ID) {
		return succ, nil
	}

	next := n.closestPrecedingNode(id)
	if next.Equal(self) {
		return self, nil
	}

	ref, err := n.transport.FindSuccessor(next, id)
	if err != nil {
		n.logger.Printf("find_successor %d: forward to %s failed: %v", id, next, err)
		return self, nil
	}
	return ref, nil
}

// closestPrecedingNode picks the next hop for identifier id: the highest
// finger strictly inside (self, id), the successor when id falls in
// (self, successor], or self when the table holds nothing usable. The
// basic mode always forwards to the successor.
func (n *Node) closestPrecedingNode(id int) NodeRef {
	n.mu.Lock()
	defer n.mu.Unlock()

	if between(id, n.self.ID, n.successor.ID) {
		return n.successor
	}
	if n.mode == ModeBasic {
		return n.successor
	}
	for i := M - 1; i >= 0; i-- {
		f := n.finger[i].node
		if f.Valid && betweenOpen(f.ID, n.self.ID, id) {
			return f
		}
	}
	return n.self
}
