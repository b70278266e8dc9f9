package dht

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Put stores key=value on its owner. The owner writes locally and then
// fans the pair out to both neighbors' replica stores; replica failures
// are logged, never surfaced. A non-owner forwards through the ring.
func (n *Node) Put(key, value string) (KVResult, error) {
	h := HashID(key)

	n.mu.Lock()
	owns := between(h, n.predecessor.ID, n.self.ID)
	n.mu.Unlock()

	if !owns {
		next := n.closestPrecedingNode(h)
		if !next.Equal(n.self) {
			res, err := n.transport.Put(next, key, value)
			if err != nil {
				return KVResult{}, fmt.Errorf("put %q: forward to %s: %v", key, next, err)
			}
			return res, nil
		}
		// No better hop known; keep the pair here until maintenance
		// moves it to its owner.
	}

	res := n.DoPut(key, value, PlaceSelf)
	n.replicate(key, value)
	return res, nil
}

// replicate pushes one write to both neighbors, concurrently and
// best-effort. The predecessor files it as successor data, the successor
// as predecessor data.
func (n *Node) replicate(key, value string) {
	pred, succ := n.neighbors()

	g := new(errgroup.Group)
	if pred.Valid && !pred.Equal(n.self) {
		g.Go(func() error {
			if _, err := n.transport.DoPut(pred, key, value, PlaceSuccessor); err != nil {
				n.logger.Printf("replica write of %q to predecessor %s failed: %v", key, pred, err)
			}
			return nil
		})
	}
	if succ.Valid && !succ.Equal(n.self) {
		g.Go(func() error {
			if _, err := n.transport.DoPut(succ, key, value, PlacePredecessor); err != nil {
				n.logger.Printf("replica write of %q to successor %s failed: %v", key, succ, err)
			}
			return nil
		})
	}
	g.Wait()
}

// DoPut writes directly into the store selected by place.
func (n *Node) DoPut(key, value string, place StorePlace) KVResult {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch place {
	case PlaceSelf:
		n.store[key] = value
	case PlacePredecessor:
		n.predReplica[key] = value
	default:
		n.succReplica[key] = value
	}
	return KVResult{Key: key, Value: value, NodeID: n.self.ID, Status: StatusValid}
}

// GetAllData returns a copy of the store selected by place.
func (n *Node) GetAllData(place StorePlace) map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var src map[string]string
	switch place {
	case PlaceSelf:
		src = n.store
	case PlacePredecessor:
		src = n.predReplica
	default:
		src = n.succReplica
	}

	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// UpdatePredecessorStore replaces the predecessor replica with the
// predecessor's current authoritative store.
func (n *Node) UpdatePredecessorStore() error {
	pred, _ := n.neighbors()
	data, err := n.transport.GetAllData(pred, PlaceSelf)
	if err != nil {
		return fmt.Errorf("fetch predecessor %s store: %v", pred, err)
	}

	n.mu.Lock()
	n.predReplica = data
	n.mu.Unlock()
	return nil
}

// UpdateSuccessorStore replaces the successor replica with the
// successor's current authoritative store.
func (n *Node) UpdateSuccessorStore() error {
	_, succ := n.neighbors()
	data, err := n.transport.GetAllData(succ, PlaceSelf)
	if err != nil {
		return fmt.Errorf("fetch successor %s store: %v", succ, err)
	}

	n.mu.Lock()
	n.succReplica = data
	n.mu.Unlock()
	return nil
}

// checkAndClean drops every local key whose identifier this node no
// longer owns. updateData applies the same filter inline after merging
// the neighbors' replicas.
func (n *Node) checkAndClean() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for key := range n.store {
		if !between(HashID(key), n.predecessor.ID, n.self.ID) {
			delete(n.store, key)
		}
	}
}
