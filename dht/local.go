package dht

import (
	"fmt"
	"sync"
)

// LocalTransport wires nodes living in the same process, dispatching
// calls directly. Deregistering a node makes every call to it fail,
// which is how tests simulate a crash.
type LocalTransport struct {
	mu    sync.RWMutex
	nodes map[int]*Node
}

// NewLocalTransport creates an empty in-process transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{nodes: make(map[int]*Node)}
}

// Register makes a node reachable through this transport.
func (t *LocalTransport) Register(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[n.ID()] = n
}

// Deregister removes a node, simulating a crash: subsequent calls to it
// report an unreachable peer.
func (t *LocalTransport) Deregister(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, id)
}

func (t *LocalTransport) get(ref NodeRef) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[ref.ID]
	if !ok {
		return nil, fmt.Errorf("node %d unreachable", ref.ID)
	}
	return n, nil
}

func (t *LocalTransport) Lookup(target NodeRef, key string) (KVResult, error) {
	n, err := t.get(target)
	if err != nil {
		return KVResult{}, err
	}
	return n.Lookup(key)
}

func (t *LocalTransport) FindSuccessor(target NodeRef, id int) (NodeRef, error) {
	n, err := t.get(target)
	if err != nil {
		return NodeRef{}, err
	}
	return n.FindSuccessor(id)
}

func (t *LocalTransport) GetPredecessor(target NodeRef) (NodeRef, error) {
	n, err := t.get(target)
	if err != nil {
		return NodeRef{}, err
	}
	return n.Predecessor(), nil
}

func (t *LocalTransport) GetSuccessor(target NodeRef) (NodeRef, error) {
	n, err := t.get(target)
	if err != nil {
		return NodeRef{}, err
	}
	return n.Successor(), nil
}

func (t *LocalTransport) GetID(target NodeRef) (int, error) {
	n, err := t.get(target)
	if err != nil {
		return 0, err
	}
	return n.ID(), nil
}

func (t *LocalTransport) Put(target NodeRef, key, value string) (KVResult, error) {
	n, err := t.get(target)
	if err != nil {
		return KVResult{}, err
	}
	return n.Put(key, value)
}

func (t *LocalTransport) DoPut(target NodeRef, key, value string, place StorePlace) (KVResult, error) {
	n, err := t.get(target)
	if err != nil {
		return KVResult{}, err
	}
	return n.DoPut(key, value, place), nil
}

func (t *LocalTransport) Notify(target, candidate NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	n.Notify(candidate)
	return nil
}

func (t *LocalTransport) Join(target, bootstrap NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	return n.Join(bootstrap)
}

func (t *LocalTransport) LeaveNetwork(target NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	return n.Leave()
}

func (t *LocalTransport) UpdatePredecessor(target, node NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	n.SetPredecessor(node)
	return nil
}

func (t *LocalTransport) UpdateSuccessor(target, node NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	n.SetSuccessor(node)
	return nil
}

func (t *LocalTransport) UpdatePredecessorStore(target NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	return n.UpdatePredecessorStore()
}

func (t *LocalTransport) UpdateSuccessorStore(target NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	return n.UpdateSuccessorStore()
}

func (t *LocalTransport) GetAllData(target NodeRef, place StorePlace) (map[string]string, error) {
	n, err := t.get(target)
	if err != nil {
		return nil, err
	}
	return n.GetAllData(place), nil
}

func (t *LocalTransport) IsSuccessorAlive(target NodeRef) (bool, error) {
	n, err := t.get(target)
	if err != nil {
		return false, err
	}
	return n.IsSuccessorAlive(), nil
}

func (t *LocalTransport) PauseMaintenance(target NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	n.Pause()
	return nil
}

func (t *LocalTransport) ResumeMaintenance(target NodeRef) error {
	n, err := t.get(target)
	if err != nil {
		return err
	}
	n.Resume()
	return nil
}

func (t *LocalTransport) WalkPredecessorChain(target NodeRef) (NodeRef, error) {
	n, err := t.get(target)
	if err != nil {
		return NodeRef{}, err
	}
	return n.WalkPredecessorChain(), nil
}
