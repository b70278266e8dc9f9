package dht

import (
	"fmt"
	"net"
	"net/rpc"
	"time"
)

// RPCTransport reaches peers over net/rpc with a fixed per-call timeout.
// Connections are dialed per call, matching the synchronous one-shot
// shape of the protocol; a timeout surfaces as an unreachable peer.
type RPCTransport struct {
	timeout time.Duration
}

// NewRPCTransport creates a transport whose dial and call deadlines are
// both bounded by timeout. Keep the timeout at or below half the
// maintenance interval.
func NewRPCTransport(timeout time.Duration) *RPCTransport {
	return &RPCTransport{timeout: timeout}
}

func (t *RPCTransport) call(target NodeRef, method string, args, reply interface{}) error {
	conn, err := net.DialTimeout("tcp", target.Addr(), t.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %v", target.Addr(), err)
	}

	client := rpc.NewClient(conn)
	defer client.Close()

	call := client.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case done := <-call.Done:
		return done.Error
	case <-time.After(t.timeout):
		return fmt.Errorf("%s on %s timed out after %v", method, target.Addr(), t.timeout)
	}
}

func (t *RPCTransport) Lookup(target NodeRef, key string) (KVResult, error) {
	var reply KVReply
	err := t.call(target, "Lookup", &LookupArgs{Key: key}, &reply)
	return reply.Result, err
}

func (t *RPCTransport) FindSuccessor(target NodeRef, id int) (NodeRef, error) {
	var reply NodeReply
	err := t.call(target, "FindSuccessor", &FindSuccessorArgs{ID: id}, &reply)
	return reply.Node, err
}

func (t *RPCTransport) GetPredecessor(target NodeRef) (NodeRef, error) {
	var reply NodeReply
	err := t.call(target, "GetPredecessor", &EmptyArgs{}, &reply)
	return reply.Node, err
}

func (t *RPCTransport) GetSuccessor(target NodeRef) (NodeRef, error) {
	var reply NodeReply
	err := t.call(target, "GetSuccessor", &EmptyArgs{}, &reply)
	return reply.Node, err
}

func (t *RPCTransport) GetID(target NodeRef) (int, error) {
	var reply IDReply
	err := t.call(target, "GetID", &EmptyArgs{}, &reply)
	return reply.ID, err
}

func (t *RPCTransport) Put(target NodeRef, key, value string) (KVResult, error) {
	var reply KVReply
	err := t.call(target, "Put", &PutArgs{Key: key, Value: value}, &reply)
	return reply.Result, err
}

func (t *RPCTransport) DoPut(target NodeRef, key, value string, place StorePlace) (KVResult, error) {
	var reply KVReply
	err := t.call(target, "DoPut", &DoPutArgs{Key: key, Value: value, Place: place}, &reply)
	return reply.Result, err
}

func (t *RPCTransport) Notify(target, candidate NodeRef) error {
	return t.call(target, "Notify", &NodeArgs{Node: candidate}, &EmptyReply{})
}

func (t *RPCTransport) Join(target, bootstrap NodeRef) error {
	return t.call(target, "Join", &NodeArgs{Node: bootstrap}, &EmptyReply{})
}

func (t *RPCTransport) LeaveNetwork(target NodeRef) error {
	return t.call(target, "LeaveNetwork", &EmptyArgs{}, &EmptyReply{})
}

func (t *RPCTransport) UpdatePredecessor(target, node NodeRef) error {
	return t.call(target, "UpdatePredecessor", &NodeArgs{Node: node}, &EmptyReply{})
}

func (t *RPCTransport) UpdateSuccessor(target, node NodeRef) error {
	return t.call(target, "UpdateSuccessor", &NodeArgs{Node: node}, &EmptyReply{})
}

func (t *RPCTransport) UpdatePredecessorStore(target NodeRef) error {
	return t.call(target, "UpdatePredecessorStore", &EmptyArgs{}, &EmptyReply{})
}

func (t *RPCTransport) UpdateSuccessorStore(target NodeRef) error {
	return t.call(target, "UpdateSuccessorStore", &EmptyArgs{}, &EmptyReply{})
}

func (t *RPCTransport) GetAllData(target NodeRef, place StorePlace) (map[string]string, error) {
	var reply DataReply
	err := t.call(target, "GetAllData", &GetAllDataArgs{Place: place}, &reply)
	return reply.Data, err
}

func (t *RPCTransport) IsSuccessorAlive(target NodeRef) (bool, error) {
	var reply BoolReply
	err := t.call(target, "IsSuccessorAlive", &EmptyArgs{}, &reply)
	return reply.OK, err
}

func (t *RPCTransport) PauseMaintenance(target NodeRef) error {
	return t.call(target, "PauseMaintenance", &EmptyArgs{}, &EmptyReply{})
}

func (t *RPCTransport) ResumeMaintenance(target NodeRef) error {
	return t.call(target, "ResumeMaintenance", &EmptyArgs{}, &EmptyReply{})
}

func (t *RPCTransport) WalkPredecessorChain(target NodeRef) (NodeRef, error) {
	var reply NodeReply
	err := t.call(target, "WalkPredecessorChain", &EmptyArgs{}, &reply)
	return reply.Node, err
}
