package dht

// Transport is the synchronous request/reply surface between peers. Every
// call blocks until the target answers or the transport reports failure;
// a timeout is reported as an error and treated as an unreachable peer.
type Transport interface {
	// Routing and reads.
	Lookup(target NodeRef, key string) (KVResult, error)
	FindSuccessor(target NodeRef, id int) (NodeRef, error)
	GetPredecessor(target NodeRef) (NodeRef, error)
	GetSuccessor(target NodeRef) (NodeRef, error)
	GetID(target NodeRef) (int, error)

	// Writes.
	Put(target NodeRef, key, value string) (KVResult, error)
	DoPut(target NodeRef, key, value string, place StorePlace) (KVResult, error)

	// Membership.
	Notify(target, candidate NodeRef) error
	Join(target, bootstrap NodeRef) error
	LeaveNetwork(target NodeRef) error
	UpdatePredecessor(target, node NodeRef) error
	UpdateSuccessor(target, node NodeRef) error

	// Replica maintenance.
	UpdatePredecessorStore(target NodeRef) error
	UpdateSuccessorStore(target NodeRef) error
	GetAllData(target NodeRef, place StorePlace) (map[string]string, error)

	// Liveness and recovery.
	IsSuccessorAlive(target NodeRef) (bool, error)
	PauseMaintenance(target NodeRef) error
	ResumeMaintenance(target NodeRef) error
	WalkPredecessorChain(target NodeRef) (NodeRef, error)
}
