package dht

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"

	"golang.org/x/net/netutil"
)

// ServiceName is the registered net/rpc service name; peers address
// methods as "ChordNode.<Method>".
const ServiceName = "ChordNode"

// defaultMaxConns caps concurrent peer connections per node.
const defaultMaxConns = 64

// Server exposes a Node to its peers over net/rpc on the node's own
// address. Starting the server also starts the node's maintenance loop.
type Server struct {
	node      *Node
	rpcServer *rpc.Server
	listener  net.Listener
	maxConns  int
}

// NewServer creates a server for node.
func NewServer(node *Node) *Server {
	return &Server{
		node:      node,
		rpcServer: rpc.NewServer(),
		maxConns:  defaultMaxConns,
	}
}

// Start listens on the node's address and serves peers until Stop. Each
// connection is served on its own goroutine; the listener is capped at
// maxConns concurrent connections.
func (s *Server) Start() error {
	if err := s.rpcServer.RegisterName(ServiceName, &nodeService{node: s.node}); err != nil {
		return fmt.Errorf("register chord service: %v", err)
	}

	ln, err := net.Listen("tcp", s.node.Self().Addr())
	if err != nil {
		return fmt.Errorf("failed to start chord server: %v", err)
	}
	s.listener = netutil.LimitListener(ln, s.maxConns)

	s.node.Start()
	s.node.logger.Printf("serving peers on %s", s.node.Self().Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.node.logger.Printf("accept: %v", err)
			continue
		}
		go s.rpcServer.ServeConn(conn)
	}
}

// Stop closes the listener and stops the node's maintenance loop.
func (s *Server) Stop() error {
	s.node.Stop()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// nodeService adapts Node to the net/rpc calling convention.
type nodeService struct {
	node *Node
}

func (s *nodeService) Lookup(args *LookupArgs, reply *KVReply) error {
	res, err := s.node.Lookup(args.Key)
	if err != nil {
		return err
	}
	reply.Result = res
	return nil
}

func (s *nodeService) FindSuccessor(args *FindSuccessorArgs, reply *NodeReply) error {
	ref, err := s.node.FindSuccessor(args.ID)
	if err != nil {
		return err
	}
	reply.Node = ref
	return nil
}

func (s *nodeService) GetPredecessor(args *EmptyArgs, reply *NodeReply) error {
	reply.Node = s.node.Predecessor()
	return nil
}

func (s *nodeService) GetSuccessor(args *EmptyArgs, reply *NodeReply) error {
	reply.Node = s.node.Successor()
	return nil
}

func (s *nodeService) GetID(args *EmptyArgs, reply *IDReply) error {
	reply.ID = s.node.ID()
	return nil
}

func (s *nodeService) Put(args *PutArgs, reply *KVReply) error {
	res, err := s.node.Put(args.Key, args.Value)
	if err != nil {
		return err
	}
	reply.Result = res
	return nil
}

func (s *nodeService) DoPut(args *DoPutArgs, reply *KVReply) error {
	reply.Result = s.node.DoPut(args.Key, args.Value, args.Place)
	return nil
}

func (s *nodeService) Notify(args *NodeArgs, reply *EmptyReply) error {
	s.node.Notify(args.Node)
	return nil
}

func (s *nodeService) Join(args *NodeArgs, reply *EmptyReply) error {
	return s.node.Join(args.Node)
}

func (s *nodeService) LeaveNetwork(args *EmptyArgs, reply *EmptyReply) error {
	return s.node.Leave()
}

func (s *nodeService) UpdatePredecessor(args *NodeArgs, reply *EmptyReply) error {
	s.node.SetPredecessor(args.Node)
	return nil
}

func (s *nodeService) UpdateSuccessor(args *NodeArgs, reply *EmptyReply) error {
	s.node.SetSuccessor(args.Node)
	return nil
}

func (s *nodeService) UpdatePredecessorStore(args *EmptyArgs, reply *EmptyReply) error {
	return s.node.UpdatePredecessorStore()
}

func (s *nodeService) UpdateSuccessorStore(args *EmptyArgs, reply *EmptyReply) error {
	return s.node.UpdateSuccessorStore()
}

func (s *nodeService) GetAllData(args *GetAllDataArgs, reply *DataReply) error {
	reply.Data = s.node.GetAllData(args.Place)
	return nil
}

func (s *nodeService) IsSuccessorAlive(args *EmptyArgs, reply *BoolReply) error {
	reply.OK = s.node.IsSuccessorAlive()
	return nil
}

func (s *nodeService) PauseMaintenance(args *EmptyArgs, reply *EmptyReply) error {
	s.node.Pause()
	return nil
}

func (s *nodeService) ResumeMaintenance(args *EmptyArgs, reply *EmptyReply) error {
	s.node.Resume()
	return nil
}

func (s *nodeService) WalkPredecessorChain(args *EmptyArgs, reply *NodeReply) error {
	reply.Node = s.node.WalkPredecessorChain()
	return nil
}
