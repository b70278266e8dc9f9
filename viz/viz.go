// Package viz serves a live view of the ring: it periodically walks the
// ring through a client connection and pushes topology and store
// snapshots to browser clients over websockets.
package viz

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chorddht/dht"
)

// NodeSnapshot is one ring member as seen during a walk.
type NodeSnapshot struct {
	ID          int               `json:"id"`
	Address     string            `json:"address"`
	Predecessor int               `json:"predecessor"`
	Successor   int               `json:"successor"`
	Local       map[string]string `json:"local"`
	PredReplica map[string]string `json:"pred_replica"`
	SuccReplica map[string]string `json:"succ_replica"`
}

// RingSnapshot is one full walk of the ring.
type RingSnapshot struct {
	Taken time.Time      `json:"taken"`
	Nodes []NodeSnapshot `json:"nodes"`
}

// Server collects ring snapshots and broadcasts them to websocket
// clients.
type Server struct {
	address  string
	client   *dht.Client
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// NewServer creates a visualizer listening on address, snapshotting the
// ring reachable through client every interval.
func NewServer(address string, client *dht.Client, interval time.Duration) *Server {
	return &Server{
		address:  address,
		client:   client,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// Start serves the websocket endpoint and the viewer page, and runs the
// snapshot broadcast loop until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleHome)

	go s.broadcastLoop()

	log.Printf("Visualizer listening on %s\n", s.address)
	log.Printf("WebSocket endpoint: ws://%s/ws\n", s.address)
	return http.ListenAndServe(s.address, mux)
}

// handleWebSocket registers a browser client for snapshot pushes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v\n", err)
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	log.Printf("Viewer %s connected from %s\n", id, conn.RemoteAddr())

	// Drain the connection; a read error means the viewer is gone.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropClient(id)
				return
			}
		}
	}()
}

func (s *Server) dropClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.clients[id]; ok {
		conn.Close()
		delete(s.clients, id)
		log.Printf("Viewer %s disconnected\n", id)
	}
}

// broadcastLoop walks the ring on a fixed cadence and pushes the JSON
// snapshot to every connected viewer.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		snap, err := s.Snapshot()
		if err != nil {
			log.Printf("Ring snapshot failed: %v\n", err)
			continue
		}

		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("Failed to encode snapshot: %v\n", err)
			continue
		}

		s.mu.Lock()
		for id, conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(s.clients, id)
			}
		}
		s.mu.Unlock()
	}
}

// Snapshot walks the ring once and collects every member's pointers and
// stores.
func (s *Server) Snapshot() (RingSnapshot, error) {
	refs, err := s.client.Walk()
	if err != nil {
		return RingSnapshot{}, err
	}

	snap := RingSnapshot{Taken: time.Now()}
	for _, ref := range refs {
		pred, succ, err := s.client.Neighbors(ref)
		if err != nil {
			return snap, fmt.Errorf("neighbors of %s: %v", ref, err)
		}
		local, predReplica, succReplica, err := s.client.NodeData(ref)
		if err != nil {
			return snap, fmt.Errorf("stores of %s: %v", ref, err)
		}

		predID := -1
		if pred.Valid {
			predID = pred.ID
		}
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			ID:          ref.ID,
			Address:     ref.Addr(),
			Predecessor: predID,
			Successor:   succ.ID,
			Local:       local,
			PredReplica: predReplica,
			SuccReplica: succReplica,
		})
	}
	return snap, nil
}

// handleHome serves a minimal viewer page that renders incoming
// snapshots.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	html := `
<!DOCTYPE html>
<html>
<head>
    <title>Chord Ring</title>
</head>
<body>
    <h1>Chord Ring</h1>
    <pre id="ring">waiting for snapshot...</pre>
    <script>
        const ws = new WebSocket('ws://' + window.location.host + '/ws');

        ws.onmessage = function(event) {
            const snap = JSON.parse(event.data);
            let out = 'taken: ' + snap.taken + '\n\n';
            for (const n of snap.nodes) {
                out += n.predecessor + ' -> [' + n.id + ' @ ' + n.address + '] -> ' + n.successor + '\n';
                out += '  local:   ' + JSON.stringify(n.local) + '\n';
                out += '  pred:    ' + JSON.stringify(n.pred_replica) + '\n';
                out += '  succ:    ' + JSON.stringify(n.succ_replica) + '\n';
            }
            document.getElementById('ring').textContent = out;
        };

        ws.onclose = function() {
            document.getElementById('ring').textContent = 'disconnected';
        };
    </script>
</body>
</html>
`
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}
