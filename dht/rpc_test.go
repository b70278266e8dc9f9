package dht

import (
	"fmt"
	"io"
	"testing"
	"time"
)

// startRingServer boots a node with a real RPC server on localhost.
func startRingServer(t *testing.T, port int, interval, timeout time.Duration) (*Node, *Server) {
	t.Helper()
	n := NewNode("localhost", port, ModeFingerTable, NewRPCTransport(timeout), interval)
	if !testing.Verbose() {
		n.logger.SetOutput(io.Discard)
	}
	srv := NewServer(n)
	go srv.Start()
	t.Cleanup(func() { srv.Stop() })
	return n, srv
}

func TestRingOverRPC(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network ring test in short mode")
	}

	interval := 200 * time.Millisecond
	timeout := 100 * time.Millisecond
	ports := []int{51001, 51002, 51003}

	refs := make([]NodeRef, len(ports))
	for i, port := range ports {
		startRingServer(t, port, interval, timeout)
		refs[i] = NewNodeRef("localhost", port)
	}

	// Give the listeners a moment, then join everything through the
	// first node.
	time.Sleep(2 * interval)
	ctl := NewRPCTransport(time.Second)
	for _, ref := range refs[1:] {
		if err := ctl.Join(ref, refs[0]); err != nil {
			t.Fatalf("join %s: %v", ref, err)
		}
	}

	// Let stabilize settle the ring and fix_fingers cycle the full
	// table at least once.
	time.Sleep(time.Duration(M+9) * interval)

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := fmt.Sprintf("value-%d", i)
		if _, err := ctl.Put(refs[0], key, value); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := fmt.Sprintf("value-%d", i)
		for _, ref := range refs {
			res, err := ctl.Lookup(ref, key)
			if err != nil {
				t.Fatalf("lookup %s via %s: %v", key, ref, err)
			}
			if res.Status != StatusValid || res.Value != want {
				t.Fatalf("lookup %s via %s = %+v, want %s", key, ref, res, want)
			}
		}
	}

	// The ring must close over the wire.
	client := NewClient("localhost", ports[0], time.Second)
	members, err := client.Walk()
	if err != nil {
		t.Fatalf("ring walk: %v", err)
	}
	if len(members) != len(ports) {
		t.Fatalf("ring walk found %d members, want %d", len(members), len(ports))
	}

	for _, ref := range refs {
		alive, err := ctl.IsSuccessorAlive(ref)
		if err != nil {
			t.Fatalf("is_successor_alive on %s: %v", ref, err)
		}
		if !alive {
			t.Errorf("%s reports a dead successor in a healthy ring", ref)
		}
	}

	// Replica coverage over the wire: after an interval every key is on
	// three consecutive nodes.
	time.Sleep(3 * interval)
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i)
		copies := 0
		for _, ref := range refs {
			for _, place := range []StorePlace{PlaceSelf, PlacePredecessor, PlaceSuccessor} {
				data, err := ctl.GetAllData(ref, place)
				if err != nil {
					t.Fatalf("get_all_data(%s) on %s: %v", place, ref, err)
				}
				if _, ok := data[key]; ok {
					copies++
				}
			}
		}
		if copies < 3 {
			t.Errorf("%s held in %d stores, want at least 3", key, copies)
		}
	}
}

func TestGracefulLeaveOverRPC(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network leave test in short mode")
	}

	interval := 200 * time.Millisecond
	timeout := 100 * time.Millisecond
	ports := []int{51011, 51012, 51013}

	refs := make([]NodeRef, len(ports))
	servers := make([]*Server, len(ports))
	for i, port := range ports {
		_, servers[i] = startRingServer(t, port, interval, timeout)
		refs[i] = NewNodeRef("localhost", port)
	}

	time.Sleep(2 * interval)
	ctl := NewRPCTransport(time.Second)
	for _, ref := range refs[1:] {
		if err := ctl.Join(ref, refs[0]); err != nil {
			t.Fatalf("join %s: %v", ref, err)
		}
	}
	time.Sleep(time.Duration(M+9) * interval)

	for i := 0; i < 10; i++ {
		if _, err := ctl.Put(refs[0], fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("put key-%d: %v", i, err)
		}
	}
	time.Sleep(3 * interval)

	if err := ctl.LeaveNetwork(refs[2]); err != nil {
		t.Fatalf("leave_network on %s: %v", refs[2], err)
	}
	// The node exits after a graceful leave; give the survivors time to
	// repoint fingers that still referenced it.
	servers[2].Stop()
	time.Sleep(time.Duration(M+9) * interval)

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := fmt.Sprintf("value-%d", i)
		res, err := ctl.Lookup(refs[0], key)
		if err != nil {
			t.Fatalf("lookup %s after leave: %v", key, err)
		}
		if res.Status != StatusValid || res.Value != want {
			t.Fatalf("lookup %s after leave = %+v, want %s", key, res, want)
		}
	}

	client := NewClient("localhost", ports[0], time.Second)
	members, err := client.Walk()
	if err != nil {
		t.Fatalf("ring walk after leave: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("ring has %d members after leave, want 2", len(members))
	}
}
