package dht

import "testing"

func TestHashIDRange(t *testing.T) {
	inputs := []string{"", "a", "localhost:50001", "key-0", "key-49", "some longer input string"}
	for _, s := range inputs {
		id := HashID(s)
		if id < 0 || id >= RingSize {
			t.Errorf("HashID(%q) = %d, outside [0, %d)", s, id, RingSize)
		}
	}
}

func TestHashIDDeterministic(t *testing.T) {
	if HashID("key-17") != HashID("key-17") {
		t.Fatal("HashID is not deterministic")
	}
}

func TestBetween(t *testing.T) {
	tests := []struct {
		x, a, b int
		want    bool
	}{
		{15, 10, 20, true},
		{20, 10, 20, true},
		{10, 10, 20, false},
		{21, 10, 20, false},
		{0, 7, 7, true},
		{7, 7, 7, true},
		// Wrap-around arc.
		{65000, 60000, 5, true},
		{3, 60000, 5, true},
		{5, 60000, 5, true},
		{60000, 60000, 5, false},
		{30000, 60000, 5, false},
	}
	for _, tt := range tests {
		if got := between(tt.x, tt.a, tt.b); got != tt.want {
			t.Errorf("between(%d, %d, %d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBetweenOpen(t *testing.T) {
	tests := []struct {
		x, a, b int
		want    bool
	}{
		{15, 10, 20, true},
		{20, 10, 20, false},
		{10, 10, 20, false},
		{7, 7, 7, false},
		{8, 7, 7, true},
		{3, 60000, 5, true},
		{5, 60000, 5, false},
		{61000, 60000, 5, true},
	}
	for _, tt := range tests {
		if got := betweenOpen(tt.x, tt.a, tt.b); got != tt.want {
			t.Errorf("betweenOpen(%d, %d, %d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNodeRefIdentity(t *testing.T) {
	a := NewNodeRef("localhost", 50001)
	b := NewNodeRef("localhost", 50001)
	c := NewNodeRef("localhost", 50002)

	if a.ID != HashID("localhost:50001") {
		t.Errorf("NodeRef id = %d, want HashID of the endpoint", a.ID)
	}
	if !a.Equal(b) {
		t.Error("references to the same endpoint must be equal")
	}
	if a.Equal(c) {
		t.Error("references to different endpoints must differ")
	}
	if !a.Valid {
		t.Error("NewNodeRef must produce a valid reference")
	}
	if s := sentinelRef("localhost", 50001); s.Valid || s.ID != a.ID {
		t.Errorf("sentinelRef = %+v, want invalid ref with the node's own id", s)
	}
}
