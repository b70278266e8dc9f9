package dht

import (
	"crypto/sha1"
	"math/big"
)

const (
	// M is the number of identifier bits.
	M = 16
	// RingSize is the size of the identifier space, 2^M. Identifiers and
	// all ring arithmetic are taken modulo this value.
	RingSize = 1 << M
)

// HashID maps an arbitrary string onto the ring: SHA-1 truncated mod 2^M.
func HashID(s string) int {
	h := sha1.New()
	h.Write([]byte(s))
	sum := new(big.Int).SetBytes(h.Sum(nil))
	return int(sum.Mod(sum, big.NewInt(RingSize)).Int64())
}

// between reports whether x lies on the clockwise arc (a, b]. When
// a == b the arc is the whole ring.
func between(x, a, b int) bool {
	switch {
	case a < b:
		return a < x && x <= b
	case a == b:
		return true
	default:
		return x > a || x <= b
	}
}

// betweenOpen reports whether x lies strictly inside the arc (a, b).
func betweenOpen(x, a, b int) bool {
	switch {
	case a < b:
		return a < x && x < b
	case a == b:
		return x != a
	default:
		return x > a || x < b
	}
}
