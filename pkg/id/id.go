// Package id provides 128-bit, lexicographically sortable identifiers for
// queue instances and in-flight records. An ID encodes big-endian
// [8 bytes unix ms][8 bytes per-process sequence], so byte order equals
// creation order within one process.
package id

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

// ID is a 16-byte sortable identifier.
type ID [16]byte

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, i[:])
	return b
}

// String returns the hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Short returns the low 8 bytes in hex, compact enough for log fields.
func (i ID) Short() string { return hex.EncodeToString(i[8:]) }

// Compare returns -1, 0, or 1 by byte order, which is also creation order.
func (i ID) Compare(other ID) int {
	for n := 0; n < 16; n++ {
		switch {
		case i[n] < other[n]:
			return -1
		case i[n] > other[n]:
			return 1
		}
	}
	return 0
}

// NowMs returns the current unix time in milliseconds. Swappable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Generator produces monotonically increasing IDs. Safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns a new ID strictly greater than all previous ones from this
// generator. A clock regression reuses the last timestamp and advances the
// sequence; a sequence overflow within one millisecond waits for the next.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	switch {
	case ms != g.lastMs:
		g.seq = 0
	case g.seq == math.MaxUint64:
		for ms <= g.lastMs {
			time.Sleep(time.Millisecond / 8)
			ms = NowMs()
		}
		g.seq = 0
	default:
		g.seq++
	}
	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.seq)
	return out
}
