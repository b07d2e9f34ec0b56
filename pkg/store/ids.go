package store

import (
	"fmt"
	"sync"
	"time"
)

// Message ids are snowflakes: millisecond timestamp, generator id, sequence.
// They sort by creation time, which the scylla schema relies on for its
// clustering order.
const (
	idGenBits   = 10
	idSeqBits   = 12
	idGenMax    = -1 ^ (-1 << idGenBits)
	idSeqMask   = -1 ^ (-1 << idSeqBits)
	idTimeShift = idGenBits + idSeqBits
	idGenShift  = idSeqBits
	idEpochMs   = int64(1704067200000) // 2024-01-01 00:00:00 UTC
)

// IDGenerator produces unique, time-ordered message ids. Safe for concurrent
// use. Each running instance needs a distinct generator id.
type IDGenerator struct {
	mu   sync.Mutex
	gen  int64
	last int64
	seq  int64
}

func NewIDGenerator(gen int64) (*IDGenerator, error) {
	if gen < 0 || gen > idGenMax {
		return nil, fmt.Errorf("generator id must be between 0 and %d", idGenMax)
	}
	return &IDGenerator{gen: gen}, nil
}

func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.last {
		// Clock moved backwards; keep issuing against the last seen time.
		now = g.last
	}

	if now == g.last {
		g.seq = (g.seq + 1) & idSeqMask
		if g.seq == 0 {
			for now <= g.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.seq = 0
	}
	g.last = now

	return ((now - idEpochMs) << idTimeShift) | (g.gen << idGenShift) | g.seq
}
