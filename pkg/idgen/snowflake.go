package idgen

import (
	"errors"
	"sync"
	"time"
)

// ID layout, most significant first:
//
//	41 bits  milliseconds since Epoch
//	10 bits  node
//	12 bits  per-millisecond sequence
const (
	nodeBits     = 10
	sequenceBits = 12

	maxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits

	// Epoch is 2024-01-01T00:00:00Z in milliseconds.
	Epoch = 1704067200000

	// clockSkewTolerance is how far the clock may step back before Next gives up.
	clockSkewTolerance = 5 * time.Millisecond
)

var (
	ErrNodeIDTooLarge = errors.New("node ID too large")
	ErrClockMovedBack = errors.New("clock moved backwards")
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Generator hands out time-ordered, node-unique 64-bit ids.
type Generator struct {
	mu       sync.Mutex
	clock    Clock
	nodeID   int64
	lastMS   int64
	sequence int64
}

// New creates a generator for nodeID. A nil clock uses time.Now.
func New(nodeID int64, clock Clock) (*Generator, error) {
	if nodeID < 0 || nodeID > int64(maxNodeID) {
		return nil, ErrNodeIDTooLarge
	}
	if clock == nil {
		clock = time.Now
	}
	return &Generator{clock: clock, nodeID: nodeID, lastMS: -1}, nil
}

// Next returns the next id. Small backward clock steps are absorbed by
// reusing the last timestamp; larger ones fail with ErrClockMovedBack.
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock().UnixMilli()
	if now < g.lastMS {
		if g.lastMS-now > clockSkewTolerance.Milliseconds() {
			return 0, ErrClockMovedBack
		}
		now = g.lastMS
	}

	if now == g.lastMS {
		g.sequence = (g.sequence + 1) & int64(maxSequence)
		if g.sequence == 0 {
			for now <= g.lastMS {
				time.Sleep(100 * time.Microsecond)
				now = g.clock().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMS = now

	return ((now - Epoch) << timestampShift) | (g.nodeID << nodeShift) | g.sequence, nil
}

// Time extracts the wall-clock instant encoded in id.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + Epoch).UTC()
}

// Node extracts the node that minted id.
func Node(id int64) int64 {
	return (id >> nodeShift) & int64(maxNodeID)
}
