package id

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init configures the process-wide snowflake node. Trigger and proposal ids
// from different replicas stay unique as long as each replica has its own nodeID.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New returns a time-ordered id. Init must have been called.
func New() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		panic("id: New called before Init")
	}
	return n.Generate().Int64()
}

// Sequence returns a generator of 1, 2, 3, ... for offline runs that never
// persist what they produce.
func Sequence() func() int64 {
	var n atomic.Int64
	return func() int64 { return n.Add(1) }
}
