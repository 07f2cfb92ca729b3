// internal/id/snowflake.go
package id

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// ErrAlreadyInitialized is returned by Init once a node is in use, whether
// set by an earlier Init or by New falling back to node 0.
var ErrAlreadyInitialized = errors.New("id: snowflake node already initialized")

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets the snowflake node for this process. It must run before the
// first New.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()

	if node != nil {
		return ErrAlreadyInitialized
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// New returns a time-ordered int64 id, unique across nodes. Without a prior
// Init it uses node 0.
func New() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
