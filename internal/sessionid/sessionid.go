// Package sessionid generates opaque RTSP Session identifiers.
package sessionid

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Generator produces session IDs unique for the server's lifetime. It
// wraps a Snowflake node so IDs stay monotonic and collision-free across
// goroutines; the node serializes generation internally.
type Generator struct {
	once sync.Once
	node *snowflake.Node
}

// NewGenerator constructs a Generator. workerID distinguishes multiple
// server processes sharing a Snowflake epoch; 1 is fine for a single
// instance.
func NewGenerator(workerID int64) (*Generator, error) {
	node, err := snowflake.NewNode(workerID)
	if err != nil {
		return nil, err
	}
	return &Generator{node: node}, nil
}

// Next returns a fresh opaque, URL-safe session token at least 8
// characters long. Base36 encoding of the Snowflake int64 keeps it
// short and free of characters that need RTSP header escaping.
func (g *Generator) Next() string {
	id := g.node.Generate().Int64()
	s := strconv.FormatInt(id, 36)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}
