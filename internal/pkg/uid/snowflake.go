package uid

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered 63-bit ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator for the given node number. A negative node
// is derived from the hostname so replicas rarely collide without config.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 {
		node = hostNode()
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func hostNode() int64 {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return int64(h.Sum32() % (1 << snowflake.NodeBits))
}
