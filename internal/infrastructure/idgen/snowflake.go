// Package idgen produces human-readable document numbers.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/clutch/ledger/internal/domain/shared"
)

// SnowflakeNumbers issues numbers such as JE-1745623950126239744. Numbers
// are unique across replicas as long as every replica runs with its own node id.
type SnowflakeNumbers struct {
	node *snowflake.Node
}

// NewSnowflakeNumbers creates a generator for the given node (0-1023)
func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeNumbers{node: node}, nil
}

// Next implements shared.NumberGenerator
func (g *SnowflakeNumbers) Next(prefix string) string {
	return prefix + "-" + g.node.Generate().String()
}

var _ shared.NumberGenerator = (*SnowflakeNumbers)(nil)
