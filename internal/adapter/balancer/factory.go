package balancer

import (
	"fmt"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/ports"
)

const (
	StrategyRoundRobin         = "round_robin"
	StrategyRandom             = "random"
	StrategyWeightedRoundRobin = "weighted_round_robin"
	StrategyPriority           = "priority"
	StrategyLeastConnections   = "least_connections"
)

// New builds a ports.EndpointSelector for the named strategy over g.
// Ring-hash, sticky-session, and slow-start strategies are documented
// extension points conforming to ports.EndpointSelector, not built here.
func New(strategy string, g group.Group) (ports.EndpointSelector, error) {
	switch strategy {
	case StrategyRoundRobin, "":
		return NewRoundRobinSelector(g), nil
	case StrategyRandom:
		return NewRandomSelector(g), nil
	case StrategyWeightedRoundRobin:
		return NewWeightedRoundRobinSelector(g), nil
	case StrategyPriority:
		return NewPrioritySelector(g), nil
	case StrategyLeastConnections:
		return NewLeastConnectionsSelector(g), nil
	default:
		return nil, fmt.Errorf("balancer: unknown strategy %q", strategy)
	}
}
