// Package assignment picks the agent an escalation is routed to.
package assignment

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// ErrEmptyPool is returned when a level has no agents configured.
var ErrEmptyPool = errors.New("agent pool is empty")

// Strategy chooses one agent from a pool. load holds the number of open
// escalations per agent and may be nil for strategies that ignore it.
type Strategy interface {
	Name() string
	Pick(pool []string, load map[string]int) (string, error)
}

// LoadAware is implemented by strategies that need current agent load.
// Callers skip the load query for strategies that don't implement it.
type LoadAware interface {
	NeedsLoad() bool
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch name {
	case "", "random":
		return NewRandom(), nil
	case "round_robin":
		return NewRoundRobin(), nil
	case "least_loaded":
		return LeastLoaded{}, nil
	default:
		return nil, fmt.Errorf("unknown assignment strategy %q (must be random, round_robin or least_loaded)", name)
	}
}

// Random picks uniformly from the pool.
type Random struct {
	intn func(n int) int
}

// NewRandom returns a Random strategy using the global source.
func NewRandom() *Random {
	return &Random{intn: rand.IntN}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Pick(pool []string, _ map[string]int) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	return pool[r.intn(len(pool))], nil
}

// RoundRobin cycles through each distinct pool in order.
type RoundRobin struct {
	mu   sync.Mutex
	next map[string]int
}

// NewRoundRobin returns a RoundRobin strategy with fresh cursors.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{next: make(map[string]int)}
}

func (r *RoundRobin) Name() string { return "round_robin" }

func (r *RoundRobin) Pick(pool []string, _ map[string]int) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	key := fmt.Sprint(pool)

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.next[key] % len(pool)
	r.next[key] = i + 1
	return pool[i], nil
}

// LeastLoaded picks the agent with the fewest open escalations.
// Ties go to the agent listed first in the pool.
type LeastLoaded struct{}

func (LeastLoaded) Name() string    { return "least_loaded" }
func (LeastLoaded) NeedsLoad() bool { return true }

func (LeastLoaded) Pick(pool []string, load map[string]int) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return load[pool[order[a]]] < load[pool[order[b]]]
	})
	return pool[order[0]], nil
}
