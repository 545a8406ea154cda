// Package escalation contains the pure business logic for claim escalation:
// the level ladder, the decision cascade and the state transitions.
// This is part of the Functional Core - no I/O, only pure functions.
package escalation

import (
	"fmt"
	"sort"
	"time"
)

// Level describes one rung of the escalation ladder.
type Level struct {
	Level                int     `yaml:"level"`
	Name                 string  `yaml:"name"`
	Description          string  `yaml:"description"`
	MaxResponseHours     float64 `yaml:"max_response_hours"`
	ConfirmationRequired bool    `yaml:"confirmation_required"`
}

// ResponseWindow returns the SLA as a duration.
func (l Level) ResponseWindow() time.Duration {
	return time.Duration(l.MaxResponseHours * float64(time.Hour))
}

// DefaultLevels returns the built-in four-level ladder.
func DefaultLevels() []Level {
	return []Level{
		{
			Level:                1,
			Name:                 "Automated",
			Description:          "Handled by automated claim processing",
			MaxResponseHours:     0,
			ConfirmationRequired: false,
		},
		{
			Level:                2,
			Name:                 "Tier-1 Agent",
			Description:          "Reviewed by a front-line claims agent",
			MaxResponseHours:     2,
			ConfirmationRequired: true,
		},
		{
			Level:                3,
			Name:                 "Senior Agent",
			Description:          "Reviewed by a senior claims adjuster",
			MaxResponseHours:     1,
			ConfirmationRequired: true,
		},
		{
			Level:                4,
			Name:                 "Specialist",
			Description:          "Handled by a fraud or legal specialist",
			MaxResponseHours:     0.5,
			ConfirmationRequired: true,
		},
	}
}

// LevelTable is an immutable, validated set of levels keyed by number.
type LevelTable struct {
	levels map[int]Level
	max    int
}

// NewLevelTable validates levels and builds a table.
// Levels must be numbered 1..n without gaps or duplicates.
func NewLevelTable(levels []Level) (*LevelTable, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no levels defined", ErrInvalidLevel)
	}

	t := &LevelTable{levels: make(map[int]Level, len(levels))}
	for _, l := range levels {
		if l.Level < 1 {
			return nil, fmt.Errorf("%w: level %d must be >= 1", ErrInvalidLevel, l.Level)
		}
		if _, dup := t.levels[l.Level]; dup {
			return nil, fmt.Errorf("%w: level %d defined twice", ErrInvalidLevel, l.Level)
		}
		if l.MaxResponseHours < 0 {
			return nil, fmt.Errorf("%w: level %d has negative response time", ErrInvalidLevel, l.Level)
		}
		if l.ConfirmationRequired && l.MaxResponseHours == 0 {
			return nil, fmt.Errorf("%w: level %d requires confirmation but has no response time", ErrInvalidLevel, l.Level)
		}
		t.levels[l.Level] = l
		if l.Level > t.max {
			t.max = l.Level
		}
	}
	if t.max != len(levels) {
		return nil, fmt.Errorf("%w: levels must be numbered 1..%d without gaps", ErrInvalidLevel, len(levels))
	}

	return t, nil
}

// DefaultLevelTable returns the table built from DefaultLevels.
func DefaultLevelTable() *LevelTable {
	t, err := NewLevelTable(DefaultLevels())
	if err != nil {
		panic(err)
	}
	return t
}

// Get returns the level definition for n.
func (t *LevelTable) Get(n int) (Level, bool) {
	l, ok := t.levels[n]
	return l, ok
}

// Next returns the level above n, or false at the ceiling.
func (t *LevelTable) Next(n int) (Level, bool) {
	return t.Get(n + 1)
}

// Max returns the highest level number.
func (t *LevelTable) Max() int {
	return t.max
}

// Levels returns all levels in ascending order.
func (t *LevelTable) Levels() []Level {
	out := make([]Level, 0, len(t.levels))
	for _, l := range t.levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
