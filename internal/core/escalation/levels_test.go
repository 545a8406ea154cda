package escalation

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultLevelTable(t *testing.T) {
	table := DefaultLevelTable()

	if table.Max() != 4 {
		t.Fatalf("Max() = %d, want 4", table.Max())
	}

	l1, ok := table.Get(1)
	if !ok || l1.ConfirmationRequired {
		t.Errorf("level 1 = %+v, want automated without confirmation", l1)
	}
	for n := 2; n <= 4; n++ {
		l, ok := table.Get(n)
		if !ok {
			t.Fatalf("level %d missing", n)
		}
		if !l.ConfirmationRequired || l.MaxResponseHours <= 0 {
			t.Errorf("level %d = %+v, want confirmation with positive SLA", n, l)
		}
	}

	l4, _ := table.Get(4)
	if l4.ResponseWindow() != 30*time.Minute {
		t.Errorf("level 4 window = %v, want 30m", l4.ResponseWindow())
	}
}

func TestGetNextEscalationLevel(t *testing.T) {
	table := DefaultLevelTable()

	if got := GetNextEscalationLevel(table, 4); got != nil {
		t.Errorf("GetNextEscalationLevel(4) = %+v, want nil", got)
	}

	got := GetNextEscalationLevel(table, 1)
	if got == nil {
		t.Fatal("GetNextEscalationLevel(1) = nil, want level 2")
	}
	want, _ := table.Get(2)
	if *got != want {
		t.Errorf("GetNextEscalationLevel(1) = %+v, want %+v", *got, want)
	}
}

func TestNewLevelTable_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		levels []Level
	}{
		{name: "empty", levels: nil},
		{name: "zero level", levels: []Level{{Level: 0}}},
		{name: "duplicate", levels: []Level{{Level: 1}, {Level: 1}}},
		{name: "gap", levels: []Level{{Level: 1}, {Level: 3}}},
		{name: "negative hours", levels: []Level{{Level: 1, MaxResponseHours: -1}}},
		{name: "confirmation without window", levels: []Level{{Level: 1, ConfirmationRequired: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLevelTable(tt.levels)
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("NewLevelTable() err = %v, want ErrInvalidLevel", err)
			}
		})
	}
}

func TestLevelTable_Levels(t *testing.T) {
	table, err := NewLevelTable([]Level{
		{Level: 2, Name: "b", MaxResponseHours: 1, ConfirmationRequired: true},
		{Level: 1, Name: "a"},
	})
	if err != nil {
		t.Fatalf("NewLevelTable() error = %v", err)
	}

	levels := table.Levels()
	if len(levels) != 2 || levels[0].Name != "a" || levels[1].Name != "b" {
		t.Errorf("Levels() = %+v, want ascending a, b", levels)
	}
}
