package signal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
)

func TestEmitRoleCreatesMarker(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := s.EmitRole(role.Design); err != nil {
		t.Fatalf("EmitRole: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "signals", "design.done")); err != nil {
		t.Fatalf("marker missing: %v", err)
	}
	present, err := s.RolePresent(role.Design)
	if err != nil {
		t.Fatalf("RolePresent: %v", err)
	}
	if !present {
		t.Error("RolePresent = false after emit")
	}
}

func TestEmitRoleIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus()
	var published int
	bus.Subscribe(event.TypeRoleSignal, func(event.Event) { published++ })
	s := NewStore(dir, WithBus(bus))

	for i := 0; i < 3; i++ {
		if err := s.EmitRole(role.Lead); err != nil {
			t.Fatalf("EmitRole #%d: %v", i, err)
		}
	}
	if published != 1 {
		t.Errorf("published %d role signal events, want 1", published)
	}
}

func TestEmitRoleRejectsUnknownRole(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.EmitRole(role.Role("auditor")); err == nil {
		t.Error("EmitRole accepted an unknown role")
	}
}

func TestAggregateCombinations(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		dir := t.TempDir()
		s := NewStore(dir)
		for i, r := range role.All {
			if mask&(1<<i) != 0 {
				if err := s.EmitRole(r); err != nil {
					t.Fatalf("mask %03b EmitRole(%s): %v", mask, r, err)
				}
			}
		}
		emitted, err := s.EmitAggregate()
		if err != nil {
			t.Fatalf("mask %03b EmitAggregate: %v", mask, err)
		}
		want := mask == 7
		if emitted != want {
			t.Errorf("mask %03b: aggregate emitted = %v, want %v", mask, emitted, want)
		}
		present, err := s.AggregatePresent()
		if err != nil {
			t.Fatalf("mask %03b AggregatePresent: %v", mask, err)
		}
		if present != want {
			t.Errorf("mask %03b: aggregate present = %v, want %v", mask, present, want)
		}
	}
}

func TestEmitAggregateIsIdempotent(t *testing.T) {
	bus := event.NewBus()
	var published int
	bus.Subscribe(event.TypeAggregateSignal, func(event.Event) { published++ })
	s := NewStore(t.TempDir(), WithBus(bus))

	for _, r := range role.All {
		if err := s.EmitRole(r); err != nil {
			t.Fatalf("EmitRole(%s): %v", r, err)
		}
	}
	for i := 0; i < 3; i++ {
		emitted, err := s.EmitAggregate()
		if err != nil {
			t.Fatalf("EmitAggregate #%d: %v", i, err)
		}
		if !emitted {
			t.Errorf("EmitAggregate #%d = false, want true", i)
		}
	}
	if published != 1 {
		t.Errorf("published %d aggregate events, want 1", published)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.EmitRole(role.Verification); err != nil {
		t.Fatalf("EmitRole: %v", err)
	}

	roles, aggregate, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if aggregate {
		t.Error("aggregate present without all role signals")
	}
	want := map[role.Role]bool{
		role.Lead:         false,
		role.Design:       false,
		role.Verification: true,
	}
	for r, w := range want {
		if roles[r] != w {
			t.Errorf("roles[%s] = %v, want %v", r, roles[r], w)
		}
	}
}
