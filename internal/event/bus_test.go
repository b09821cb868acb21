package event

import (
	"testing"

	"github.com/verity-dev/verity/internal/role"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe(TypeTaskClaimed, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(NewTaskClaimedEvent(role.Design, "DES-001"))
	bus.Publish(NewTaskCompletedEvent(role.Design, "DES-001")) // different type, not delivered

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	claimed, ok := received[0].(TaskClaimedEvent)
	if !ok {
		t.Fatalf("expected TaskClaimedEvent, got %T", received[0])
	}
	if claimed.TaskID != "DES-001" || claimed.Role != role.Design {
		t.Errorf("event = %+v, want DES-001/design", claimed)
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewBus()

	var count int
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(NewFindingRecordedEvent("FND-001", "REQ-001", "high"))
	bus.Publish(NewRoleSignalEvent(role.Lead))
	bus.Publish(NewAggregateSignalEvent())

	if count != 3 {
		t.Errorf("wildcard handler called %d times, want 3", count)
	}
}

func TestSpecificHandlersCalledBeforeWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeRoleSignal, func(Event) { order = append(order, "specific") })

	bus.Publish(NewRoleSignalEvent(role.Verification))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("dispatch order = %v, want [specific wildcard]", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	var count int
	id := bus.Subscribe(TypeTaskClaimed, func(Event) { count++ })

	bus.Publish(NewTaskClaimedEvent(role.Design, "DES-001"))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for live subscription")
	}
	bus.Publish(NewTaskClaimedEvent(role.Design, "DES-002"))

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe returned true for removed subscription")
	}
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	var delivered bool
	bus.Subscribe(TypeFindingDisposed, func(Event) { panic("boom") })
	bus.Subscribe(TypeFindingDisposed, func(Event) { delivered = true })

	bus.Publish(NewFindingDisposedEvent("FND-001", "open", "accepted"))

	if !delivered {
		t.Error("second handler not called after first panicked")
	}
}

func TestEventTimestamps(t *testing.T) {
	e := NewTaskAssignedEvent(role.Design, "DES-009", "FND-003")
	if e.Timestamp().IsZero() {
		t.Error("expected non-zero timestamp")
	}
	if e.EventType() != TypeTaskAssigned {
		t.Errorf("EventType = %q, want %q", e.EventType(), TypeTaskAssigned)
	}
}
