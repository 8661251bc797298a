package registry

import (
	"testing"

	"github.com/ciena/dfadapter/events"
	"github.com/google/go-cmp/cmp"
)

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	first := 0
	if err := r.Register(3, func(*events.PacketIn) { first++ }); err != nil {
		t.Fatalf("Unexpected error on first registration : %s", err)
	}
	if err := r.Register(3, func(*events.PacketIn) {}); err != ErrTableRegistered {
		t.Errorf("Expected ErrTableRegistered, got %v", err)
	}

	h, ok := r.Lookup(3)
	if !ok {
		t.Fatal("Expected handler for table 3")
	}
	h(&events.PacketIn{})
	if first != 1 {
		t.Errorf("Expected first handler to be kept, called %d times", first)
	}
}

func TestRegisterDistinct(t *testing.T) {
	r := New()
	var got []events.TableID
	for _, table := range []events.TableID{7, 2} {
		table := table
		if err := r.Register(table, func(*events.PacketIn) { got = append(got, table) }); err != nil {
			t.Fatalf("Unexpected error registering table %d : %s", table, err)
		}
	}

	for _, table := range []events.TableID{2, 7} {
		h, ok := r.Lookup(table)
		if !ok {
			t.Fatalf("Expected handler for table %d", table)
		}
		h(&events.PacketIn{})
	}
	if diff := cmp.Diff([]events.TableID{2, 7}, got); diff != "" {
		t.Errorf("Unexpected handler invocations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]events.TableID{2, 7}, r.Tables()); diff != "" {
		t.Errorf("Unexpected table list (-want +got):\n%s", diff)
	}
}

func TestUnregister(t *testing.T) {
	r := New()

	// Removing a table that was never registered is a no-op
	r.Unregister(9)

	if err := r.Register(9, func(*events.PacketIn) {}); err != nil {
		t.Fatalf("Unexpected error : %s", err)
	}
	r.Unregister(9)
	if _, ok := r.Lookup(9); ok {
		t.Error("Expected no handler after unregister")
	}
	if err := r.Register(9, func(*events.PacketIn) {}); err != nil {
		t.Errorf("Expected re-registration to succeed, got %s", err)
	}
}
