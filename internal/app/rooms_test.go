package app

import (
	"testing"
	"time"
)

func TestRoomRegistry_Create(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("s1", "s2")

	if room.ID == "" {
		t.Fatal("room id empty")
	}
	if !room.Active {
		t.Error("new room not active")
	}
	if room.MemberA != "s1" || room.MemberB != "s2" {
		t.Errorf("members = %q, %q", room.MemberA, room.MemberB)
	}
	if room.Initiator("s1") {
		t.Error("waiting session must not be the initiator")
	}
	if !room.Initiator("s2") {
		t.Error("arriving session must be the initiator")
	}

	got, ok := r.Get(room.ID)
	if !ok || got != room {
		t.Error("Get did not return the created room")
	}

	other := r.Create("s3", "s4")
	if other.ID == room.ID {
		t.Error("room ids collide")
	}
}

func TestRoomRegistry_Remove(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("s1", "s2")

	r.Remove(room.ID)
	if room.Active {
		t.Error("removed room still active")
	}
	if _, ok := r.Get(room.ID); ok {
		t.Error("removed room still retrievable")
	}

	// Idempotent for an already-removed id.
	r.Remove(room.ID)
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRoomRegistry_OlderThan(t *testing.T) {
	r := NewRoomRegistry()
	now := time.Now()
	r.now = func() time.Time { return now.Add(-2 * time.Hour) }
	old := r.Create("s1", "s2")
	r.now = func() time.Time { return now }
	fresh := r.Create("s3", "s4")

	stale := r.OlderThan(now.Add(-time.Hour))
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Fatalf("OlderThan returned %d rooms, want exactly the old one", len(stale))
	}
	if _, ok := r.Get(fresh.ID); !ok {
		t.Error("fresh room missing")
	}
}
