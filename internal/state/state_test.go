package state

import (
	"testing"

	"github.com/Fyssion/zupplin/internal/proto"
)

func TestUpsertMessageCreatesInnerMapping(t *testing.T) {
	st := New()

	msg := proto.Message{ID: "m1", RoomID: "r1", Content: "hi"}
	st.UpsertMessage(msg)

	snap := st.Snapshot()
	inner, ok := snap.Messages["r1"]
	if !ok {
		t.Fatalf("expected inner mapping for r1, got %+v", snap.Messages)
	}
	if got := inner["m1"]; got.Content != "hi" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestUpsertMessageLastWriteWins(t *testing.T) {
	st := New()

	st.UpsertMessage(proto.Message{ID: "m1", RoomID: "r1", Content: "first"})
	st.UpsertMessage(proto.Message{ID: "m1", RoomID: "r1", Content: "second"})

	snap := st.Snapshot()
	if len(snap.Messages["r1"]) != 1 {
		t.Fatalf("expected one entry, got %d", len(snap.Messages["r1"]))
	}
	if got := snap.Messages["r1"]["m1"]; got.Content != "second" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

func TestUpsertRoomLeavesOthersUntouched(t *testing.T) {
	st := New()

	st.UpsertRoom(proto.Room{ID: "r1", Name: "general"})
	st.UpsertRoom(proto.Room{ID: "r2", Name: "random"})
	st.UpsertRoom(proto.Room{ID: "r2", Name: "renamed"})

	snap := st.Snapshot()
	if snap.Rooms["r1"].Name != "general" {
		t.Fatalf("r1 changed: %+v", snap.Rooms["r1"])
	}
	if snap.Rooms["r2"].Name != "renamed" {
		t.Fatalf("r2 not replaced: %+v", snap.Rooms["r2"])
	}
}

func TestMergeRoomsPublishesOnce(t *testing.T) {
	st := New()

	var publications int
	st.Subscribe(func(Snapshot) { publications++ })

	st.MergeRooms(map[proto.ID]proto.Room{
		"r1": {ID: "r1"},
		"r2": {ID: "r2"},
	})

	if publications != 1 {
		t.Fatalf("expected 1 publication for bootstrap merge, got %d", publications)
	}
	if len(st.Snapshot().Rooms) != 2 {
		t.Fatalf("unexpected rooms: %+v", st.Snapshot().Rooms)
	}
}

func TestEveryMutationPublishesExactlyOnce(t *testing.T) {
	st := New()

	var publications int
	st.Subscribe(func(Snapshot) { publications++ })

	st.SetUser(proto.User{ID: "u1", Name: "Alice"})
	st.UpsertRoom(proto.Room{ID: "r1"})
	st.UpsertMessage(proto.Message{ID: "m1", RoomID: "r1"})

	if publications != 3 {
		t.Fatalf("expected 3 publications, got %d", publications)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	st := New()
	st.UpsertMessage(proto.Message{ID: "m1", RoomID: "r1", Content: "hi"})

	snap := st.Snapshot()
	snap.Rooms["rogue"] = proto.Room{ID: "rogue"}
	snap.Messages["r1"]["m1"] = proto.Message{ID: "m1", RoomID: "r1", Content: "tampered"}

	fresh := st.Snapshot()
	if _, ok := fresh.Rooms["rogue"]; ok {
		t.Fatal("snapshot mutation leaked into store rooms")
	}
	if fresh.Messages["r1"]["m1"].Content != "hi" {
		t.Fatalf("snapshot mutation leaked into store messages: %+v", fresh.Messages["r1"]["m1"])
	}
}

func TestSubscriberReceivesSnapshotOfMutation(t *testing.T) {
	st := New()

	var seen []Snapshot
	st.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	st.UpsertRoom(proto.Room{ID: "r1", Name: "general"})

	if len(seen) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(seen))
	}
	if seen[0].Rooms["r1"].Name != "general" {
		t.Fatalf("snapshot missing mutation: %+v", seen[0].Rooms)
	}
}

func TestUnsubscribeStopsPublications(t *testing.T) {
	st := New()

	var publications int
	unsubscribe := st.Subscribe(func(Snapshot) { publications++ })

	st.UpsertRoom(proto.Room{ID: "r1"})
	unsubscribe()
	st.UpsertRoom(proto.Room{ID: "r2"})

	if publications != 1 {
		t.Fatalf("expected 1 publication after unsubscribe, got %d", publications)
	}
}
