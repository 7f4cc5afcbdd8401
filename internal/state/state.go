package state

import (
	"sync"

	"github.com/Fyssion/zupplin/internal/proto"
)

// Snapshot is a consistent, caller-owned copy of the session state.
// Mutating a snapshot never affects the store.
type Snapshot struct {
	User     *proto.User
	Rooms    map[proto.ID]proto.Room
	Messages map[proto.ID]map[proto.ID]proto.Message
}

// Store holds the client's authoritative view of the session: the current
// user, the rooms they belong to, and the known messages per room. Writers
// are the bootstrap sequence and the event reconciler; the presentation
// layer observes via Subscribe. Entries only grow or get replaced by id,
// never pruned.
type Store struct {
	mu       sync.Mutex
	user     *proto.User
	rooms    map[proto.ID]proto.Room
	messages map[proto.ID]map[proto.ID]proto.Message

	nextSub     int
	subscribers map[int]func(Snapshot)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms:       make(map[proto.ID]proto.Room),
		messages:    make(map[proto.ID]map[proto.ID]proto.Message),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// SetUser replaces the current user wholesale.
func (s *Store) SetUser(user proto.User) {
	s.mu.Lock()
	u := user
	s.user = &u
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(snap, subs)
}

// MergeRooms inserts every given room by id. Used by the bootstrap snapshot;
// later arrivals win over earlier ones for the same id.
func (s *Store) MergeRooms(rooms map[proto.ID]proto.Room) {
	s.mu.Lock()
	for id, room := range rooms {
		s.rooms[id] = room
	}
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(snap, subs)
}

// UpsertRoom inserts or replaces one room by id.
func (s *Store) UpsertRoom(room proto.Room) {
	s.mu.Lock()
	s.rooms[room.ID] = room
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(snap, subs)
}

// UpsertMessage inserts or replaces a message under its room. The inner
// mapping is created on first insert; the message is always keyed by its
// own room_id, so a stored message's room key and RoomID field agree.
func (s *Store) UpsertMessage(msg proto.Message) {
	s.mu.Lock()
	inner, ok := s.messages[msg.RoomID]
	if !ok {
		inner = make(map[proto.ID]proto.Message)
		s.messages[msg.RoomID] = inner
	}
	inner[msg.ID] = msg
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(snap, subs)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer invoked with a fresh snapshot after every
// mutation. The returned function removes the subscription. Observers run
// synchronously on the mutating goroutine, so they see publications in
// application order.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Rooms:    make(map[proto.ID]proto.Room, len(s.rooms)),
		Messages: make(map[proto.ID]map[proto.ID]proto.Message, len(s.messages)),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	for id, room := range s.rooms {
		snap.Rooms[id] = room
	}
	for roomID, inner := range s.messages {
		msgs := make(map[proto.ID]proto.Message, len(inner))
		for id, msg := range inner {
			msgs[id] = msg
		}
		snap.Messages[roomID] = msgs
	}
	return snap
}

func (s *Store) publishLocked() (Snapshot, []func(Snapshot)) {
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return s.snapshotLocked(), subs
}

func notify(snap Snapshot, subs []func(Snapshot)) {
	for _, fn := range subs {
		fn(snap)
	}
}
