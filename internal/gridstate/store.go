// Package gridstate holds the client-side view of the schedule grid and
// folds slot-change records from the subscription stream into it.
//
// The store is the single shared mutable resource of the client: the
// snapshot seed, the change merger, and operation completions all
// mutate it. All access is serialized through one mutex so the three
// sources interleave only at whole-handler granularity.
package gridstate

import (
	"errors"
	"sort"
	"sync"

	"barcampgrid/internal/domain"
)

// ErrAlreadyInitialized is returned when Initialize is called more than
// once; the grid is seeded exactly once per view session.
var ErrAlreadyInitialized = errors.New("grid store is already initialized")

// Store owns the in-memory grid. Readers receive copies; the internal
// grid is never exposed.
type Store struct {
	mu   sync.RWMutex
	grid *domain.Grid
}

func NewStore() *Store {
	return &Store{}
}

// Initialize seeds the store from a full snapshot. It must be called
// exactly once, before any change is applied.
func (s *Store) Initialize(grid *domain.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid != nil {
		return ErrAlreadyInitialized
	}
	s.grid = cloneGrid(grid)
	return nil
}

// Initialized reports whether the store has been seeded.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid != nil
}

// Sessions returns a copy of every session in display order.
func (s *Store) Sessions() []*domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil
	}
	return cloneGrid(s.grid).Sessions
}

// Rooms derives the room rows: the distinct rooms referenced by any
// slot across any session, deduplicated by ID and sorted by name
// ascending.
func (s *Store) Rooms() []*domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var rooms []*domain.Room
	for _, session := range s.grid.Sessions {
		for _, slot := range session.Slots {
			if slot.Room == nil {
				continue
			}
			if _, ok := seen[slot.Room.ID]; ok {
				continue
			}
			seen[slot.Room.ID] = struct{}{}
			rooms = append(rooms, &domain.Room{ID: slot.Room.ID, Name: slot.Room.Name})
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// Slot returns a copy of the slot at the (session, room) cell, or nil
// when the session is a banner row or has no slot for that room.
func (s *Store) Slot(sessionID, roomID string) *domain.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil
	}
	for _, session := range s.grid.Sessions {
		if session.ID != sessionID {
			continue
		}
		if session.IsBanner() {
			return nil
		}
		for _, slot := range session.Slots {
			if slot.Room != nil && slot.Room.ID == roomID {
				return cloneSlot(slot)
			}
		}
		return nil
	}
	return nil
}

// SlotByID returns a copy of the slot with the given ID, or nil when no
// slot matches.
func (s *Store) SlotByID(slotID string) *domain.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil
	}
	for _, session := range s.grid.Sessions {
		for _, slot := range session.Slots {
			if slot.ID == slotID {
				return cloneSlot(slot)
			}
		}
	}
	return nil
}

// FindTalk returns a copy of the talk with the given ID and the ID of
// the slot holding it, or nil when the talk is not on the grid.
func (s *Store) FindTalk(talkID string) (*domain.Talk, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil, ""
	}
	for _, session := range s.grid.Sessions {
		for _, slot := range session.Slots {
			if slot.Talk != nil && slot.Talk.ID == talkID {
				return cloneTalk(slot.Talk), slot.ID
			}
		}
	}
	return nil, ""
}

func cloneGrid(g *domain.Grid) *domain.Grid {
	if g == nil {
		return nil
	}
	out := &domain.Grid{Sessions: make([]*domain.Session, 0, len(g.Sessions))}
	for _, session := range g.Sessions {
		cp := &domain.Session{
			ID:        session.ID,
			Name:      session.Name,
			Event:     session.Event,
			StartTime: session.StartTime,
			EndTime:   session.EndTime,
		}
		if session.Slots != nil {
			cp.Slots = make([]*domain.Slot, 0, len(session.Slots))
			for _, slot := range session.Slots {
				cp.Slots = append(cp.Slots, cloneSlot(slot))
			}
		}
		out.Sessions = append(out.Sessions, cp)
	}
	return out
}

func cloneSlot(s *domain.Slot) *domain.Slot {
	if s == nil {
		return nil
	}
	cp := &domain.Slot{ID: s.ID, Talk: cloneTalk(s.Talk)}
	if s.Room != nil {
		cp.Room = &domain.Room{ID: s.Room.ID, Name: s.Room.Name}
	}
	return cp
}

func cloneTalk(t *domain.Talk) *domain.Talk {
	if t == nil {
		return nil
	}
	cp := &domain.Talk{
		ID:               t.ID,
		Title:            t.Title,
		IsOpenDiscussion: t.IsOpenDiscussion,
		OwnerID:          t.OwnerID,
	}
	if t.Speakers != nil {
		cp.Speakers = make([]*domain.Speaker, 0, len(t.Speakers))
		for _, sp := range t.Speakers {
			cp.Speakers = append(cp.Speakers, &domain.Speaker{ID: sp.ID, Name: sp.Name})
		}
	}
	return cp
}
