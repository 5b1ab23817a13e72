package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for grid operations.
var (
	ErrNotFound     = errors.New("not found")
	ErrSlotOccupied = errors.New("slot is already occupied")
	ErrNotTalkOwner = errors.New("talk is owned by another user")
)

// Speaker is a registered user exposed as reference data for talk
// attribution. Many-to-many with Talk.
type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Talk is a scheduled presentation or open discussion. A talk exists
// only while a slot holds it; removal clears the slot and deletes the
// talk. Speakers are ordered: the first entry is the primary speaker,
// the rest are additional speakers.
type Talk struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	IsOpenDiscussion bool       `json:"is_open_discussion"`
	OwnerID          string     `json:"owner_id"`
	Speakers         []*Speaker `json:"speakers"`
}

// OwnedBy reports whether the given user may edit or remove the talk.
// This is a capability check for display affordances; the authority
// independently enforces ownership on every mutation.
func (t *Talk) OwnedBy(userID string) bool {
	return userID != "" && t.OwnerID == userID
}

// AdditionalSpeakerIDs returns the IDs of every speaker after the
// primary one, in order.
func (t *Talk) AdditionalSpeakerIDs() []string {
	if len(t.Speakers) <= 1 {
		return []string{}
	}
	ids := make([]string, 0, len(t.Speakers)-1)
	for _, s := range t.Speakers[1:] {
		ids = append(ids, s.ID)
	}
	return ids
}

// Room is a track at the event. Rooms are not fetched separately; they
// are derived from the distinct rooms referenced by slots.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Slot is one (session, room) cell of the grid. It holds at most one
// talk; a given talk occupies at most one slot across the whole grid.
type Slot struct {
	ID   string `json:"id"`
	Room *Room  `json:"room"`
	Talk *Talk  `json:"talk"`
}

// Session is one time column of the grid. A session with a non-empty
// Event label is a cross-room banner row and carries no slots.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Event     string    `json:"event"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Slots     []*Slot   `json:"slots"`
}

// IsBanner reports whether the session spans all rooms as an event
// banner instead of exposing per-room slots.
func (s *Session) IsBanner() bool {
	return s.Event != ""
}

// Grid is the aggregate root: sessions in display order, as given by
// the authority.
type Grid struct {
	Sessions []*Session `json:"sessions"`
}

// SlotChange is one record of the slot-change stream: the identified
// slot now holds Talk (nil when the talk was removed or moved out with
// no replacement). When a talk moves, only the destination slot is
// reported; consumers clear the previous slot themselves.
type SlotChange struct {
	SlotID string `json:"slot_id"`
	Talk   *Talk  `json:"talk"`
}

// SlotChangePublisher broadcasts slot changes to every subscribed
// client after a successful mutation.
type SlotChangePublisher interface {
	Publish(change SlotChange)
}

// GridRepository defines the interface for grid storage
type GridRepository interface {
	GetGrid(ctx context.Context) (*Grid, error)
	ListSpeakers(ctx context.Context) ([]*Speaker, error)
	GetSlot(ctx context.Context, slotID string) (*Slot, error)
	GetTalkByID(ctx context.Context, talkID string) (*Talk, error)
	FindSlotByTalkID(ctx context.Context, talkID string) (*Slot, error)
	CreateTalk(ctx context.Context, slotID, title string, isOpenDiscussion bool, ownerID string, additionalSpeakerIDs []string) (*Talk, error)
	MoveTalk(ctx context.Context, talkID, toSlotID string) error
	UpdateTalk(ctx context.Context, talkID, title string, isOpenDiscussion bool, additionalSpeakerIDs []string) (*Talk, error)
	RemoveTalk(ctx context.Context, slotID string) error
}

// AddTalkInput carries the fields for scheduling a new talk in a slot.
// The requesting user becomes the owner and primary speaker.
type AddTalkInput struct {
	SlotID             string
	Title              string
	IsOpenDiscussion   bool
	AdditionalSpeakers []string
}

// UpdateTalkInput carries the editable fields of an existing talk.
type UpdateTalkInput struct {
	TalkID             string
	Title              string
	IsOpenDiscussion   bool
	AdditionalSpeakers []string
}

// GridService defines the business logic for viewing and mutating the
// schedule grid. Mutations echo the affected slot for the caller and
// additionally publish a SlotChange so every client converges through
// the subscription stream.
type GridService interface {
	GetGrid(ctx context.Context) (*Grid, error)
	ListSpeakers(ctx context.Context) ([]*Speaker, error)
	AddTalk(ctx context.Context, userID string, in AddTalkInput) (*Slot, error)
	MoveTalk(ctx context.Context, userID, talkID, toSlotID string) (*Slot, error)
	UpdateTalk(ctx context.Context, userID string, in UpdateTalkInput) (*Talk, error)
	RemoveTalk(ctx context.Context, userID, slotID string) (*Slot, error)
}
