// Package client implements the schedule client engine: it seeds the
// grid from a snapshot, folds the slot-change subscription into it, and
// executes drop intents against the remote authority. The engine never
// applies a mutation to the grid itself; every grid update arrives
// through the change stream, the same way every other client observes
// it.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"barcampgrid/internal/domain"
	"barcampgrid/internal/gridstate"
)

// NewTalkDraggableID is the draggable ID the presentation layer uses
// for the "new talk" card. Any other draggable ID is an existing talk.
const NewTalkDraggableID = "new"

// Drop is the single contract between the drag-and-drop coordinator and
// the engine. An empty DestinationSlotID means the gesture was
// cancelled (dropped outside any target).
type Drop struct {
	DraggableID       string
	DestinationSlotID string
}

// Draft holds the pending input fields for the next new talk.
type Draft struct {
	Title              string
	IsOpenDiscussion   bool
	AdditionalSpeakers []string
}

// Confirmer asks the user a blocking yes/no question. Talk removal is
// gated behind it.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// Engine coordinates the grid store, the authority, and the
// subscription stream for one authenticated user.
type Engine struct {
	store     *gridstate.Store
	authority domain.Authority
	confirm   Confirmer
	logger    *slog.Logger
	userID    string

	mu          sync.Mutex
	draft       Draft
	speakers    []*domain.Speaker
	pendingDest map[string]struct{}
	gridErr     *OpError
	talkErrs    map[string]*OpError
}

// NewEngine creates an Engine for the given user. The user ID is the
// identity ownership checks are computed from; it must match the
// identity the authority authenticates.
func NewEngine(authority domain.Authority, userID string, confirm Confirmer, logger *slog.Logger) *Engine {
	return &Engine{
		store:       gridstate.NewStore(),
		authority:   authority,
		confirm:     confirm,
		logger:      logger,
		userID:      userID,
		draft:       Draft{AdditionalSpeakers: []string{}},
		pendingDest: make(map[string]struct{}),
		talkErrs:    make(map[string]*OpError),
	}
}

// Start fetches the grid snapshot and the speaker directory. Either
// failure is fatal: the engine is unusable and the caller should render
// a blocking error instead of the grid.
func (e *Engine) Start(ctx context.Context) error {
	grid, err := e.authority.FetchGrid(ctx)
	if err != nil {
		return fmt.Errorf("fetch grid snapshot: %w", err)
	}
	if err := e.store.Initialize(grid); err != nil {
		return err
	}
	speakers, err := e.authority.FetchSpeakers(ctx)
	if err != nil {
		return fmt.Errorf("fetch speaker directory: %w", err)
	}
	e.mu.Lock()
	e.speakers = speakers
	e.mu.Unlock()
	return nil
}

// Run consumes slot changes until the channel closes or the context is
// cancelled. It is the single consumer of the stream; changes are
// applied strictly in arrival order.
func (e *Engine) Run(ctx context.Context, changes <-chan domain.SlotChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			e.store.ApplyChange(change)
		}
	}
}

// Store exposes the grid state for rendering.
func (e *Engine) Store() *gridstate.Store {
	return e.store
}

// Speakers returns the cached speaker directory.
func (e *Engine) Speakers() []*domain.Speaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Speaker, len(e.speakers))
	copy(out, e.speakers)
	return out
}

// Draft returns the current new-talk form fields.
func (e *Engine) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// SetDraft replaces the new-talk form fields.
func (e *Engine) SetDraft(d Draft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d.AdditionalSpeakers == nil {
		d.AdditionalSpeakers = []string{}
	}
	e.draft = d
}

// IsMine reports whether the current user may edit, remove, or drag the
// talk. Display policy only; the authority enforces ownership on every
// mutation regardless.
func (e *Engine) IsMine(t *domain.Talk) bool {
	return t != nil && t.OwnedBy(e.userID)
}

// DropAllowed reports whether the slot is a valid drop target: it must
// exist, be empty, and not be the destination of an in-flight
// operation. The pending check is what prevents a second drop into a
// slot whose occupancy is still awaiting server confirmation.
func (e *Engine) DropAllowed(slotID string) bool {
	slot := e.store.SlotByID(slotID)
	if slot == nil || slot.Talk != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, pending := e.pendingDest[slotID]
	return !pending
}

func (e *Engine) markPending(slotID string) {
	e.mu.Lock()
	e.pendingDest[slotID] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) clearPending(slotID string) {
	e.mu.Lock()
	delete(e.pendingDest, slotID)
	e.mu.Unlock()
}
