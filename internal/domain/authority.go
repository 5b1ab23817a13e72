package domain

import "context"

// Authority is the client-side port to the remote schedule authority.
// It is the single source of truth: mutation responses only signal
// success or failure, and the grid's authoritative update arrives
// separately through the slot-change subscription.
type Authority interface {
	FetchGrid(ctx context.Context) (*Grid, error)
	FetchSpeakers(ctx context.Context) ([]*Speaker, error)
	AddTalk(ctx context.Context, in AddTalkInput) (*Slot, error)
	MoveTalk(ctx context.Context, talkID, toSlotID string) (*Slot, error)
	UpdateTalk(ctx context.Context, in UpdateTalkInput) (*Talk, error)
	RemoveTalk(ctx context.Context, slotID string) (*Slot, error)
}
