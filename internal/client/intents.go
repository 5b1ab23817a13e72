package client

import (
	"context"

	"barcampgrid/internal/domain"
)

const removePrompt = "Are you sure you want to remove this talk?"

// HandleDrop executes one drop gesture. A drop with no destination is a
// cancelled gesture and a no-op. A "new" draggable schedules a talk
// built from the draft fields; anything else moves the identified talk.
//
// The grid is never mutated here. The destination slot is held in the
// pending set until the operation completes, and the occupancy change
// itself arrives later through the subscription stream.
func (e *Engine) HandleDrop(ctx context.Context, drop Drop) error {
	if drop.DestinationSlotID == "" {
		return nil
	}
	if drop.DraggableID == NewTalkDraggableID {
		return e.addTalk(ctx, drop.DestinationSlotID)
	}
	return e.moveTalk(ctx, drop.DraggableID, drop.DestinationSlotID)
}

func (e *Engine) addTalk(ctx context.Context, slotID string) error {
	e.mu.Lock()
	draft := e.draft
	e.mu.Unlock()

	e.markPending(slotID)
	defer e.clearPending(slotID)

	_, err := e.authority.AddTalk(ctx, domain.AddTalkInput{
		SlotID:             slotID,
		Title:              draft.Title,
		IsOpenDiscussion:   draft.IsOpenDiscussion,
		AdditionalSpeakers: draft.AdditionalSpeakers,
	})
	if err != nil {
		opErr := &OpError{Op: OpAdd, SlotID: slotID, Err: err}
		e.recordGridError(opErr)
		e.logger.Warn("add talk rejected", "slot_id", slotID, "err", err)
		return opErr
	}

	// Reset the authoring form only on acceptance so a rejected create
	// keeps the user's input.
	e.mu.Lock()
	e.draft = Draft{AdditionalSpeakers: []string{}}
	e.mu.Unlock()
	return nil
}

func (e *Engine) moveTalk(ctx context.Context, talkID, toSlotID string) error {
	e.markPending(toSlotID)
	defer e.clearPending(toSlotID)

	if _, err := e.authority.MoveTalk(ctx, talkID, toSlotID); err != nil {
		opErr := &OpError{Op: OpMove, SlotID: toSlotID, TalkID: talkID, Err: err}
		e.recordGridError(opErr)
		e.logger.Warn("move talk rejected", "talk_id", talkID, "to_slot", toSlotID, "err", err)
		return opErr
	}
	return nil
}

// UpdateTalk edits a talk's title, open-discussion flag, and additional
// speakers. A nil return means the edit dialog may close; on failure
// the dialog state is the caller's to keep and the error sticks to the
// talk.
func (e *Engine) UpdateTalk(ctx context.Context, in domain.UpdateTalkInput) error {
	if _, err := e.authority.UpdateTalk(ctx, in); err != nil {
		opErr := &OpError{Op: OpUpdate, TalkID: in.TalkID, Err: err}
		e.recordTalkError(in.TalkID, opErr)
		e.logger.Warn("update talk rejected", "talk_id", in.TalkID, "err", err)
		return opErr
	}
	return nil
}

// RemoveTalk clears the talk from the given slot after a blocking
// confirmation. Declining the prompt is a no-op.
func (e *Engine) RemoveTalk(ctx context.Context, slotID string) error {
	if !e.confirm.Confirm(removePrompt) {
		return nil
	}
	var talkID string
	if slot := e.store.SlotByID(slotID); slot != nil && slot.Talk != nil {
		talkID = slot.Talk.ID
	}
	if _, err := e.authority.RemoveTalk(ctx, slotID); err != nil {
		opErr := &OpError{Op: OpRemove, SlotID: slotID, TalkID: talkID, Err: err}
		if talkID != "" {
			e.recordTalkError(talkID, opErr)
		}
		e.logger.Warn("remove talk rejected", "slot_id", slotID, "err", err)
		return opErr
	}
	return nil
}
