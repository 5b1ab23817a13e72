package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barcampgrid/internal/domain"
)

type gridService struct {
	repo           domain.GridRepository
	publisher      domain.SlotChangePublisher
	contextTimeout time.Duration
}

// NewGridService creates a GridService. Every successful mutation is
// published to the given publisher so subscribed clients converge on
// the change; the returned values only serve the caller's own UI.
func NewGridService(repo domain.GridRepository, publisher domain.SlotChangePublisher, timeout time.Duration) domain.GridService {
	return &gridService{
		repo:           repo,
		publisher:      publisher,
		contextTimeout: timeout,
	}
}

func (s *gridService) GetGrid(ctx context.Context) (*domain.Grid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.repo.GetGrid(ctx)
}

func (s *gridService) ListSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	speakers, err := s.repo.ListSpeakers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	if speakers == nil {
		speakers = []*domain.Speaker{}
	}
	return speakers, nil
}

func (s *gridService) AddTalk(ctx context.Context, userID string, in domain.AddTalkInput) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("talk title is required")
	}

	slot, err := s.repo.GetSlot(ctx, in.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot.Talk != nil {
		return nil, domain.ErrSlotOccupied
	}

	talk, err := s.repo.CreateTalk(ctx, in.SlotID, strings.TrimSpace(in.Title), in.IsOpenDiscussion, userID, in.AdditionalSpeakers)
	if err != nil {
		return nil, fmt.Errorf("create talk: %w", err)
	}

	slot.Talk = talk
	s.publisher.Publish(domain.SlotChange{SlotID: slot.ID, Talk: talk})
	return slot, nil
}

func (s *gridService) MoveTalk(ctx context.Context, userID, talkID, toSlotID string) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	talk, err := s.repo.GetTalkByID(ctx, talkID)
	if err != nil {
		return nil, fmt.Errorf("get talk: %w", err)
	}
	if !talk.OwnedBy(userID) {
		return nil, domain.ErrNotTalkOwner
	}

	dest, err := s.repo.GetSlot(ctx, toSlotID)
	if err != nil {
		return nil, fmt.Errorf("get destination slot: %w", err)
	}
	if dest.Talk != nil {
		return nil, domain.ErrSlotOccupied
	}

	if err := s.repo.MoveTalk(ctx, talkID, toSlotID); err != nil {
		return nil, fmt.Errorf("move talk: %w", err)
	}

	// Only the destination is broadcast; clients clear the previous
	// slot when they merge the change.
	dest.Talk = talk
	s.publisher.Publish(domain.SlotChange{SlotID: dest.ID, Talk: talk})
	return dest, nil
}

func (s *gridService) UpdateTalk(ctx context.Context, userID string, in domain.UpdateTalkInput) (*domain.Talk, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("talk title is required")
	}

	talk, err := s.repo.GetTalkByID(ctx, in.TalkID)
	if err != nil {
		return nil, fmt.Errorf("get talk: %w", err)
	}
	if !talk.OwnedBy(userID) {
		return nil, domain.ErrNotTalkOwner
	}

	updated, err := s.repo.UpdateTalk(ctx, in.TalkID, strings.TrimSpace(in.Title), in.IsOpenDiscussion, in.AdditionalSpeakers)
	if err != nil {
		return nil, fmt.Errorf("update talk: %w", err)
	}

	slot, err := s.repo.FindSlotByTalkID(ctx, in.TalkID)
	if err != nil {
		return nil, fmt.Errorf("find slot for talk: %w", err)
	}
	s.publisher.Publish(domain.SlotChange{SlotID: slot.ID, Talk: updated})
	return updated, nil
}

func (s *gridService) RemoveTalk(ctx context.Context, userID, slotID string) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot.Talk == nil {
		return nil, domain.ErrNotFound
	}
	if !slot.Talk.OwnedBy(userID) {
		return nil, domain.ErrNotTalkOwner
	}

	if err := s.repo.RemoveTalk(ctx, slotID); err != nil {
		return nil, fmt.Errorf("remove talk: %w", err)
	}

	slot.Talk = nil
	s.publisher.Publish(domain.SlotChange{SlotID: slot.ID, Talk: nil})
	return slot, nil
}
