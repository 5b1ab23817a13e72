package gridstate

import "barcampgrid/internal/domain"

// ApplyChange folds one slot-change record into the grid. Changes must
// be applied in the order they were received from the subscription
// stream: the stale-occupant pass evaluates against the state produced
// by prior changes.
//
// The merge runs as two explicit passes over every slot:
//
//  1. The slot whose ID matches the record takes the record's talk,
//     including a nil talk for removals.
//  2. Any other slot still holding the same talk is cleared. The server
//     only reports the destination of a move, so the previous slot
//     learns about it here.
//
// Pass 2 compares against the record's talk ID, never against the value
// written by pass 1, so a slot is matched by at most one pass per
// record. A record that matches no slot is a no-op, and applying the
// same record twice leaves the grid unchanged.
func (s *Store) ApplyChange(change domain.SlotChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return
	}

	for _, session := range s.grid.Sessions {
		for _, slot := range session.Slots {
			if slot.ID == change.SlotID {
				slot.Talk = cloneTalk(change.Talk)
			}
		}
	}

	if change.Talk == nil {
		return
	}
	for _, session := range s.grid.Sessions {
		for _, slot := range session.Slots {
			if slot.ID == change.SlotID {
				continue
			}
			if slot.Talk != nil && slot.Talk.ID == change.Talk.ID {
				slot.Talk = nil
			}
		}
	}
}
