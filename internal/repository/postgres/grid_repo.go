package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"barcampgrid/internal/domain"
)

type GridRepository struct {
	DB *sql.DB
}

func NewGridRepository(db *sql.DB) domain.GridRepository {
	return &GridRepository{
		DB: db,
	}
}

// GetGrid loads the whole snapshot: sessions in display order, each
// non-banner session with its slots, each slot with its room and the
// talk (if any) with ordered speakers.
func (r *GridRepository) GetGrid(ctx context.Context) (*domain.Grid, error) {
	sessionQuery := `
		SELECT id, COALESCE(name, ''), COALESCE(event, ''), start_time, end_time
		FROM sessions
		ORDER BY start_time, position
	`
	rows, err := r.DB.QueryContext(ctx, sessionQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grid := &domain.Grid{}
	byID := make(map[string]*domain.Session)
	for rows.Next() {
		sess := &domain.Session{}
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Event, &sess.StartTime, &sess.EndTime); err != nil {
			return nil, err
		}
		grid.Sessions = append(grid.Sessions, sess)
		byID[sess.ID] = sess
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotQuery := `
		SELECT sl.id, sl.session_id, r.id, r.name,
		       t.id, t.title, t.is_open_discussion, t.owner_id
		FROM slots sl
		INNER JOIN rooms r ON r.id = sl.room_id
		LEFT JOIN talks t ON t.id = sl.talk_id
		ORDER BY sl.session_id, r.name
	`
	slotRows, err := r.DB.QueryContext(ctx, slotQuery)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()

	var talkIDs []string
	talksByID := make(map[string]*domain.Talk)
	for slotRows.Next() {
		var (
			slot      domain.Slot
			sessionID string
			room      domain.Room
			talkID    sql.NullString
			title     sql.NullString
			openDisc  sql.NullBool
			ownerID   sql.NullString
		)
		if err := slotRows.Scan(&slot.ID, &sessionID, &room.ID, &room.Name, &talkID, &title, &openDisc, &ownerID); err != nil {
			return nil, err
		}
		slot.Room = &room
		if talkID.Valid {
			talk := &domain.Talk{
				ID:               talkID.String,
				Title:            title.String,
				IsOpenDiscussion: openDisc.Bool,
				OwnerID:          ownerID.String,
			}
			slot.Talk = talk
			talksByID[talk.ID] = talk
			talkIDs = append(talkIDs, talk.ID)
		}
		sess, ok := byID[sessionID]
		if !ok {
			continue
		}
		sess.Slots = append(sess.Slots, &slot)
	}
	if err := slotRows.Err(); err != nil {
		return nil, err
	}

	if len(talkIDs) > 0 {
		speakers, err := r.loadSpeakers(ctx, talkIDs)
		if err != nil {
			return nil, err
		}
		for talkID, list := range speakers {
			if talk, ok := talksByID[talkID]; ok {
				talk.Speakers = list
			}
		}
	}
	return grid, nil
}

// loadSpeakers returns the ordered speaker list per talk.
func (r *GridRepository) loadSpeakers(ctx context.Context, talkIDs []string) (map[string][]*domain.Speaker, error) {
	query := `
		SELECT ts.talk_id, u.id, u.name
		FROM talk_speakers ts
		INNER JOIN users u ON u.id = ts.speaker_id
		WHERE ts.talk_id = ANY($1)
		ORDER BY ts.talk_id, ts.position
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(talkIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]*domain.Speaker)
	for rows.Next() {
		var talkID string
		sp := &domain.Speaker{}
		if err := rows.Scan(&talkID, &sp.ID, &sp.Name); err != nil {
			return nil, err
		}
		out[talkID] = append(out[talkID], sp)
	}
	return out, rows.Err()
}

func (r *GridRepository) ListSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	query := `SELECT id, name FROM users ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var speakers []*domain.Speaker
	for rows.Next() {
		sp := &domain.Speaker{}
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, err
		}
		speakers = append(speakers, sp)
	}
	return speakers, rows.Err()
}

func (r *GridRepository) GetSlot(ctx context.Context, slotID string) (*domain.Slot, error) {
	query := `
		SELECT sl.id, r.id, r.name, sl.talk_id
		FROM slots sl
		INNER JOIN rooms r ON r.id = sl.room_id
		WHERE sl.id = $1
	`
	var (
		slot   domain.Slot
		room   domain.Room
		talkID sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, slotID).Scan(&slot.ID, &room.ID, &room.Name, &talkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	slot.Room = &room
	if talkID.Valid {
		talk, err := r.GetTalkByID(ctx, talkID.String)
		if err != nil {
			return nil, err
		}
		slot.Talk = talk
	}
	return &slot, nil
}

func (r *GridRepository) GetTalkByID(ctx context.Context, talkID string) (*domain.Talk, error) {
	query := `SELECT id, title, is_open_discussion, owner_id FROM talks WHERE id = $1`
	talk := &domain.Talk{}
	err := r.DB.QueryRowContext(ctx, query, talkID).Scan(&talk.ID, &talk.Title, &talk.IsOpenDiscussion, &talk.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	speakers, err := r.loadSpeakers(ctx, []string{talkID})
	if err != nil {
		return nil, err
	}
	talk.Speakers = speakers[talkID]
	return talk, nil
}

func (r *GridRepository) FindSlotByTalkID(ctx context.Context, talkID string) (*domain.Slot, error) {
	query := `
		SELECT sl.id, r.id, r.name
		FROM slots sl
		INNER JOIN rooms r ON r.id = sl.room_id
		WHERE sl.talk_id = $1
	`
	var (
		slot domain.Slot
		room domain.Room
	)
	err := r.DB.QueryRowContext(ctx, query, talkID).Scan(&slot.ID, &room.ID, &room.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	slot.Room = &room
	return &slot, nil
}

// CreateTalk inserts a talk owned by ownerID into the slot, with the
// owner as primary speaker and the additional speakers after it. The
// slot is locked for the duration of the transaction so two concurrent
// creates cannot both land in it.
func (r *GridRepository) CreateTalk(ctx context.Context, slotID, title string, isOpenDiscussion bool, ownerID string, additionalSpeakerIDs []string) (*domain.Talk, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var occupant sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT talk_id FROM slots WHERE id = $1 FOR UPDATE`, slotID).Scan(&occupant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if occupant.Valid {
		return nil, domain.ErrSlotOccupied
	}

	var talkID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO talks (title, is_open_discussion, owner_id) VALUES ($1, $2, $3) RETURNING id`,
		title, isOpenDiscussion, ownerID,
	).Scan(&talkID)
	if err != nil {
		return nil, err
	}

	speakerIDs := append([]string{ownerID}, additionalSpeakerIDs...)
	for i, speakerID := range speakerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO talk_speakers (talk_id, speaker_id, position) VALUES ($1, $2, $3)`,
			talkID, speakerID, i,
		); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE slots SET talk_id = $2 WHERE id = $1`, slotID, talkID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetTalkByID(ctx, talkID)
}

// MoveTalk relocates a talk to an empty slot. Both the current and the
// destination slot are locked; a occupied destination fails the whole
// transaction.
func (r *GridRepository) MoveTalk(ctx context.Context, talkID, toSlotID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fromSlotID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM slots WHERE talk_id = $1 FOR UPDATE`, talkID).Scan(&fromSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	var occupant sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT talk_id FROM slots WHERE id = $1 FOR UPDATE`, toSlotID).Scan(&occupant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if occupant.Valid {
		return domain.ErrSlotOccupied
	}

	if _, err := tx.ExecContext(ctx, `UPDATE slots SET talk_id = NULL WHERE id = $1`, fromSlotID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE slots SET talk_id = $2 WHERE id = $1`, toSlotID, talkID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateTalk replaces the talk's editable fields and its additional
// speakers (the primary speaker at position 0 is untouched).
func (r *GridRepository) UpdateTalk(ctx context.Context, talkID, title string, isOpenDiscussion bool, additionalSpeakerIDs []string) (*domain.Talk, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE talks SET title = $2, is_open_discussion = $3 WHERE id = $1`,
		talkID, title, isOpenDiscussion,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM talk_speakers WHERE talk_id = $1 AND position > 0`, talkID); err != nil {
		return nil, err
	}
	for i, speakerID := range additionalSpeakerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO talk_speakers (talk_id, speaker_id, position) VALUES ($1, $2, $3)`,
			talkID, speakerID, i+1,
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetTalkByID(ctx, talkID)
}

// RemoveTalk clears the slot and deletes the talk it held.
func (r *GridRepository) RemoveTalk(ctx context.Context, slotID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var occupant sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT talk_id FROM slots WHERE id = $1 FOR UPDATE`, slotID).Scan(&occupant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if !occupant.Valid {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE slots SET talk_id = NULL WHERE id = $1`, slotID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM talk_speakers WHERE talk_id = $1`, occupant.String); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM talks WHERE id = $1`, occupant.String); err != nil {
		return fmt.Errorf("delete talk: %w", err)
	}
	return tx.Commit()
}
