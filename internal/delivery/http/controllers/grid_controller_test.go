package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"barcampgrid/internal/delivery/http/helpers"
	"barcampgrid/internal/delivery/http/middleware"
	"barcampgrid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeGridService implements domain.GridService for handler tests.
type fakeGridService struct {
	gridErr    error
	addErr     error
	moveErr    error
	updateErr  error
	removeErr  error
	grid       *domain.Grid
	speakers   []*domain.Speaker
	lastUserID string
	lastAdd    domain.AddTalkInput
	lastMove   struct{ talkID, toSlotID string }
	lastUpdate domain.UpdateTalkInput
	lastRemove string
}

func (f *fakeGridService) GetGrid(ctx context.Context) (*domain.Grid, error) {
	if f.gridErr != nil {
		return nil, f.gridErr
	}
	return f.grid, nil
}

func (f *fakeGridService) ListSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	if f.gridErr != nil {
		return nil, f.gridErr
	}
	return f.speakers, nil
}

func (f *fakeGridService) AddTalk(ctx context.Context, userID string, in domain.AddTalkInput) (*domain.Slot, error) {
	f.lastUserID = userID
	f.lastAdd = in
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &domain.Slot{
		ID:   in.SlotID,
		Talk: &domain.Talk{ID: "talk-created", Title: in.Title, OwnerID: userID},
	}, nil
}

func (f *fakeGridService) MoveTalk(ctx context.Context, userID, talkID, toSlotID string) (*domain.Slot, error) {
	f.lastUserID = userID
	f.lastMove.talkID = talkID
	f.lastMove.toSlotID = toSlotID
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	return &domain.Slot{ID: toSlotID, Talk: &domain.Talk{ID: talkID, OwnerID: userID}}, nil
}

func (f *fakeGridService) UpdateTalk(ctx context.Context, userID string, in domain.UpdateTalkInput) (*domain.Talk, error) {
	f.lastUserID = userID
	f.lastUpdate = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Talk{ID: in.TalkID, Title: in.Title, IsOpenDiscussion: in.IsOpenDiscussion, OwnerID: userID}, nil
}

func (f *fakeGridService) RemoveTalk(ctx context.Context, userID, slotID string) (*domain.Slot, error) {
	f.lastUserID = userID
	f.lastRemove = slotID
	if f.removeErr != nil {
		return nil, f.removeErr
	}
	return &domain.Slot{ID: slotID, Talk: nil}, nil
}

func TestGridController_GetGrid(t *testing.T) {
	tests := []struct {
		name           string
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
	}{
		{
			name:       "success",
			wantStatus: http.StatusOK,
		},
		{
			name:           "service error",
			fakeErr:        errors.New("db error"),
			wantStatus:     http.StatusInternalServerError,
			wantBodySubstr: "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGridService{
				gridErr: tt.fakeErr,
				grid: &domain.Grid{Sessions: []*domain.Session{
					{ID: "sess-1", Name: "Morning"},
				}},
			}
			ctrl := NewGridController(testLogger, fake)
			req := httptest.NewRequest(http.MethodGet, "/grid", nil)
			req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			rr := httptest.NewRecorder()

			ctrl.GetGrid(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error, "success response must have error nil")
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var grid domain.Grid
				require.NoError(t, json.Unmarshal(dataBytes, &grid))
				require.Len(t, grid.Sessions, 1)
				assert.Equal(t, "sess-1", grid.Sessions[0].ID)
			} else {
				require.NotNil(t, envelope.Error, "error response must have error set")
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr, "error message")
			}
		})
	}
}

func TestGridController_ListSpeakers(t *testing.T) {
	fake := &fakeGridService{speakers: []*domain.Speaker{
		{ID: "u1", Name: "Ada"},
		{ID: "u2", Name: "Grace"},
	}}
	ctrl := NewGridController(testLogger, fake)
	req := httptest.NewRequest(http.MethodGet, "/speakers", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
	rr := httptest.NewRecorder()

	ctrl.ListSpeakers(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Error)
	dataBytes, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var speakers []*domain.Speaker
	require.NoError(t, json.Unmarshal(dataBytes, &speakers))
	require.Len(t, speakers, 2)
	assert.Equal(t, "Ada", speakers[0].Name)
}

func TestGridController_AddTalk(t *testing.T) {
	tests := []struct {
		name           string
		slotID         string
		body           string
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
		noUserContext  bool
		checkCall      func(t *testing.T, fake *fakeGridService)
	}{
		{
			name:       "success",
			slotID:     "slot-1",
			body:       `{"title":"Intro to Go","is_open_discussion":false,"additional_speakers":["u2"]}`,
			wantStatus: http.StatusCreated,
			checkCall: func(t *testing.T, fake *fakeGridService) {
				assert.Equal(t, "user-123", fake.lastUserID)
				assert.Equal(t, "slot-1", fake.lastAdd.SlotID)
				assert.Equal(t, "Intro to Go", fake.lastAdd.Title)
				assert.Equal(t, []string{"u2"}, fake.lastAdd.AdditionalSpeakers)
			},
		},
		{
			name:           "missing slotID",
			slotID:         "",
			body:           `{"title":"Intro to Go"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "missing slotID",
		},
		{
			name:           "missing title",
			slotID:         "slot-1",
			body:           `{"is_open_discussion":true}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "title is required",
		},
		{
			name:           "whitespace-only title",
			slotID:         "slot-1",
			body:           `{"title":"   "}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "title is required",
		},
		{
			name:           "invalid json",
			slotID:         "slot-1",
			body:           `{invalid`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "invalid",
		},
		{
			name:           "no user in context",
			slotID:         "slot-1",
			body:           `{"title":"Intro to Go"}`,
			wantStatus:     http.StatusUnauthorized,
			wantBodySubstr: "unauthorized",
			noUserContext:  true,
		},
		{
			name:           "slot not found",
			slotID:         "slot-x",
			body:           `{"title":"Intro to Go"}`,
			fakeErr:        domain.ErrNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "not found",
		},
		{
			name:           "slot occupied",
			slotID:         "slot-1",
			body:           `{"title":"Intro to Go"}`,
			fakeErr:        domain.ErrSlotOccupied,
			wantStatus:     http.StatusConflict,
			wantBodySubstr: "occupied",
		},
		{
			name:           "service error",
			slotID:         "slot-1",
			body:           `{"title":"Intro to Go"}`,
			fakeErr:        errors.New("db error"),
			wantStatus:     http.StatusInternalServerError,
			wantBodySubstr: "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGridService{addErr: tt.fakeErr}
			ctrl := NewGridController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/slots/"+tt.slotID+"/talk", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.SetPathValue("slotID", tt.slotID)
			if !tt.noUserContext {
				req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			}
			rr := httptest.NewRecorder()

			ctrl.AddTalk(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
			if tt.wantStatus == http.StatusCreated {
				require.Nil(t, envelope.Error, "success response must have error nil")
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var slot domain.Slot
				require.NoError(t, json.Unmarshal(dataBytes, &slot))
				assert.Equal(t, tt.slotID, slot.ID)
				require.NotNil(t, slot.Talk)
				assert.Equal(t, "Intro to Go", slot.Talk.Title)
			} else if tt.wantBodySubstr != "" {
				require.NotNil(t, envelope.Error, "error response must have error set")
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr, "error message")
			}
			if tt.checkCall != nil {
				tt.checkCall(t, fake)
			}
		})
	}
}

func TestGridController_MoveTalk(t *testing.T) {
	tests := []struct {
		name           string
		talkID         string
		body           string
		fakeErr        error
		wantStatus     int
		wantErrCode    string
		wantBodySubstr string
	}{
		{
			name:       "success",
			talkID:     "talk-1",
			body:       `{"to_slot":"slot-2"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:           "missing to_slot",
			talkID:         "talk-1",
			body:           `{}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "to_slot is required",
		},
		{
			name:        "destination occupied",
			talkID:      "talk-1",
			body:        `{"to_slot":"slot-2"}`,
			fakeErr:     domain.ErrSlotOccupied,
			wantStatus:  http.StatusConflict,
			wantErrCode: helpers.ErrCodeConflict,
		},
		{
			name:        "not the owner",
			talkID:      "talk-1",
			body:        `{"to_slot":"slot-2"}`,
			fakeErr:     domain.ErrNotTalkOwner,
			wantStatus:  http.StatusForbidden,
			wantErrCode: helpers.ErrCodeForbidden,
		},
		{
			name:        "talk not found",
			talkID:      "talk-x",
			body:        `{"to_slot":"slot-2"}`,
			fakeErr:     domain.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantErrCode: helpers.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGridService{moveErr: tt.fakeErr}
			ctrl := NewGridController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/talks/"+tt.talkID+"/move", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.SetPathValue("talkID", tt.talkID)
			req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			rr := httptest.NewRecorder()

			ctrl.MoveTalk(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				assert.Equal(t, "talk-1", fake.lastMove.talkID)
				assert.Equal(t, "slot-2", fake.lastMove.toSlotID)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var slot domain.Slot
				require.NoError(t, json.Unmarshal(dataBytes, &slot))
				assert.Equal(t, "slot-2", slot.ID, "echoes the destination slot")
				return
			}
			require.NotNil(t, envelope.Error, "error response must have error set")
			if tt.wantErrCode != "" {
				assert.Equal(t, tt.wantErrCode, envelope.Error.Code, "error code")
			}
			if tt.wantBodySubstr != "" {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr, "error message")
			}
		})
	}
}

func TestGridController_UpdateTalk(t *testing.T) {
	tests := []struct {
		name        string
		talkID      string
		body        string
		fakeErr     error
		wantStatus  int
		wantErrCode string
	}{
		{
			name:       "success",
			talkID:     "talk-1",
			body:       `{"title":"New title","is_open_discussion":true,"additional_speakers":["u2","u3"]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:        "whitespace-only title",
			talkID:      "talk-1",
			body:        `{"title":" "}`,
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "not the owner",
			talkID:      "talk-1",
			body:        `{"title":"New title"}`,
			fakeErr:     domain.ErrNotTalkOwner,
			wantStatus:  http.StatusForbidden,
			wantErrCode: helpers.ErrCodeForbidden,
		},
		{
			name:        "talk not found",
			talkID:      "talk-x",
			body:        `{"title":"New title"}`,
			fakeErr:     domain.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantErrCode: helpers.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGridService{updateErr: tt.fakeErr}
			ctrl := NewGridController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPut, "/talks/"+tt.talkID, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.SetPathValue("talkID", tt.talkID)
			req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			rr := httptest.NewRecorder()

			ctrl.UpdateTalk(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				assert.Equal(t, "talk-1", fake.lastUpdate.TalkID)
				assert.Equal(t, "New title", fake.lastUpdate.Title)
				assert.True(t, fake.lastUpdate.IsOpenDiscussion)
				assert.Equal(t, []string{"u2", "u3"}, fake.lastUpdate.AdditionalSpeakers)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantErrCode, envelope.Error.Code, "error code")
		})
	}
}

func TestGridController_RemoveTalk(t *testing.T) {
	tests := []struct {
		name        string
		slotID      string
		fakeErr     error
		wantStatus  int
		wantErrCode string
	}{
		{
			name:       "success",
			slotID:     "slot-1",
			wantStatus: http.StatusOK,
		},
		{
			name:        "empty slot",
			slotID:      "slot-2",
			fakeErr:     domain.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantErrCode: helpers.ErrCodeNotFound,
		},
		{
			name:        "not the owner",
			slotID:      "slot-1",
			fakeErr:     domain.ErrNotTalkOwner,
			wantStatus:  http.StatusForbidden,
			wantErrCode: helpers.ErrCodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGridService{removeErr: tt.fakeErr}
			ctrl := NewGridController(testLogger, fake)
			req := httptest.NewRequest(http.MethodDelete, "/slots/"+tt.slotID+"/talk", nil)
			req.SetPathValue("slotID", tt.slotID)
			req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			rr := httptest.NewRecorder()

			ctrl.RemoveTalk(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				assert.Equal(t, tt.slotID, fake.lastRemove)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var slot domain.Slot
				require.NoError(t, json.Unmarshal(dataBytes, &slot))
				assert.Nil(t, slot.Talk, "cleared slot has no talk")
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantErrCode, envelope.Error.Code, "error code")
		})
	}
}
