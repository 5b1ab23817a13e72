package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"barcampgrid/internal/delivery/http/helpers"
	"barcampgrid/internal/delivery/http/middleware"
	"barcampgrid/internal/domain"
)

type GridController struct {
	Logger  *slog.Logger
	Service domain.GridService
}

func NewGridController(logger *slog.Logger, svc domain.GridService) *GridController {
	return &GridController{
		Logger:  logger,
		Service: svc,
	}
}

// writeGridError maps domain sentinels to HTTP statuses and logs
// everything else as a server error.
func (c *GridController) writeGridError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrSlotOccupied):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrNotTalkOwner):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// GetGridSuccessResponse is the success response envelope for GET /grid (200).
type GetGridSuccessResponse struct {
	Data  *domain.Grid      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetGrid godoc
// @Summary Get the schedule grid
// @Description Returns the full snapshot: sessions in display order with their slots, rooms, and talks.
// @Tags grid
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.GetGridSuccessResponse "data contains the grid"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /grid [get]
func (c *GridController) GetGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := c.Service.GetGrid(r.Context())
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, grid)
}

// ListSpeakers godoc
// @Summary List available speakers
// @Description Returns every registered user as a speaker, sorted by name. Used to populate the additional-speakers selection.
// @Tags grid
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the speaker list"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /speakers [get]
func (c *GridController) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := c.Service.ListSpeakers(r.Context())
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, speakers)
}

// AddTalkRequest is the request body for POST /slots/{slotID}/talk.
type AddTalkRequest struct {
	Title              string   `json:"title"`
	IsOpenDiscussion   bool     `json:"is_open_discussion"`
	AdditionalSpeakers []string `json:"additional_speakers"`
}

// Validate implements Validator.
func (a AddTalkRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, "title is required")
	}
	return errs
}

// AddTalkSuccessResponse is the success response envelope for POST /slots/{slotID}/talk (201).
type AddTalkSuccessResponse struct {
	Data  *domain.Slot      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AddTalk godoc
// @Summary Schedule a new talk in a slot
// @Description Creates a talk in the given empty slot. The authenticated user becomes the owner and primary speaker. The resulting change is also broadcast on the slot-change stream.
// @Tags grid
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID"
// @Param talk body AddTalkRequest true "Talk fields"
// @Success 201 {object} controllers.AddTalkSuccessResponse "data contains the occupied slot"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots/{slotID}/talk [post]
func (c *GridController) AddTalk(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("slotID")
	if slotID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slotID")
		return
	}
	var req AddTalkRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	slot, err := c.Service.AddTalk(r.Context(), userID, domain.AddTalkInput{
		SlotID:             slotID,
		Title:              req.Title,
		IsOpenDiscussion:   req.IsOpenDiscussion,
		AdditionalSpeakers: req.AdditionalSpeakers,
	})
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, slot)
}

// MoveTalkRequest is the request body for POST /talks/{talkID}/move.
type MoveTalkRequest struct {
	ToSlot string `json:"to_slot"`
}

// Validate implements Validator.
func (m MoveTalkRequest) Validate() []string {
	var errs []string
	if m.ToSlot == "" {
		errs = append(errs, "to_slot is required")
	}
	return errs
}

// MoveTalk godoc
// @Summary Move a talk to an empty slot
// @Description Relocates the talk. Only the destination slot is echoed and broadcast; clients clear the previous slot when merging the change.
// @Tags grid
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Param move body MoveTalkRequest true "Destination"
// @Success 200 {object} controllers.AddTalkSuccessResponse "data contains the destination slot"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID}/move [post]
func (c *GridController) MoveTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	var req MoveTalkRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	slot, err := c.Service.MoveTalk(r.Context(), userID, talkID, req.ToSlot)
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slot)
}

// UpdateTalkRequest is the request body for PUT /talks/{talkID}.
type UpdateTalkRequest struct {
	Title              string   `json:"title"`
	IsOpenDiscussion   bool     `json:"is_open_discussion"`
	AdditionalSpeakers []string `json:"additional_speakers"`
}

// Validate implements Validator.
func (u UpdateTalkRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.Title) == "" {
		errs = append(errs, "title is required")
	}
	return errs
}

// UpdateTalk godoc
// @Summary Edit a talk
// @Description Updates the talk's title, open-discussion flag, and additional speakers. Owner only.
// @Tags grid
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Param talk body UpdateTalkRequest true "Updated fields"
// @Success 200 {object} helpers.APIResponse "data contains the updated talk"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID} [put]
func (c *GridController) UpdateTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	var req UpdateTalkRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	talk, err := c.Service.UpdateTalk(r.Context(), userID, domain.UpdateTalkInput{
		TalkID:             talkID,
		Title:              req.Title,
		IsOpenDiscussion:   req.IsOpenDiscussion,
		AdditionalSpeakers: req.AdditionalSpeakers,
	})
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, talk)
}

// RemoveTalk godoc
// @Summary Remove the talk from a slot
// @Description Clears the slot and deletes the talk. Owner only. Broadcast as a nil-talk change.
// @Tags grid
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID"
// @Success 200 {object} controllers.AddTalkSuccessResponse "data contains the cleared slot"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots/{slotID}/talk [delete]
func (c *GridController) RemoveTalk(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("slotID")
	if slotID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slotID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	slot, err := c.Service.RemoveTalk(r.Context(), userID, slotID)
	if err != nil {
		c.writeGridError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slot)
}
