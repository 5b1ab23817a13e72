// Package authorityhttp implements the domain.Authority port over the
// schedule authority's HTTP API.
package authorityhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"barcampgrid/internal/domain"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

// Client calls the authority's REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient returns an Authority backed by the HTTP API at baseURL.
func NewClient(baseURL, token string, client *http.Client) domain.Authority {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (%s %s, status %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			return fmt.Errorf("%s %s: %s: %s", method, path, env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data (%s %s): %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) FetchGrid(ctx context.Context) (*domain.Grid, error) {
	var grid domain.Grid
	if err := c.do(ctx, http.MethodGet, "/grid", nil, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

func (c *Client) FetchSpeakers(ctx context.Context) ([]*domain.Speaker, error) {
	var speakers []*domain.Speaker
	if err := c.do(ctx, http.MethodGet, "/speakers", nil, &speakers); err != nil {
		return nil, err
	}
	return speakers, nil
}

type addTalkRequest struct {
	Title              string   `json:"title"`
	IsOpenDiscussion   bool     `json:"is_open_discussion"`
	AdditionalSpeakers []string `json:"additional_speakers"`
}

func (c *Client) AddTalk(ctx context.Context, in domain.AddTalkInput) (*domain.Slot, error) {
	var slot domain.Slot
	req := addTalkRequest{
		Title:              in.Title,
		IsOpenDiscussion:   in.IsOpenDiscussion,
		AdditionalSpeakers: in.AdditionalSpeakers,
	}
	if err := c.do(ctx, http.MethodPost, "/slots/"+in.SlotID+"/talk", req, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

type moveTalkRequest struct {
	ToSlot string `json:"to_slot"`
}

func (c *Client) MoveTalk(ctx context.Context, talkID, toSlotID string) (*domain.Slot, error) {
	var slot domain.Slot
	if err := c.do(ctx, http.MethodPost, "/talks/"+talkID+"/move", moveTalkRequest{ToSlot: toSlotID}, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

type updateTalkRequest struct {
	Title              string   `json:"title"`
	IsOpenDiscussion   bool     `json:"is_open_discussion"`
	AdditionalSpeakers []string `json:"additional_speakers"`
}

func (c *Client) UpdateTalk(ctx context.Context, in domain.UpdateTalkInput) (*domain.Talk, error) {
	var talk domain.Talk
	req := updateTalkRequest{
		Title:              in.Title,
		IsOpenDiscussion:   in.IsOpenDiscussion,
		AdditionalSpeakers: in.AdditionalSpeakers,
	}
	if err := c.do(ctx, http.MethodPut, "/talks/"+in.TalkID, req, &talk); err != nil {
		return nil, err
	}
	return &talk, nil
}

func (c *Client) RemoveTalk(ctx context.Context, slotID string) (*domain.Slot, error) {
	var slot domain.Slot
	if err := c.do(ctx, http.MethodDelete, "/slots/"+slotID+"/talk", nil, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}
