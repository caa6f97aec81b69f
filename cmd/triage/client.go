package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"triage-backend/internal/feedback"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/tickets"
	"triage-backend/internal/triage"
)

// Client talks to the triage API.
type Client struct {
	BaseURL  string
	ClientID string
	HTTP     *http.Client
}

func NewClient(baseURL, clientID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status int
	Body   respond.ErrorBody
}

func (e *APIError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (%s)", e.Body.Message, e.Body.Code)
}

// SessionUpdate is the PATCH body; nil fields are left unchanged.
type SessionUpdate struct {
	Description *string `json:"description,omitempty"`
	Module      *string `json:"module,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

type feedbackResponse struct {
	Ack     feedback.Ack `json:"ack"`
	Session triage.View  `json:"session"`
}

func (c *Client) CreateSession(ctx context.Context) (triage.View, error) {
	var v triage.View
	err := c.do(ctx, http.MethodPost, "/api/v1/triage/sessions", nil, "", &v)
	return v, err
}

func (c *Client) GetSession(ctx context.Context, id string) (triage.View, error) {
	var v triage.View
	err := c.do(ctx, http.MethodGet, sessionPath(id), nil, "", &v)
	return v, err
}

func (c *Client) UpdateSession(ctx context.Context, id string, upd SessionUpdate) (triage.View, error) {
	body, err := json.Marshal(upd)
	if err != nil {
		return triage.View{}, err
	}
	var v triage.View
	err = c.do(ctx, http.MethodPatch, sessionPath(id), bytes.NewReader(body), "application/json", &v)
	return v, err
}

// UploadAttachment sends the file at path as the session's screenshot.
func (c *Client) UploadAttachment(ctx context.Context, id, path string) (triage.View, error) {
	f, err := os.Open(path)
	if err != nil {
		return triage.View{}, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return triage.View{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return triage.View{}, fmt.Errorf("read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return triage.View{}, err
	}

	var v triage.View
	err = c.do(ctx, http.MethodPut, sessionPath(id)+"/attachment", &buf, mw.FormDataContentType(), &v)
	return v, err
}

func (c *Client) Analyze(ctx context.Context, id string) (triage.View, error) {
	var v triage.View
	err := c.do(ctx, http.MethodPost, sessionPath(id)+"/analyze", nil, "", &v)
	return v, err
}

// WaitForAnalysis polls the session until it leaves the analyzing state.
func (c *Client) WaitForAnalysis(ctx context.Context, id string, interval time.Duration) (triage.View, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		v, err := c.GetSession(ctx, id)
		if err != nil {
			return v, err
		}
		if v.State != triage.StateAnalyzing {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Feedback(ctx context.Context, id string, resolved bool) (feedback.Ack, triage.View, error) {
	body, _ := json.Marshal(map[string]bool{"resolved": resolved})
	var out feedbackResponse
	err := c.do(ctx, http.MethodPost, sessionPath(id)+"/feedback", bytes.NewReader(body), "application/json", &out)
	return out.Ack, out.Session, err
}

func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id), nil, "", nil)
}

func (c *Client) Similar(ctx context.Context, query string) ([]tickets.SolvedTicket, error) {
	var out struct {
		Items []tickets.SolvedTicket `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/similar?q="+url.QueryEscape(query), nil, "", &out)
	return out.Items, err
}

func sessionPath(id string) string {
	return "/api/v1/triage/sessions/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.ClientID != "" {
		req.Header.Set("X-Client-Id", c.ClientID)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope respond.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Body = envelope.Error
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
