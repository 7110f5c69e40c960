// Package followupboss provides the HTTP client for the FollowUp Boss
// events API.
package followupboss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lead_router_backend/internal/lead"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"
)

// APIError is a non-2xx response from the FollowUp Boss API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("followup boss: status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the failure is worth retrying. Client
// errors are configuration problems; retrying them cannot succeed.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsRetryable classifies a push failure for the retry queue. Transport
// errors (timeouts, connection resets) are retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return err != nil
}

// Client is the HTTP client for the FollowUp Boss events API. Requests
// authenticate with HTTP Basic auth, API key as the username.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	system     string
	log        *logger.Logger
}

// New creates a new FollowUp Boss client.
func New(cfg config.CRMConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.GetFollowUpBossBaseURL(), "/"),
		apiKey:     cfg.GetFollowUpBossAPIKey(),
		system:     cfg.GetFollowUpBossSystem(),
		log:        log,
	}
}

type eventPerson struct {
	FirstName string       `json:"firstName,omitempty"`
	LastName  string       `json:"lastName,omitempty"`
	Emails    []eventValue `json:"emails,omitempty"`
	Phones    []eventValue `json:"phones,omitempty"`
	Tags      []string     `json:"tags,omitempty"`
}

type eventValue struct {
	Value string `json:"value"`
}

type eventProperty struct {
	MLSNumber string `json:"mlsNumber,omitempty"`
}

type eventRequest struct {
	Source   string         `json:"source"`
	System   string         `json:"system,omitempty"`
	Type     string         `json:"type"`
	Message  string         `json:"message,omitempty"`
	PageURL  string         `json:"pageUrl,omitempty"`
	Person   eventPerson    `json:"person"`
	Property *eventProperty `json:"property,omitempty"`
}

// Push sends the lead to FollowUp Boss as an inquiry event. The source
// and extra tags come from the route's action configuration; the
// lead's interests are always carried as tags.
func (c *Client) Push(ctx context.Context, rec lead.Record, source string, tags []string) error {
	if source == "" {
		source = rec.Source
	}

	payload := eventRequest{
		Source:  source,
		System:  c.system,
		Type:    "Inquiry",
		Message: rec.Message,
		PageURL: rec.SourceURL,
		Person: eventPerson{
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			Tags:      mergeTags(tags, rec.Interests),
		},
	}
	if rec.Email != "" {
		payload.Person.Emails = []eventValue{{Value: rec.Email}}
	}
	if rec.Phone != "" {
		payload.Person.Phones = []eventValue{{Value: rec.Phone}}
	}
	if rec.ListingID != nil {
		payload.Property = &eventProperty{MLSNumber: *rec.ListingID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("followup boss request failed", "error", err, "submission_id", rec.SubmissionID)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	return nil
}

func mergeTags(tags, interests []string) []string {
	seen := make(map[string]struct{}, len(tags)+len(interests))
	merged := make([]string, 0, len(tags)+len(interests))
	for _, t := range append(append([]string{}, tags...), interests...) {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}
