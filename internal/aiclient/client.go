// Package aiclient talks to the external AI recommendation service.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/satyamkes/JanSahyog/internal/models"
)

const checkEligibilityPath = "/api/check-eligibility"

// maxResponseSize caps how much of the AI response is relayed.
const maxResponseSize = 10 << 20

var (
	// ErrUnavailable is returned when the AI service refuses the connection.
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrNotConfigured is returned by a client without a base URL.
	ErrNotConfigured = errors.New("ai service not configured")
)

// StatusError is returned when the AI service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai service returned status %d: %s", e.StatusCode, e.Body)
}

// Client posts eligibility checks to the AI service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

type checkRequest struct {
	Age      int     `json:"age"`
	Income   float64 `json:"income"`
	Category string  `json:"category"`
	State    string  `json:"state"`
	Gender   *string `json:"gender"`
}

// CheckEligibility forwards the profile and returns the response body as-is.
// A refused connection yields ErrUnavailable so callers can fall back.
func (c *Client) CheckEligibility(ctx context.Context, profile models.ApplicantProfile) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	payload := checkRequest{
		Age:      profile.Age,
		Income:   profile.Income,
		Category: profile.Category,
		State:    profile.State,
	}
	if profile.Gender != "" {
		payload.Gender = &profile.Gender
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkEligibilityPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read ai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("ai service returned invalid JSON")
	}

	return json.RawMessage(data), nil
}
