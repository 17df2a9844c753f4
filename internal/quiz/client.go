package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

// SubmitPath is the endpoint the wizard posts to, relative to the site root.
const SubmitPath = "/quiz/api/form/submit"

// APIError is a non-2xx answer from the submit endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("submit returned %d: %s", e.StatusCode, e.Message)
}

// Client posts quiz payloads to a running server.
type Client struct {
	url    string
	client *http.Client
}

// NewClient targets the server at baseURL. A nil client uses
// http.DefaultClient.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{url: strings.TrimRight(baseURL, "/") + SubmitPath, client: client}
}

// Submit sends req and decodes the acknowledgement.
func (c *Client) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "Internal form submission failed"}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
		return nil, apiErr
	}

	var out models.SubmitResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return &out, nil
}
