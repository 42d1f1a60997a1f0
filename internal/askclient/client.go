// Package askclient calls the assistant's POST /ask endpoint.
package askclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/astro-go/internal/errs"
)

type askRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type askResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// Client is a client for the /ask API
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a Client for the server at endpoint (scheme://host[:port]).
// A zero timeout means the caller's context alone bounds a request.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Ask sends one message and returns the assistant's reply.
func (c *Client) Ask(ctx context.Context, message, sessionID string) (string, error) {
	body, err := json.Marshal(askRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode/100 != 2 {
			return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", errs.ErrMalformedResponse, err)
	}

	if resp.StatusCode/100 != 2 {
		if out.Error != "" {
			return "", fmt.Errorf("%s (status %d)", out.Error, resp.StatusCode)
		}
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out.Response == nil {
		return "", fmt.Errorf("%w: missing response field", errs.ErrMalformedResponse)
	}
	return *out.Response, nil
}
