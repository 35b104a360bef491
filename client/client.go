// Package client is the playback side of the progress contract: a typed HTTP
// client for the marketplace API and a Reporter that turns a playback
// position into the report schedule the server expects. The server merge is
// idempotent and monotonic, so the client never needs to care whether a
// report was duplicated, delayed, or dropped.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coursemarket/models"
	"coursemarket/progress"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type enrollmentResponse struct {
	Message    string            `json:"message"`
	Enrollment models.Enrollment `json:"enrollment"`
}

type enrollmentsResponse struct {
	Enrollments []models.Enrollment `json:"enrollments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Enroll enrolls the authenticated user in a course.
func (c *Client) Enroll(ctx context.Context, courseID uint) (models.Enrollment, error) {
	var out enrollmentResponse
	url := fmt.Sprintf("%s/api/courses/%d/enroll", c.BaseURL, courseID)
	if err := c.do(ctx, http.MethodPost, url, nil, &out); err != nil {
		return models.Enrollment{}, err
	}
	return out.Enrollment, nil
}

// Unenroll deactivates the enrollment, keeping its history server-side.
func (c *Client) Unenroll(ctx context.Context, courseID uint) (models.Enrollment, error) {
	var out enrollmentResponse
	url := fmt.Sprintf("%s/api/courses/%d/enroll", c.BaseURL, courseID)
	if err := c.do(ctx, http.MethodDelete, url, nil, &out); err != nil {
		return models.Enrollment{}, err
	}
	return out.Enrollment, nil
}

// ListMyEnrollments fetches every enrollment of the authenticated user.
func (c *Client) ListMyEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	var out enrollmentsResponse
	url := fmt.Sprintf("%s/api/enrollments", c.BaseURL)
	if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	return out.Enrollments, nil
}

// ReportProgress sends one playback report and returns the authoritative
// enrollment state to reconcile against.
func (c *Client) ReportProgress(ctx context.Context, courseID uint, report progress.Report) (models.Enrollment, error) {
	var out enrollmentResponse
	url := fmt.Sprintf("%s/api/courses/%d/progress", c.BaseURL, courseID)
	if err := c.do(ctx, http.MethodPost, url, report, &out); err != nil {
		return models.Enrollment{}, err
	}
	return out.Enrollment, nil
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("client: %s %s status=%d: %s", method, url, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("client: %s %s status=%d", method, url, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}
