// Package genapi is the SDK-like client for the video generation service.
// It creates remote "project" resources carrying the generation parameters
// and the two conditioning images; job lifecycle events arrive separately
// through the events feed.
package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the generation service's project API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a generation service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// CreateProjectParams carries everything one transition generation needs.
// Image payloads are marshaled as base64.
type CreateProjectParams struct {
	ModelID        string  `json:"model_id"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	FlowShift      float64 `json:"flow_shift"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	FrameCount     int     `json:"frame_count"`
	OutputFPS      int     `json:"output_fps"`
	StartImage     []byte  `json:"start_image"`
	EndImage       []byte  `json:"end_image"`
	MediaCount     int     `json:"media_count"`
	Currency       string  `json:"currency,omitempty"`
}

// Project is the handle for a created generation project.
type Project struct {
	ID    string `json:"project_id"`
	JobID string `json:"job_id"`
}

// CreateProject submits a new generation project and returns its handle.
func (c *Client) CreateProject(ctx context.Context, params CreateProjectParams) (*Project, error) {
	var project Project
	if err := c.doJSONRequest(ctx, http.MethodPost, "/v1/projects", params, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, fmt.Errorf("generation service returned no project ID")
	}
	return &project, nil
}

// doJSONRequest performs a JSON request with the given method, path, payload, and result.
// It handles marshaling the payload, creating the request, executing it, and unmarshaling the response.
// If result is nil, the response body is not decoded.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload, result interface{}) error {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generation API returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
