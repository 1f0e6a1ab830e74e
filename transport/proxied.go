package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tourloop/genapi"
	"tourloop/types"
)

// Proxied submits generation jobs through the backend relay and follows the
// job lifecycle on its server-push progress stream.
type Proxied struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxied creates the proxied-mode adapter. A nil client gets a default
// with no overall timeout, since the progress stream stays open for the
// life of the job.
func NewProxied(baseURL string, client *http.Client) *Proxied {
	if client == nil {
		client = &http.Client{}
	}
	return &Proxied{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// streamPayload is the data object of one server-push event.
type streamPayload struct {
	Type         string   `json:"type,omitempty"`
	Progress     float64  `json:"progress,omitempty"`
	WorkerName   string   `json:"workerName,omitempty"`
	ResultURL    string   `json:"resultUrl,omitempty"`
	ImageURLs    []string `json:"imageUrls,omitempty"`
	Message      string   `json:"message,omitempty"`
	SDKProjectID string   `json:"sdkProjectId,omitempty"`
	SDKJobID     string   `json:"sdkJobId,omitempty"`
}

// Submit asks the backend to create the project, then subscribes to the
// progress stream scoped to the returned request identifier.
func (p *Proxied) Submit(ctx context.Context, req *types.GenerationRequest) (<-chan Event, error) {
	projectID, err := p.createTransition(ctx, buildParams(req))
	if err != nil {
		return nil, err
	}

	streamURL := fmt.Sprintf("%s/api/progress-stream/%s", p.baseURL, projectID)
	streamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	streamReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(streamReq)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("progress stream returned %d", resp.StatusCode)
	}

	out := make(chan Event, 16)
	go p.follow(projectID, resp.Body, out)
	return out, nil
}

func (p *Proxied) createTransition(ctx context.Context, params genapi.CreateProjectParams) (string, error) {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/generate-transition"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var created struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if created.ProjectID == "" {
		return "", fmt.Errorf("relay returned no project ID")
	}
	return created.ProjectID, nil
}

// follow reads the server-push stream and maps its event taxonomy onto the
// normalized lifecycle. The stream is closed on any terminal event; a
// duplicate completion for an already-resolved job is ignored.
func (p *Proxied) follow(projectID string, body io.ReadCloser, out chan<- Event) {
	defer close(out)
	defer body.Close()

	resolved := false
	err := readEventStream(body, func(name string, data []byte) bool {
		var payload streamPayload
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return true
			}
		}
		if name == "" {
			name = payload.Type
		}

		switch name {
		case "connected":
			// Stream handshake only; the job may already be in flight.
			return true

		case "progress":
			out <- Event{
				Type:    EventProgress,
				Percent: clampPercent(int(payload.Progress * 100)),
				Worker:  payload.WorkerName,
			}
			return true

		case "jobCompleted":
			if resolved || payload.ResultURL == "" {
				return !resolved
			}
			resolved = true
			out <- Event{
				Type:      EventCompleted,
				Percent:   100,
				ClipURL:   payload.ResultURL,
				ProjectID: firstNonEmpty(payload.SDKProjectID, projectID),
				JobID:     payload.SDKJobID,
			}
			return false

		case "completed":
			if resolved {
				return false
			}
			url := payload.ResultURL
			if url == "" && len(payload.ImageURLs) > 0 {
				url = payload.ImageURLs[0]
			}
			resolved = true
			if url == "" {
				out <- Event{Type: EventFailed, Reason: "generation completed without an output address", ProjectID: projectID}
			} else {
				out <- Event{Type: EventCompleted, Percent: 100, ClipURL: url, ProjectID: projectID}
			}
			return false

		case "error":
			if resolved {
				return false
			}
			resolved = true
			reason := payload.Message
			if reason == "" {
				reason = "generation failed"
			}
			out <- Event{Type: EventFailed, Reason: reason, ProjectID: projectID}
			return false
		}
		return true
	})

	if !resolved {
		reason := "progress stream ended before completion"
		if err != nil {
			reason = fmt.Sprintf("progress stream error: %v", err)
		}
		out <- Event{Type: EventFailed, Reason: reason, ProjectID: projectID}
	}
}

// readEventStream parses a text/event-stream body, invoking fn once per
// event with its name and concatenated data lines. fn returns false to stop.
func readEventStream(r io.Reader, fn func(name string, data []byte) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var name string
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" || len(data) > 0 {
				if !fn(name, data) {
					return nil
				}
				name, data = "", nil
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			chunk := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
		}
	}
	if name != "" || len(data) > 0 {
		fn(name, data)
	}
	return scanner.Err()
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
