// Package launcher defines the external instance launcher collaborator.
// How preview processes are built and started is the launcher service's
// concern; the gateway only needs an address back.
package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Launcher starts a preview process for a project and returns its
// host:port address.
type Launcher interface {
	Launch(ctx context.Context, projectID string) (string, error)
}

// HTTPLauncher talks to the platform's launcher service over HTTP.
type HTTPLauncher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPLauncher creates a launcher client for the given base endpoint.
func NewHTTPLauncher(endpoint string) *HTTPLauncher {
	return &HTTPLauncher{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type launchRequest struct {
	ProjectID string `json:"project_id"`
}

type launchResponse struct {
	Address string `json:"address"`
	Error   string `json:"error,omitempty"`
}

// Launch implements Launcher.
func (l *HTTPLauncher) Launch(ctx context.Context, projectID string) (string, error) {
	body, err := json.Marshal(launchRequest{ProjectID: projectID})
	if err != nil {
		return "", fmt.Errorf("encoding launch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint+"/launch", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building launch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling launcher: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("reading launcher response: %w", err)
	}

	var lr launchResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return "", fmt.Errorf("decoding launcher response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if lr.Error != "" {
			return "", fmt.Errorf("launcher returned %d: %s", resp.StatusCode, lr.Error)
		}
		return "", fmt.Errorf("launcher returned %d", resp.StatusCode)
	}
	if lr.Address == "" {
		return "", fmt.Errorf("launcher returned no address")
	}
	return lr.Address, nil
}

// StaticLauncher always returns a fixed address. Useful for local
// development against an already-running dev server.
type StaticLauncher struct {
	Address string
}

// Launch implements Launcher.
func (l *StaticLauncher) Launch(ctx context.Context, projectID string) (string, error) {
	if l.Address == "" {
		return "", fmt.Errorf("no static preview address configured")
	}
	return l.Address, nil
}
