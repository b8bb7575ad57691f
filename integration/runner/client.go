package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

// PlayResponse mirrors the body returned by every /v1/play call
type PlayResponse struct {
	Session *player.Session `json:"session"`
	View    *player.View    `json:"view"`
}

// StatusError is returned when the API answers with an unexpected status
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Body)
}

// PutStory uploads a story file under storyID
func PutStory(ctx context.Context, client *http.Client, baseURL, storyID, filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read story file %s: %w", filename, err)
	}

	contentType := "application/json"
	if ext := filepath.Ext(filename); ext == ".yaml" || ext == ".yml" {
		contentType = "application/yaml"
	}

	url := fmt.Sprintf("%s/v1/stories/%s", baseURL, storyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to create story request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload story: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// StartPlay opens a play session
func StartPlay(ctx context.Context, client *http.Client, baseURL string, suite TestSuite) (*PlayResponse, error) {
	body := struct {
		StoryID     string                `json:"storyId"`
		Scene       string                `json:"scene,omitempty"`
		KeepHistory bool                  `json:"keepHistory,omitempty"`
		Vars        map[string]vars.Value `json:"vars,omitempty"`
	}{
		StoryID:     suite.StoryID,
		Scene:       suite.Scene,
		KeepHistory: suite.KeepHistory,
		Vars:        suite.SeedVars,
	}
	return doPlay(ctx, client, http.MethodPost, baseURL+"/v1/play", body, http.StatusCreated)
}

// PostPlayAction advances or chooses on a session
func PostPlayAction(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, step TestStep) (*PlayResponse, error) {
	url := fmt.Sprintf("%s/v1/play/%s/%s", baseURL, sessionID, step.Action)
	var body interface{}
	if step.Action == ActionChoose {
		body = map[string]int{"index": step.Choice}
	}
	return doPlay(ctx, client, http.MethodPost, url, body, http.StatusOK)
}

// GetPlay retrieves the current session and view
func GetPlay(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*PlayResponse, error) {
	url := fmt.Sprintf("%s/v1/play/%s", baseURL, sessionID)
	return doPlay(ctx, client, http.MethodGet, url, nil, http.StatusOK)
}

// DeletePlay removes a session
func DeletePlay(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/play/%s", baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func doPlay(ctx context.Context, client *http.Client, method, url string, payload interface{}, wantStatus int) (*PlayResponse, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var pr PlayResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode play response: %w", err)
	}
	if pr.Session == nil {
		return nil, fmt.Errorf("play response has no session")
	}
	return &pr, nil
}
