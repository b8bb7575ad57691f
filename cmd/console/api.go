package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/story"
)

// playState is what the UI needs after every move.
type playState struct {
	Session *player.Session `json:"session"`
	View    *player.View    `json:"view"`
}

// backend plays stories either through the API or from a local file.
type backend interface {
	// Entries lists what can be started: story ids remotely, scene names locally.
	Entries() ([]string, error)
	Start(entry string) (*playState, error)
	Advance(s *player.Session) (*playState, error)
	Choose(s *player.Session, index int) (*playState, error)
	Source() string
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// StartPlayRequest matches the API request structure
type StartPlayRequest struct {
	StoryID     string `json:"storyId"`
	KeepHistory bool   `json:"keepHistory,omitempty"`
}

type chooseRequest struct {
	Index int `json:"index"`
}

type remoteBackend struct {
	client      *http.Client
	baseURL     string
	keepHistory bool
}

func newRemoteBackend(client *http.Client, baseURL string, keepHistory bool) *remoteBackend {
	return &remoteBackend{client: client, baseURL: baseURL, keepHistory: keepHistory}
}

func (b *remoteBackend) Source() string { return b.baseURL }

func (b *remoteBackend) Entries() ([]string, error) {
	resp, err := b.client.Get(b.baseURL + "/v1/stories")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body, "failed to list stories")
	}

	var listing struct {
		Stories []string `json:"stories"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse story list: %w", err)
	}
	sort.Strings(listing.Stories)
	return listing.Stories, nil
}

func (b *remoteBackend) Start(storyID string) (*playState, error) {
	return b.post("/v1/play", StartPlayRequest{StoryID: storyID, KeepHistory: b.keepHistory}, http.StatusCreated)
}

func (b *remoteBackend) Advance(s *player.Session) (*playState, error) {
	return b.post(playPath(s.ID, "advance"), nil, http.StatusOK)
}

func (b *remoteBackend) Choose(s *player.Session, index int) (*playState, error) {
	return b.post(playPath(s.ID, "choose"), chooseRequest{Index: index}, http.StatusOK)
}

func playPath(id uuid.UUID, action string) string {
	return fmt.Sprintf("/v1/play/%s/%s", id, action)
}

func (b *remoteBackend) post(path string, payload interface{}, wantStatus int) (*playState, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	resp, err := b.client.Post(b.baseURL+path, "application/json", reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return nil, apiError(resp.StatusCode, body, "play request failed")
	}

	var ps playState
	if err := json.Unmarshal(body, &ps); err != nil {
		return nil, fmt.Errorf("failed to parse play response: %w", err)
	}
	if ps.Session == nil {
		return nil, fmt.Errorf("play response has no session")
	}
	return &ps, nil
}

func apiError(status int, body []byte, what string) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("%s: %s", what, errorResp.Error)
}

// localBackend plays a story file in-process without the API.
type localBackend struct {
	path        string
	doc         story.Document
	keepHistory bool
}

func newLocalBackend(path string, keepHistory bool) (*localBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc story.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = story.ParseYAML(data)
	default:
		doc, err = story.ParseDocument(data)
	}
	if err != nil {
		return nil, err
	}
	return &localBackend{path: path, doc: doc, keepHistory: keepHistory}, nil
}

func (b *localBackend) Source() string { return b.path }

func (b *localBackend) Entries() ([]string, error) {
	names := b.doc.SceneNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("%s has no scenes", b.path)
	}
	return names, nil
}

func (b *localBackend) Start(scene string) (*playState, error) {
	s, err := player.Start(b.doc, scene, player.Options{KeepHistory: b.keepHistory})
	if err != nil {
		return nil, err
	}
	s.StoryID = strings.TrimSuffix(filepath.Base(b.path), filepath.Ext(b.path))
	return b.state(s)
}

func (b *localBackend) Advance(s *player.Session) (*playState, error) {
	if err := s.Advance(b.doc); err != nil {
		return nil, err
	}
	return b.state(s)
}

func (b *localBackend) Choose(s *player.Session, index int) (*playState, error) {
	if err := s.Choose(b.doc, index); err != nil {
		return nil, err
	}
	return b.state(s)
}

func (b *localBackend) state(s *player.Session) (*playState, error) {
	if s.Ended {
		return &playState{Session: s}, nil
	}
	view, err := s.View(b.doc)
	if err != nil {
		return nil, err
	}
	return &playState{Session: s, View: view}, nil
}
