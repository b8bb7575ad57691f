package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

// StartPlayRequest begins a play-through of a stored story.
type StartPlayRequest struct {
	StoryID     string                `json:"storyId"`
	Scene       string                `json:"scene,omitempty"`
	KeepHistory bool                  `json:"keepHistory,omitempty"`
	Vars        map[string]vars.Value `json:"vars,omitempty"`
}

type ChooseRequest struct {
	Index int `json:"index"`
}

// PlayResponse is the session together with its current view.
type PlayResponse struct {
	Session *player.Session `json:"session"`
	View    *player.View    `json:"view"`
}

type PlayHandler struct {
	storage   storage.Storage
	publisher Publisher
	logger    *slog.Logger
}

func NewPlayHandler(storage storage.Storage, publisher Publisher, logger *slog.Logger) *PlayHandler {
	return &PlayHandler{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP handles play sessions
// Routes:
// POST   /v1/play              - Start a session
// GET    /v1/play/{id}         - Current session and view
// POST   /v1/play/{id}/advance - Continue past a non-choice step
// POST   /v1/play/{id}/choose  - Take a choice: {"index": n}
// DELETE /v1/play/{id}         - End and remove a session
func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/play"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleStart(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil || len(parts) > 2 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid play session ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "advance" && r.Method == http.MethodPost:
		h.handleStep(w, r, id, func(s *player.Session, doc story.Document) error {
			return s.Advance(doc)
		})
	case action == "choose" && r.Method == http.MethodPost:
		var req ChooseRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid choose request: "+err.Error())
			return
		}
		h.handleStep(w, r, id, func(s *player.Session, doc story.Document) error {
			return s.Choose(doc, req.Index)
		})
	case action != "" && action != "advance" && action != "choose":
		writeError(w, h.logger, http.StatusNotFound, "Unknown play action")
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *PlayHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartPlayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid start request: "+err.Error())
		return
	}
	if !validStoryID(req.StoryID) {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid story ID")
		return
	}

	doc, err := h.storage.LoadStory(r.Context(), req.StoryID)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load story")
		return
	}

	scene := req.Scene
	if scene == "" {
		scene = defaultScene(doc)
	}
	s, err := player.Start(doc, scene, player.Options{KeepHistory: req.KeepHistory, Vars: req.Vars})
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to start play")
		return
	}
	s.StoryID = req.StoryID

	h.logger.Info("Play session started", "session_id", s.ID, "story_id", s.StoryID, "scene", scene)
	h.respond(w, r, http.StatusCreated, s, doc)
}

func (h *PlayHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, doc, ok := h.load(w, r, id)
	if !ok {
		return
	}
	view, err := s.View(doc)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to render step")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, PlayResponse{Session: s, View: view})
}

func (h *PlayHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeletePlaySession(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err, "Failed to delete play session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlayHandler) handleStep(w http.ResponseWriter, r *http.Request, id uuid.UUID, step func(*player.Session, story.Document) error) {
	s, doc, ok := h.load(w, r, id)
	if !ok {
		return
	}
	if err := step(s, doc); err != nil {
		writeDomainError(w, h.logger, err, "Failed to advance play")
		return
	}
	h.respond(w, r, http.StatusOK, s, doc)
}

// load fetches a session and the document it plays. It writes the error
// response itself and reports whether the caller may continue.
func (h *PlayHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*player.Session, story.Document, bool) {
	s, err := h.storage.LoadPlaySession(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load play session")
		return nil, nil, false
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Play session not found")
		return nil, nil, false
	}
	doc, err := h.storage.LoadStory(r.Context(), s.StoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusGone, "Story for this session no longer exists")
			return nil, nil, false
		}
		writeDomainError(w, h.logger, err, "Failed to load story")
		return nil, nil, false
	}
	return s, doc, true
}

func (h *PlayHandler) respond(w http.ResponseWriter, r *http.Request, status int, s *player.Session, doc story.Document) {
	var view *player.View
	if !s.Ended {
		v, err := s.View(doc)
		if err != nil {
			writeDomainError(w, h.logger, err, "Failed to render step")
			return
		}
		view = v
	}

	if err := h.storage.SavePlaySession(r.Context(), s); err != nil {
		writeDomainError(w, h.logger, err, "Failed to save play session")
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishPlayUpdated(r.Context(), s); err != nil {
			h.logger.Warn("Failed to publish play update", "session_id", s.ID, "error", err)
		}
	}
	writeJSON(w, h.logger, status, PlayResponse{Session: s, View: view})
}

// defaultScene picks the conventional first scene, else the first by name.
func defaultScene(doc story.Document) string {
	if _, ok := doc.Scene(story.DefaultSceneName); ok {
		return story.DefaultSceneName
	}
	if names := doc.SceneNames(); len(names) > 0 {
		return names[0]
	}
	return story.DefaultSceneName
}
