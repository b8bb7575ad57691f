package handlers

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
)

// Publisher announces story and play changes. Failures are logged by the
// caller and never fail the request.
type Publisher interface {
	PublishStorySaved(ctx context.Context, storyID string, scenes []string) error
	PublishStoryDeleted(ctx context.Context, storyID string) error
	PublishPlayUpdated(ctx context.Context, s *player.Session) error
}

// AssetSinkFunc returns where a story's orphaned images are sent.
type AssetSinkFunc func(storyID string) editor.AssetSink

// SaveResponse is returned after a story is written.
type SaveResponse struct {
	ID       string          `json:"id"`
	Problems []story.Problem `json:"problems"`
}

type StoryHandler struct {
	storage   storage.Storage
	publisher Publisher
	assets    AssetSinkFunc
	logger    *slog.Logger

	// mu serializes read-modify-write of documents within this process.
	mu sync.Mutex
}

func NewStoryHandler(storage storage.Storage, publisher Publisher, assets AssetSinkFunc, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		storage:   storage,
		publisher: publisher,
		assets:    assets,
		logger:    logger,
	}
}

// ServeHTTP handles HTTP requests for story documents
// Routes:
// GET    /v1/stories             - List story ids
// GET    /v1/stories/{id}        - Read a document
// PUT    /v1/stories/{id}        - Replace a document (JSON or YAML body)
// DELETE /v1/stories/{id}        - Delete a document
// GET    /v1/stories/{id}/problems - Validate a stored document
// POST   /v1/stories/{id}/edits  - Apply a batch of graph edits
func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stories"), "/")
	if path == "" {
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		h.handleList(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if !validStoryID(id) || len(parts) > 2 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid story ID")
		return
	}

	if len(parts) == 2 {
		switch {
		case parts[1] == "edits" && r.Method == http.MethodPost:
			h.handleEdits(w, r, id)
		case parts[1] == "problems" && r.Method == http.MethodGet:
			h.handleProblems(w, r, id)
		case parts[1] == "edits" || parts[1] == "problems":
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			writeError(w, h.logger, http.StatusNotFound, "Unknown story resource")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodPut:
		h.handlePut(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PUT, DELETE")
	}
}

func (h *StoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListStories(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to list stories")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string][]string{"stories": ids})
}

func (h *StoryHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load story")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

func (h *StoryHandler) handleProblems(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load story")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SaveResponse{ID: id, Problems: problemsOf(doc)})
}

func (h *StoryHandler) handlePut(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	var doc story.Document
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		doc, err = story.ParseYAML(body)
	default:
		doc, err = story.ParseDocument(body)
	}
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if len(doc) == 0 {
		doc = story.NewDocument()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.save(r.Context(), id, doc); err != nil {
		writeDomainError(w, h.logger, err, "Failed to save story")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SaveResponse{ID: id, Problems: problemsOf(doc)})
}

func (h *StoryHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	doc, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load story")
		return
	}
	if err := h.storage.DeleteStory(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err, "Failed to delete story")
		return
	}

	if h.assets != nil {
		if images := doc.ImagePaths(); len(images) > 0 {
			names := make([]string, 0, len(images))
			for name := range images {
				names = append(names, name)
			}
			h.assets(id).ScheduleAssetDeletion(r.Context(), names)
		}
	}
	if h.publisher != nil {
		if err := h.publisher.PublishStoryDeleted(r.Context(), id); err != nil {
			h.logger.Warn("Failed to publish story deletion", "story_id", id, "error", err)
		}
	}

	h.logger.Info("Story deleted", "story_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoryHandler) save(ctx context.Context, id string, doc story.Document) error {
	if err := h.storage.SaveStory(ctx, id, doc); err != nil {
		return err
	}
	if h.publisher != nil {
		if err := h.publisher.PublishStorySaved(ctx, id, doc.SceneNames()); err != nil {
			h.logger.Warn("Failed to publish story save", "story_id", id, "error", err)
		}
	}
	h.logger.Info("Story saved", "story_id", id, "scenes", len(doc))
	return nil
}

func problemsOf(doc story.Document) []story.Problem {
	problems := story.Validate(doc)
	if problems == nil {
		problems = []story.Problem{}
	}
	return problems
}
