package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
)

const maxBodyBytes = 10 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

var storyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func validStoryID(id string) bool {
	return storyIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, editor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrConflict),
		errors.Is(err, player.ErrChoiceRequired),
		errors.Is(err, player.ErrNotChoiceStep),
		errors.Is(err, player.ErrEnded):
		return http.StatusConflict
	case errors.Is(err, editor.ErrInvalidID),
		errors.Is(err, editor.ErrInvalidType),
		errors.Is(err, editor.ErrInvalidPatch),
		errors.Is(err, player.ErrChoiceOutOfRange),
		errors.Is(err, storage.ErrInvalidAssetName),
		errors.Is(err, story.ErrMissingType),
		errors.Is(err, story.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrSceneNotFound),
		errors.Is(err, player.ErrStepNotFound),
		errors.Is(err, player.ErrNoEntryPoint):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err with its mapped status. Server errors are
// logged and their detail hidden from the client.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		writeError(w, logger, status, msg)
		return
	}
	writeError(w, logger, status, err.Error())
}
