package handlers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/storage"
)

var imageExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

type UploadResponse struct {
	Path string `json:"path"`
}

type ImageHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewImageHandler(storage storage.Storage, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles image assets
// Routes:
// POST /v1/images        - Upload raw image bytes; Content-Type picks the extension
// GET  /v1/images/{name} - Download an image
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/images"), "/")

	switch {
	case r.Method == http.MethodPost && name == "":
		h.handleUpload(w, r)
	case r.Method == http.MethodGet && name != "":
		h.handleGet(w, r, name)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported: POST /v1/images, GET /v1/images/{name}")
	}
}

func (h *ImageHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	ext, ok := imageExtensions[mediaType]
	if !ok {
		writeError(w, h.logger, http.StatusUnsupportedMediaType, "Unsupported image type")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}
	if len(data) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "Image body is empty")
		return
	}

	name, err := h.storage.UploadAsset(r.Context(), data, ext)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to store image")
		return
	}
	h.logger.Info("Image uploaded", "asset", name, "bytes", len(data))
	writeJSON(w, h.logger, http.StatusCreated, UploadResponse{Path: name})
}

func (h *ImageHandler) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	data, err := h.storage.ReadAsset(r.Context(), name)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to read image")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write image", "asset", name, "error", err)
	}
}
