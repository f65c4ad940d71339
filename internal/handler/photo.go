package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/service"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	multipartMemory      = 8 << 20
	defaultStatusPolling = 500 * time.Millisecond
)

// PhotoHandler handles photo upload, retrieval, update, deletion and the
// thumbnail status stream.
type PhotoHandler struct {
	photos         *service.PhotoService
	maxUploadBytes int64
	pollInterval   time.Duration
}

// NewPhotoHandler creates a new PhotoHandler. Upload bodies larger than
// maxUploadBytes are rejected with 413.
func NewPhotoHandler(photos *service.PhotoService, maxUploadBytes int64) *PhotoHandler {
	return &PhotoHandler{
		photos:         photos,
		maxUploadBytes: maxUploadBytes,
		pollInterval:   defaultStatusPolling,
	}
}

// WithPollInterval sets how often the status stream re-checks a pending
// thumbnail.
func (h *PhotoHandler) WithPollInterval(d time.Duration) *PhotoHandler {
	if d > 0 {
		h.pollInterval = d
	}
	return h
}

// HandleUpload stores an uploaded original and queues its thumbnail.
// POST /api/v1/photos/
// Request: multipart form with title, album_id, description (optional), file
// Response: 201 with thumbnail_url null
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || r.ContentLength > h.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	albumID, err := strconv.ParseInt(r.FormValue("album_id"), 10, 64)
	if err != nil || albumID <= 0 {
		writeError(w, http.StatusBadRequest, "album_id must be a positive integer.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	var description *string
	if _, ok := r.MultipartForm.Value["description"]; ok {
		d := r.FormValue("description")
		description = &d
	}

	photo, err := h.photos.Upload(r.Context(), service.PhotoUpload{
		Title:       r.FormValue("title"),
		Description: description,
		AlbumID:     albumID,
		Filename:    header.Filename,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, "upload photo", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPhotoDTO(photo))
}

// HandleList lists photos across visible albums.
// GET /api/v1/photos/
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	photos, err := h.photos.List(r.Context(), UserFromContext(r.Context()) != nil, skip, limit)
	if err != nil {
		writeServiceError(w, r, "list photos", err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoDTOs(photos))
}

// HandleListByAlbum lists the photos of one album.
// GET /api/v1/photos/album/{albumID}
func (h *PhotoHandler) HandleListByAlbum(w http.ResponseWriter, r *http.Request) {
	albumID, ok := pathID(r, "albumID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album ID.")
		return
	}
	skip, limit := pageParams(r)
	photos, err := h.photos.ListByAlbum(r.Context(), albumID, UserFromContext(r.Context()) != nil, skip, limit)
	if err != nil {
		writeServiceError(w, r, "list album photos", err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoDTOs(photos))
}

// HandleGet returns one photo.
// GET /api/v1/photos/{id}
func (h *PhotoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid photo ID.")
		return
	}
	photo, err := h.photos.Get(r.Context(), id, UserFromContext(r.Context()) != nil)
	if err != nil {
		writeServiceError(w, r, "get photo", err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoDTO(photo))
}

// HandleUpdate changes title, description or album.
// PATCH /api/v1/photos/{id}
func (h *PhotoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid photo ID.")
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		AlbumID     *int64  `json:"album_id"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	photo, err := h.photos.Update(r.Context(), id, service.PhotoUpdate{
		Title:       req.Title,
		Description: req.Description,
		AlbumID:     req.AlbumID,
	})
	if err != nil {
		writeServiceError(w, r, "update photo", err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoDTO(photo))
}

// HandleDelete deletes a photo and its files.
// DELETE /api/v1/photos/{id}
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid photo ID.")
		return
	}
	if err := h.photos.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type thumbnailSignals struct {
	PhotoID      int64   `json:"photo_id"`
	State        string  `json:"thumbnail_state"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

// HandleThumbnailEvents streams the thumbnail state as datastar signal
// patches until it is ready or failed, or the client goes away.
// GET /api/v1/photos/{id}/thumbnail/events
func (h *PhotoHandler) HandleThumbnailEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid photo ID.")
		return
	}
	includePrivate := UserFromContext(r.Context()) != nil

	state, photo, err := h.photos.ThumbnailStatus(r.Context(), id, includePrivate)
	if err != nil {
		writeServiceError(w, r, "thumbnail status", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	last := service.ThumbnailState("")
	for {
		if state != last {
			signals := thumbnailSignals{PhotoID: id, State: string(state), ThumbnailURL: photo.ThumbnailURL}
			if err := sse.MarshalAndPatchSignals(signals); err != nil {
				slog.Debug("thumbnail stream closed", "photo_id", id, "error", err)
				return
			}
			last = state
		}
		if state != service.ThumbnailPending {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		state, photo, err = h.photos.ThumbnailStatus(r.Context(), id, includePrivate)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				slog.Error("thumbnail status", "photo_id", id, "error", err)
			}
			sse.MarshalAndPatchSignals(thumbnailSignals{PhotoID: id, State: string(service.ThumbnailFailed)})
			return
		}
	}
}
