package handler

import (
	"net/http"

	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/service"
)

// AlbumHandler serves album CRUD and reordering.
type AlbumHandler struct {
	albums *service.AlbumService
}

// NewAlbumHandler creates a new AlbumHandler.
func NewAlbumHandler(albums *service.AlbumService) *AlbumHandler {
	return &AlbumHandler{albums: albums}
}

type albumRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// HandleCreate creates an album.
// POST /api/v1/albums/
func (h *AlbumHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	var title string
	if req.Title != nil {
		title = *req.Title
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	album, err := h.albums.Create(r.Context(), title, req.Description, isPublic)
	if err != nil {
		writeServiceError(w, r, "create album", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAlbumDTO(album))
}

// HandleList lists albums in display order. Anonymous callers see public
// albums only.
// GET /api/v1/albums/
func (h *AlbumHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	albums, err := h.albums.List(r.Context(), UserFromContext(r.Context()) != nil, skip, limit)
	if err != nil {
		writeServiceError(w, r, "list albums", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumDTOs(albums))
}

// HandleGet returns one album.
// GET /api/v1/albums/{id}
func (h *AlbumHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album ID.")
		return
	}
	album, err := h.albums.Get(r.Context(), id, UserFromContext(r.Context()) != nil)
	if err != nil {
		writeServiceError(w, r, "get album", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumDTO(album))
}

// HandleUpdate applies a partial update.
// PATCH /api/v1/albums/{id}
func (h *AlbumHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album ID.")
		return
	}
	var req albumRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	album, err := h.albums.Update(r.Context(), id, domain.AlbumUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeServiceError(w, r, "update album", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumDTO(album))
}

// HandleDelete deletes an album and its photos.
// DELETE /api/v1/albums/{id}
func (h *AlbumHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album ID.")
		return
	}
	if err := h.albums.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete album", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReorder ranks albums in the given order.
// POST /api/v1/albums/reorder
// Request:  {"album_ids":[3,1,2]}
func (h *AlbumHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumIDs []int64 `json:"album_ids"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	albums, err := h.albums.Reorder(r.Context(), req.AlbumIDs)
	if err != nil {
		writeServiceError(w, r, "reorder albums", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumDTOs(albums))
}
