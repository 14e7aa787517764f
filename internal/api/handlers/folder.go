package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/api/middleware"
	"github.com/inkwell-ai/inkwell/internal/domain"
)

type FolderAPI interface {
	CreateFolder(ctx context.Context, orgID, name string) (*domain.Folder, error)
	GetFolder(ctx context.Context, orgID, folderID string) (*domain.Folder, error)
}

type FolderHandler struct {
	svc FolderAPI
}

func NewFolderHandler(svc FolderAPI) *FolderHandler {
	return &FolderHandler{svc: svc}
}

type CreateFolderRequest struct {
	Name string `json:"name"`
}

type FolderResponse struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Name      string `json:"name"`
	Stale     bool   `json:"stale"`
	CreatedAt string `json:"created_at"`
}

func folderToResponse(f *domain.Folder) *FolderResponse {
	return &FolderResponse{
		ID:        f.ID,
		OrgID:     f.OrgID,
		Name:      f.Name,
		Stale:     f.IsStale(),
		CreatedAt: f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	folder, err := h.svc.CreateFolder(r.Context(), orgID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, folderToResponse(folder))
}

func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	folder, err := h.svc.GetFolder(r.Context(), orgID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, folderToResponse(folder))
}
