package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/api/middleware"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/service"
)

type IntakeService interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error)
	GetSource(ctx context.Context, orgID, sourceID string) (*domain.IngestionSource, error)
	ListSources(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error)
	Reingest(ctx context.Context, orgID, sourceID string) error
	Delete(ctx context.Context, orgID, sourceID string) (*service.PurgeCounts, error)
	AttachFolders(ctx context.Context, orgID, sourceID string, folderIDs []string) error
}

type SourceHandler struct {
	svc IntakeService
}

func NewSourceHandler(svc IntakeService) *SourceHandler {
	return &SourceHandler{svc: svc}
}

type SubmitSourceRequest struct {
	Type       string            `json:"type"`
	SourceRef  string            `json:"source_ref,omitempty"`
	Title      string            `json:"title,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	URL        string            `json:"url,omitempty"`
	Text       string            `json:"text,omitempty"`
	StorageKey string            `json:"storage_key,omitempty"`
	MimeType   string            `json:"mime_type,omitempty"`
	FolderIDs  []string          `json:"folder_ids,omitempty"`
}

type SubmitSourceResponse struct {
	SourceID string `json:"source_id"`
	Status   string `json:"status"`
}

type SourceResponse struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"org_id"`
	Type        string            `json:"type"`
	SourceRef   string            `json:"source_ref,omitempty"`
	Title       string            `json:"title,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Status      string            `json:"status"`
	DedupReason string            `json:"dedup_reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func sourceToResponse(s *domain.IngestionSource) *SourceResponse {
	return &SourceResponse{
		ID:          s.ID,
		OrgID:       s.OrgID,
		Type:        string(s.Type),
		SourceRef:   s.SourceRef,
		Title:       s.Title,
		Metadata:    s.Metadata,
		Status:      string(s.Status),
		DedupReason: s.DedupReason,
		Error:       s.Error,
		CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *SourceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}

	sourceType := domain.SourceType(req.Type)
	if !isValidSourceType(sourceType) {
		api.Error(w, http.StatusBadRequest, "invalid source type")
		return
	}

	input := service.SubmitInput{
		OrgID:      orgID,
		UserID:     middleware.GetUserID(r.Context()),
		Type:       sourceType,
		SourceRef:  req.SourceRef,
		Title:      req.Title,
		Metadata:   req.Metadata,
		URL:        req.URL,
		Text:       req.Text,
		StorageKey: req.StorageKey,
		MimeType:   req.MimeType,
		FolderIDs:  req.FolderIDs,
	}

	result, err := h.svc.Submit(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Status == service.SubmitStatusDuplicate {
		status = http.StatusOK
	}

	api.Success(w, status, SubmitSourceResponse{
		SourceID: result.SourceID,
		Status:   result.Status,
	})
}

func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	source, err := h.svc.GetSource(r.Context(), orgID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(source))
}

func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 200 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	sources, err := h.svc.ListSources(r.Context(), orgID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SourceResponse, 0, len(sources))
	for _, s := range sources {
		responses = append(responses, sourceToResponse(s))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *SourceHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Reingest(r.Context(), orgID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func isValidSourceType(t domain.SourceType) bool {
	switch t {
	case domain.SourceTypeBookmark, domain.SourceTypeText, domain.SourceTypeFile, domain.SourceTypeVoiceRecording:
		return true
	}
	return false
}

type DeleteSourceResponse struct {
	ChunksPurged int64 `json:"chunks_purged"`
	FactsPurged  int64 `json:"facts_purged"`
	ItemsPurged  int64 `json:"items_purged"`
}

func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	counts, err := h.svc.Delete(r.Context(), orgID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteSourceResponse{
		ChunksPurged: counts.Chunks,
		FactsPurged:  counts.Facts,
		ItemsPurged:  counts.Items,
	})
}

type AttachFoldersRequest struct {
	FolderIDs []string `json:"folder_ids"`
}

func (h *SourceHandler) AttachFolders(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req AttachFoldersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.FolderIDs) == 0 {
		api.Error(w, http.StatusBadRequest, "folder_ids is required")
		return
	}

	if err := h.svc.AttachFolders(r.Context(), orgID, id, req.FolderIDs); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "attached"})
}
