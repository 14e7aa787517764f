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

type GovernanceAPI interface {
	ListChunks(ctx context.Context, actor service.Actor, filters service.ChunkListFilters, cursor string, limit int) (*service.ChunkPageResult, error)
	GetChunk(ctx context.Context, actor service.Actor, chunkID string) (*domain.KnowledgeChunk, error)
	ListChunkEvents(ctx context.Context, actor service.Actor, chunkID string) ([]*domain.ChunkEvent, error)
	Activate(ctx context.Context, actor service.Actor, chunkID, reason string) (bool, error)
	Deactivate(ctx context.Context, actor service.Actor, chunkID, reason string) (bool, error)
	Reclassify(ctx context.Context, actor service.Actor, chunkID string, newKind domain.ChunkKind, reason string) (bool, error)
	SetPolicy(ctx context.Context, actor service.Actor, chunkID string, newPolicy domain.UsagePolicy, reason string) (bool, error)
	HardDelete(ctx context.Context, actor service.Actor, chunkID string, confirm bool) error
}

type ChunkHandler struct {
	svc GovernanceAPI
}

func NewChunkHandler(svc GovernanceAPI) *ChunkHandler {
	return &ChunkHandler{svc: svc}
}

func actorFrom(r *http.Request) service.Actor {
	return service.Actor{
		OrgID:  middleware.GetOrgID(r.Context()),
		UserID: middleware.GetUserID(r.Context()),
	}
}

type ChunkResponse struct {
	ID             string  `json:"id"`
	ItemID         string  `json:"item_id"`
	OrgID          string  `json:"org_id"`
	ChunkText      string  `json:"chunk_text"`
	Kind           string  `json:"kind"`
	Role           string  `json:"role,omitempty"`
	Confidence     float32 `json:"confidence"`
	IsActive       bool    `json:"is_active"`
	Policy         string  `json:"usage_policy"`
	SourceType     string  `json:"source_type,omitempty"`
	SourceRef      string  `json:"source_ref,omitempty"`
	SourceTitle    string  `json:"source_title,omitempty"`
	SourceVariant  string  `json:"source_variant,omitempty"`
	EmbeddingModel string  `json:"embedding_model,omitempty"`
	TokenCount     int     `json:"token_count,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func chunkToResponse(c *domain.KnowledgeChunk) *ChunkResponse {
	return &ChunkResponse{
		ID:             c.ID,
		ItemID:         c.ItemID,
		OrgID:          c.OrgID,
		ChunkText:      c.ChunkText,
		Kind:           string(c.Kind),
		Role:           c.Role,
		Confidence:     c.Confidence,
		IsActive:       c.IsActive,
		Policy:         string(c.Policy),
		SourceType:     c.SourceType,
		SourceRef:      c.SourceRef,
		SourceTitle:    c.SourceTitle,
		SourceVariant:  c.SourceVariant,
		EmbeddingModel: c.EmbeddingModel,
		TokenCount:     c.TokenCount,
		CreatedAt:      c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type ChunkListResponse struct {
	Chunks     []*ChunkResponse `json:"chunks"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

func (h *ChunkHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor.OrgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filters := service.ChunkListFilters{
		Kind:       domain.ChunkKind(q.Get("kind")),
		Policy:     domain.UsagePolicy(q.Get("policy")),
		SourceType: q.Get("source_type"),
		Query:      q.Get("q"),
	}

	if activeStr := q.Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
		filters.Active = &active
	}

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 200 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListChunks(r.Context(), actor, filters, q.Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ChunkListResponse{
		Chunks:     make([]*ChunkResponse, 0, len(page.Chunks)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, c := range page.Chunks {
		resp.Chunks = append(resp.Chunks, chunkToResponse(c))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ChunkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunk, err := h.svc.GetChunk(r.Context(), actorFrom(r), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

type ChunkEventResponse struct {
	ID        string               `json:"id"`
	ChunkID   string               `json:"chunk_id"`
	Type      string               `json:"type"`
	Before    domain.FieldSnapshot `json:"before,omitempty"`
	After     domain.FieldSnapshot `json:"after,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	ActorID   string               `json:"actor_id"`
	CreatedAt string               `json:"created_at"`
}

func (h *ChunkHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	events, err := h.svc.ListChunkEvents(r.Context(), actorFrom(r), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ChunkEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, &ChunkEventResponse{
			ID:        e.ID,
			ChunkID:   e.ChunkID,
			Type:      string(e.Type),
			Before:    e.Before,
			After:     e.After,
			Reason:    e.Reason,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, responses)
}

type MutateChunkRequest struct {
	Reason string `json:"reason,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Policy string `json:"policy,omitempty"`
}

type MutateChunkResponse struct {
	Changed bool `json:"changed"`
}

func (h *ChunkHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actor service.Actor, id string, req MutateChunkRequest) (bool, error) {
		return h.svc.Activate(ctx, actor, id, req.Reason)
	})
}

func (h *ChunkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actor service.Actor, id string, req MutateChunkRequest) (bool, error) {
		return h.svc.Deactivate(ctx, actor, id, req.Reason)
	})
}

func (h *ChunkHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actor service.Actor, id string, req MutateChunkRequest) (bool, error) {
		if req.Kind == "" {
			return false, domain.NewDomainError(domain.ErrCodeValidation, "kind is required")
		}
		return h.svc.Reclassify(ctx, actor, id, domain.ChunkKind(req.Kind), req.Reason)
	})
}

func (h *ChunkHandler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actor service.Actor, id string, req MutateChunkRequest) (bool, error) {
		if req.Policy == "" {
			return false, domain.NewDomainError(domain.ErrCodeValidation, "policy is required")
		}
		return h.svc.SetPolicy(ctx, actor, id, domain.UsagePolicy(req.Policy), req.Reason)
	})
}

func (h *ChunkHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, service.Actor, string, MutateChunkRequest) (bool, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req MutateChunkRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	changed, err := fn(r.Context(), actorFrom(r), id, req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MutateChunkResponse{Changed: changed})
}

func (h *ChunkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := h.svc.HardDelete(r.Context(), actorFrom(r), id, confirm); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
