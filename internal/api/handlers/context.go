package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/api/middleware"
	"github.com/inkwell-ai/inkwell/internal/service"
)

type ContextProvider interface {
	GenerationContext(ctx context.Context, input service.GenerationContextInput) ([]*service.RetrievedChunk, error)
}

// ContextHandler serves retrieval for the content-generation path.
type ContextHandler struct {
	svc ContextProvider
}

func NewContextHandler(svc ContextProvider) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type GenerationContextRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type RetrievedChunkResponse struct {
	Chunk           *ChunkResponse `json:"chunk"`
	Score           float32        `json:"score"`
	InspirationOnly bool           `json:"inspiration_only"`
}

func (h *ContextHandler) GenerationContext(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GenerationContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.GenerationContext(r.Context(), service.GenerationContextInput{
		OrgID: orgID,
		Query: req.Query,
		Limit: req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RetrievedChunkResponse, 0, len(results))
	for _, rc := range results {
		responses = append(responses, &RetrievedChunkResponse{
			Chunk:           chunkToResponse(rc.Chunk),
			Score:           rc.Score,
			InspirationOnly: rc.InspirationOnly,
		})
	}

	api.Success(w, http.StatusOK, responses)
}
