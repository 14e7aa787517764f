package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/service"
)

type ResearchSearcher interface {
	ResearchSearch(ctx context.Context, actor service.Actor, input service.ResearchSearchInput) ([]*service.ScoredChunk, error)
}

type ResearchPromoter interface {
	PromoteFromResearch(ctx context.Context, actor service.Actor, input service.PromoteInput) (*domain.KnowledgeChunk, error)
}

type ResearchHandler struct {
	searcher ResearchSearcher
	promoter ResearchPromoter
}

func NewResearchHandler(searcher ResearchSearcher, promoter ResearchPromoter) *ResearchHandler {
	return &ResearchHandler{searcher: searcher, promoter: promoter}
}

type ResearchSearchRequest struct {
	Query      string `json:"query"`
	SourceType string `json:"source_type,omitempty"`
	Variant    string `json:"variant,omitempty"`
	Since      string `json:"since,omitempty"`
	Until      string `json:"until,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ScoredChunkResponse struct {
	Chunk *ChunkResponse `json:"chunk"`
	Score float32        `json:"score"`
}

func (h *ResearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req ResearchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	input := service.ResearchSearchInput{
		Query:      req.Query,
		SourceType: req.SourceType,
		Variant:    req.Variant,
		Limit:      req.Limit,
	}

	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		input.Since = &since
	}
	if req.Until != "" {
		until, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "until must be RFC3339")
			return
		}
		input.Until = &until
	}

	results, err := h.searcher.ResearchSearch(r.Context(), actorFrom(r), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ScoredChunkResponse, 0, len(results))
	for _, sc := range results {
		responses = append(responses, &ScoredChunkResponse{
			Chunk: chunkToResponse(sc.Chunk),
			Score: sc.Score,
		})
	}

	api.Success(w, http.StatusOK, responses)
}

type PromoteRequest struct {
	SnippetText   string `json:"snippet_text"`
	Kind          string `json:"kind"`
	Policy        string `json:"policy,omitempty"`
	Title         string `json:"title,omitempty"`
	SourceType    string `json:"source_type,omitempty"`
	SourceRef     string `json:"source_ref,omitempty"`
	SourceTitle   string `json:"source_title,omitempty"`
	SourceVariant string `json:"source_variant,omitempty"`
}

func (h *ResearchHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SnippetText == "" {
		api.Error(w, http.StatusBadRequest, "snippet_text is required")
		return
	}
	if req.Kind == "" {
		api.Error(w, http.StatusBadRequest, "kind is required")
		return
	}

	input := service.PromoteInput{
		SnippetText:   req.SnippetText,
		Kind:          domain.ChunkKind(req.Kind),
		Policy:        domain.UsagePolicy(req.Policy),
		Title:         req.Title,
		SourceType:    req.SourceType,
		SourceRef:     req.SourceRef,
		SourceTitle:   req.SourceTitle,
		SourceVariant: req.SourceVariant,
	}

	chunk, err := h.promoter.PromoteFromResearch(r.Context(), actorFrom(r), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chunkToResponse(chunk))
}
