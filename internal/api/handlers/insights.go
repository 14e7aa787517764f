package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/service"
)

type InsightsAPI interface {
	ListFacts(ctx context.Context, actor service.Actor, limit int) ([]*domain.BusinessFact, error)
	ListVoiceTraits(ctx context.Context, actor service.Actor, limit int) ([]*domain.VoiceTrait, error)
}

// InsightsHandler exposes the extracted business facts and voice traits.
type InsightsHandler struct {
	svc InsightsAPI
}

func NewInsightsHandler(svc InsightsAPI) *InsightsHandler {
	return &InsightsHandler{svc: svc}
}

type BusinessFactResponse struct {
	ID         string  `json:"id"`
	ItemID     string  `json:"item_id,omitempty"`
	Fact       string  `json:"fact"`
	Category   string  `json:"category,omitempty"`
	Confidence float32 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

type VoiceTraitResponse struct {
	ID         string  `json:"id"`
	ItemID     string  `json:"item_id"`
	Trait      string  `json:"trait"`
	Example    string  `json:"example,omitempty"`
	Confidence float32 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

func listLimit(r *http.Request) (int, bool) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 500 {
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func (h *InsightsHandler) ListFacts(w http.ResponseWriter, r *http.Request) {
	limit, ok := listLimit(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	facts, err := h.svc.ListFacts(r.Context(), actorFrom(r), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*BusinessFactResponse, 0, len(facts))
	for _, f := range facts {
		responses = append(responses, &BusinessFactResponse{
			ID:         f.ID,
			ItemID:     f.ItemID,
			Fact:       f.Fact,
			Category:   f.Category,
			Confidence: f.Confidence,
			CreatedAt:  f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *InsightsHandler) ListVoiceTraits(w http.ResponseWriter, r *http.Request) {
	limit, ok := listLimit(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	traits, err := h.svc.ListVoiceTraits(r.Context(), actorFrom(r), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*VoiceTraitResponse, 0, len(traits))
	for _, tr := range traits {
		responses = append(responses, &VoiceTraitResponse{
			ID:         tr.ID,
			ItemID:     tr.ItemID,
			Trait:      tr.Trait,
			Example:    tr.Example,
			Confidence: tr.Confidence,
			CreatedAt:  tr.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, responses)
}
