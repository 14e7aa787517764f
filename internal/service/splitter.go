package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// ChunkConfig controls heuristic text splitting.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for splitting.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 40,
	}
}

func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 {
			if end-start > cfg.Overlap {
				nextStart = end - cfg.Overlap
			}
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// HeuristicExtractor splits text by size without an LLM. It produces
// extractive chunks only, classifies quoted passages as quotes, and returns
// no voice traits or business facts. Used when no extraction model is
// configured.
type HeuristicExtractor struct {
	cfg ChunkConfig
}

func NewHeuristicExtractor(cfg ChunkConfig) *HeuristicExtractor {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	return &HeuristicExtractor{cfg: cfg}
}

func (e *HeuristicExtractor) ExtractChunks(_ context.Context, text string) ([]domain.ExtractedChunk, error) {
	pieces := chunkText(text, e.cfg)
	chunks := make([]domain.ExtractedChunk, 0, len(pieces))
	for _, piece := range pieces {
		kind := domain.ChunkKindFact
		if looksQuoted(piece) {
			kind = domain.ChunkKindQuote
		}
		chunks = append(chunks, domain.ExtractedChunk{
			Text:           piece,
			SourceText:     piece,
			Kind:           string(kind),
			Confidence:     0.5,
			Transformation: string(domain.TransformationExtractive),
		})
	}
	return chunks, nil
}

func (e *HeuristicExtractor) ExtractVoiceTraits(_ context.Context, _ string) ([]domain.ExtractedTrait, error) {
	return nil, nil
}

func (e *HeuristicExtractor) ExtractBusinessFacts(_ context.Context, _ string) ([]domain.ExtractedFact, error) {
	return nil, nil
}

func looksQuoted(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 {
		return false
	}
	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	return (first == '"' && last == '"') || (strings.HasPrefix(trimmed, "“") && strings.HasSuffix(trimmed, "”"))
}
