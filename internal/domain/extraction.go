package domain

// ExtractedChunk is one unit produced by chunk extraction, before it is
// persisted as a KnowledgeChunk.
type ExtractedChunk struct {
	Text           string  `json:"text"`
	SourceText     string  `json:"source_text"`
	Kind           string  `json:"kind"`
	Role           string  `json:"role"`
	Confidence     float32 `json:"confidence"`
	Transformation string  `json:"transformation"`
}

// ExtractedTrait is one voice trait produced by trait extraction.
type ExtractedTrait struct {
	Trait      string  `json:"trait"`
	Example    string  `json:"example"`
	Confidence float32 `json:"confidence"`
}

// ExtractedFact is one business fact produced by fact extraction.
type ExtractedFact struct {
	Fact       string  `json:"fact"`
	Category   string  `json:"category"`
	Confidence float32 `json:"confidence"`
}
