package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/domain"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultExtractionModel is the chat model used for chunk and trait extraction
	DefaultExtractionModel = openai.GPT4oMini
	// DefaultTranscriptionModel is the audio model used for voice transcription
	DefaultTranscriptionModel = openai.Whisper1
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyAudio is returned when audio payload is empty
	ErrEmptyAudio = errors.New("audio payload cannot be empty")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, int, error)
}

// ChatAPI defines the interface for JSON-mode chat completions
type ChatAPI interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// AudioAPI defines the interface for audio transcription
type AudioAPI interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Client wraps the OpenAI API for embeddings, extraction, and transcription.
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	audio      AudioAPI
	model      string
	dimensions int
}

type OpenAIAdapter struct {
	client             *openai.Client
	embeddingModel     openai.EmbeddingModel
	extractionModel    string
	transcriptionModel string
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:             openai.NewClient(apiKey),
		embeddingModel:     model,
		extractionModel:    DefaultExtractionModel,
		transcriptionModel: DefaultTranscriptionModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, int, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) == 0 {
		return nil, 0, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, resp.Usage.TotalTokens, nil
}

// CompleteJSON runs a chat completion constrained to a JSON object response.
func (a *OpenAIAdapter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.extractionModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe sends audio bytes to the transcription API.
func (a *OpenAIAdapter) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, model)
	return &Client{
		embeddings: adapter,
		chat:       adapter,
		audio:      adapter,
		model:      string(model),
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text.
// Returns the vector and the token count reported by the API.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error) {
	if text == "" {
		return nil, 0, ErrEmptyText
	}

	embedding, tokens, err := c.embeddings.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, 0, ErrWrongDimensions
	}

	return embedding, tokens, nil
}

// Model returns the embedding model identifier recorded alongside vectors.
func (c *Client) Model() string {
	return c.model
}

const chunkSystemPrompt = `You split source material into self-contained knowledge chunks for reuse in content generation.
Return a JSON object {"chunks": [...]}. Each chunk has:
"text" (the chunk, rewritten to stand alone), "source_text" (the exact passage it came from),
"kind" (one of "fact", "angle", "example", "quote"), "role" (free-form descriptor such as "supporting_evidence"),
"confidence" (0..1), "transformation" ("extractive" when text equals the passage, "abstractive" otherwise).
Preserve meaning. Never invent facts not present in the source.`

const traitSystemPrompt = `You analyze writing samples and describe the author's voice.
Return a JSON object {"traits": [...]}. Each trait has "trait" (a short description of one voice characteristic),
"example" (a verbatim snippet from the sample showing it), "confidence" (0..1). Report only what the sample shows.`

const factSystemPrompt = `You extract durable facts about the author's business from source material.
Return a JSON object {"facts": [...]}. Each fact has "fact" (one standalone statement),
"category" (such as "product", "audience", "pricing", "positioning"), "confidence" (0..1).
Extract only facts the text states. Skip opinions and transient details.`

// ExtractChunks asks the model to split text into classified knowledge chunks.
func (c *Client) ExtractChunks(ctx context.Context, text string) ([]domain.ExtractedChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	raw, err := c.chat.CompleteJSON(ctx, chunkSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("chunk extraction failed: %w", err)
	}
	var out struct {
		Chunks []domain.ExtractedChunk `json:"chunks"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("chunk extraction returned invalid JSON: %w", err)
	}
	return out.Chunks, nil
}

// ExtractVoiceTraits asks the model for voice characteristics of the text.
func (c *Client) ExtractVoiceTraits(ctx context.Context, text string) ([]domain.ExtractedTrait, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	raw, err := c.chat.CompleteJSON(ctx, traitSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("voice trait extraction failed: %w", err)
	}
	var out struct {
		Traits []domain.ExtractedTrait `json:"traits"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("voice trait extraction returned invalid JSON: %w", err)
	}
	return out.Traits, nil
}

// ExtractBusinessFacts asks the model for business facts stated in the text.
func (c *Client) ExtractBusinessFacts(ctx context.Context, text string) ([]domain.ExtractedFact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	raw, err := c.chat.CompleteJSON(ctx, factSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("business fact extraction failed: %w", err)
	}
	var out struct {
		Facts []domain.ExtractedFact `json:"facts"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("business fact extraction returned invalid JSON: %w", err)
	}
	return out.Facts, nil
}

// Transcribe converts recorded audio to text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	text, err := c.audio.Transcribe(ctx, filename, audio)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
