// ABOUTME: OpenAI client for query embeddings and streamed chat completions
// ABOUTME: Uses text-embedding-3-small for embeddings and gpt-4 for chat (configurable)
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/ummati/ummati/internal/models"
	"github.com/ummati/ummati/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = openai.GPT4
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
)

// ErrTruncated is returned when the completion body ends without a finish reason
var ErrTruncated = errors.New("completion stream ended without a finish reason")

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	// MaxRetries and RetryDelay only apply to EmbedWithRetry
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: string(DefaultEmbeddingModel),
		MaxRetries:     3,
		RetryDelay:     time.Second * 2,
	}
}

// Delta is one incremental piece of a streamed completion
type Delta struct {
	Content      string
	FinishReason string
}

// Stream is an open streamed completion. Recv returns io.EOF after a clean
// finish and any other error when the stream was aborted.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = config.BaseURL
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := openai.EmbeddingModel(config.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oaiConfig),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
	}, nil
}

// ChatModel returns the configured chat model name
func (c *OpenAIClient) ChatModel() string {
	return c.chatModel
}

// Embed generates an embedding for text with a single attempt
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:          []string{text},
		Model:          c.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedWithRetry is Embed with exponential backoff, used by offline ingest
func (c *OpenAIClient) EmbedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		var err error
		vector, err = c.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding after %d attempts: %w", c.maxRetries+1, err)
	}
	return vector, nil
}

// OpenStream starts a streamed chat completion for messages. The stream
// lives as long as ctx; cancelling ctx releases the HTTP connection.
func (c *OpenAIClient) OpenStream(ctx context.Context, messages []models.Message) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: toChatMessages(messages),
		Stream:   true,
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("opening completion stream: %w", err)
	}
	return &chatStream{stream: stream}, nil
}

func toChatMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	return out
}

// chatStream adapts go-openai's stream. The SDK reports both "[DONE]" and a
// bare end of body as io.EOF, so a finish reason must have been seen for
// the end to count as clean.
type chatStream struct {
	stream   *openai.ChatCompletionStream
	finished bool
}

func (s *chatStream) Recv() (Delta, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		if !s.finished {
			return Delta{}, ErrTruncated
		}
		return Delta{}, io.EOF
	}
	if err != nil {
		return Delta{}, err
	}
	if len(resp.Choices) == 0 {
		return Delta{}, nil
	}

	choice := resp.Choices[0]
	if choice.FinishReason != "" {
		s.finished = true
	}
	return Delta{
		Content:      choice.Delta.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
