package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Factory builds a Gemini client for one credential. The orchestration
// layer receives the factory as an injected dependency so backend clients
// are never global state and tests can swap in mocks.
type Factory func(ctx context.Context, apiKey string) (Gemini, error)

type GeminiClient struct {
	client *genai.Client
	model  string
}

type GeminiOption func(*GeminiClient)

func WithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.model = model
	}
}

// NewGemini creates a Gemini client on the Gemini API backend using the
// given API key. Each distinct key gets its own client.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client: client,
		model:  "gemini-2.0-flash",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// NewFactory returns a Factory applying the same options to every client
func NewFactory(opts ...GeminiOption) Factory {
	return func(ctx context.Context, apiKey string) (Gemini, error) {
		return NewGemini(ctx, apiKey, opts...)
	}
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}
	return resp, nil
}
