package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Generator is the structured-output contract of the generation backend:
// a fully rendered prompt plus an output schema yields a decoded value or
// an error. Callers must treat an error as "no result" for that attempt;
// the gateway itself never retries.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error
}

// Gateway wraps one Gemini client with schema-validated JSON output
type Gateway struct {
	gemini  adapter.Gemini
	timeout time.Duration
}

type Option func(*Gateway)

// WithTimeout bounds one backend call. A non-response degrades to an
// error instead of stalling the turn.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

func New(gemini adapter.Gemini, opts ...Option) *Gateway {
	g := &Gateway{
		gemini:  gemini,
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Gateway) Generate(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	respSchema, err := convertSchema(schema)
	if err != nil {
		return goerr.Wrap(err, "failed to convert output schema")
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   respSchema,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return goerr.Wrap(err, "failed to generate content")
	}

	text := responseText(resp)
	if text == "" {
		return goerr.New("empty response from backend")
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return goerr.Wrap(err, "response does not conform to schema", goerr.V("response", text))
	}

	return nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
