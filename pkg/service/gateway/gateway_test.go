package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

// mockGemini is a mock implementation of adapter.Gemini for testing
type mockGemini struct {
	generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	calls        int
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, contents, config)
	}
	return nil, errors.New("not implemented")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

var testSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"verdict": {Type: "string", Enum: []any{"yes", "no"}},
		"count":   {Type: "integer"},
		"tags": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
	},
	Required: []string{"verdict"},
}

func TestGenerate(t *testing.T) {
	var captured *genai.GenerateContentConfig
	mock := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			captured = config
			return textResponse(`{"verdict": "yes", "count": 3, "tags": ["a", "b"]}`), nil
		},
	}

	gw := gateway.New(mock)

	var out struct {
		Verdict string   `json:"verdict"`
		Count   int      `json:"count"`
		Tags    []string `json:"tags"`
	}
	gt.NoError(t, gw.Generate(context.Background(), "decide", testSchema, &out))

	gt.V(t, out.Verdict).Equal("yes")
	gt.V(t, out.Count).Equal(3)
	gt.A(t, out.Tags).Length(2)

	// The backend call must request schema-constrained JSON
	gt.V(t, captured.ResponseMIMEType).Equal("application/json")
	gt.V(t, captured.ResponseSchema.Type).Equal(genai.TypeObject)
	gt.A(t, captured.ResponseSchema.Required).Length(1)
	gt.V(t, captured.ResponseSchema.Required[0]).Equal("verdict")

	verdict := captured.ResponseSchema.Properties["verdict"]
	gt.V(t, verdict.Type).Equal(genai.TypeString)
	gt.A(t, verdict.Enum).Length(2)
	gt.V(t, verdict.Enum[0]).Equal("yes")

	tags := captured.ResponseSchema.Properties["tags"]
	gt.V(t, tags.Type).Equal(genai.TypeArray)
	gt.V(t, tags.Items.Type).Equal(genai.TypeString)

	// Chat replies must not spend tokens on thinking
	gt.V(t, *captured.ThinkingConfig.ThinkingBudget).Equal(int32(0))
}

func TestGenerateEmptyResponse(t *testing.T) {
	mock := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}

	gw := gateway.New(mock)

	var out struct{}
	gt.Error(t, gw.Generate(context.Background(), "decide", testSchema, &out))
}

func TestGenerateMalformedJSON(t *testing.T) {
	mock := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("I would rather answer in prose"), nil
		},
	}

	gw := gateway.New(mock)

	var out struct{}
	gt.Error(t, gw.Generate(context.Background(), "decide", testSchema, &out))
}

func TestGenerateBackendError(t *testing.T) {
	mock := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("rate limit exceeded")
		},
	}

	gw := gateway.New(mock)

	var out struct{}
	err := gw.Generate(context.Background(), "decide", testSchema, &out)
	gt.Error(t, err)
	gt.V(t, mock.calls).Equal(1)
}
