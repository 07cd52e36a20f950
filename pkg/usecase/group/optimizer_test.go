package group_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/usecase/group"
	"github.com/m-mizutani/gt"
)

type mockGenerator struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	m.calls++
	m.prompt = prompt
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.response), out)
}

func TestOptimize(t *testing.T) {
	gen := &mockGenerator{
		response: `{"optimizedPrompt": "  You are a dry-witted database veteran. Answer tersely and always cite trade-offs.  "}`,
	}
	opt := group.NewOptimizer(gen)

	result, err := opt.Optimize(context.Background(), "a grumpy DBA who has seen it all")
	gt.NoError(t, err)
	gt.V(t, result).Equal("You are a dry-witted database veteran. Answer tersely and always cite trade-offs.")
	gt.V(t, gen.calls).Equal(1)

	// The user's idea must reach the prompt verbatim
	gt.S(t, gen.prompt).Contains("a grumpy DBA who has seen it all")
}

func TestOptimizeRejectsShortIdea(t *testing.T) {
	gen := &mockGenerator{response: `{"optimizedPrompt": "unused"}`}
	opt := group.NewOptimizer(gen)

	_, err := opt.Optimize(context.Background(), "grumpy")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, group.ErrIdeaTooShort))
	gt.V(t, gen.calls).Equal(0)
}

func TestOptimizeEmptyResult(t *testing.T) {
	gen := &mockGenerator{response: `{"optimizedPrompt": "   "}`}
	opt := group.NewOptimizer(gen)

	_, err := opt.Optimize(context.Background(), "a grumpy DBA who has seen it all")
	gt.Error(t, err)
}
