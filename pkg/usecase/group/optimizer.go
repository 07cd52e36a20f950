package group

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/optimize.md
var optimizePromptRaw string

var optimizePromptTmpl = template.Must(template.New("optimize").Parse(optimizePromptRaw))

var optimizeSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"optimizedPrompt": {
			Type:        "string",
			Description: "The refined, optimized additional-instructions prompt for the custom persona. No preamble.",
		},
	},
	Required: []string{"optimizedPrompt"},
}

// ErrIdeaTooShort rejects persona ideas with too little substance to
// refine into instructions.
var ErrIdeaTooShort = goerr.New("persona idea is too short to optimize")

const minIdeaLength = 10

// Optimizer refines a rough persona idea into polished additional
// instructions for an assistant. One backend call, no retries.
type Optimizer struct {
	gen gateway.Generator
}

func NewOptimizer(gen gateway.Generator) *Optimizer {
	return &Optimizer{gen: gen}
}

// Optimize returns instruction text suitable for
// Persona.AdditionalInstructions, built from the user's idea.
func (o *Optimizer) Optimize(ctx context.Context, idea string) (string, error) {
	if len(strings.TrimSpace(idea)) < minIdeaLength {
		return "", goerr.Wrap(ErrIdeaTooShort, "provide a more detailed idea", goerr.V("idea", idea))
	}

	var buf bytes.Buffer
	if err := optimizePromptTmpl.Execute(&buf, map[string]any{
		"Idea": idea,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render optimize prompt")
	}

	var out struct {
		OptimizedPrompt string `json:"optimizedPrompt"`
	}
	if err := o.gen.Generate(ctx, buf.String(), optimizeSchema, &out); err != nil {
		return "", goerr.Wrap(err, "failed to optimize persona prompt")
	}

	optimized := strings.TrimSpace(out.OptimizedPrompt)
	if optimized == "" {
		return "", goerr.New("backend returned empty optimized prompt")
	}
	return optimized, nil
}
