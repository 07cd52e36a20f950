package responder

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/banter/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

//go:embed prompt/decide.md
var decidePromptRaw string

var decidePromptTmpl = template.Must(template.New("decide").Parse(decidePromptRaw))

var decisionSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"shouldReply": {
			Type:        "boolean",
			Description: "Whether the assistant has decided to reply to the message",
		},
		"reply": {
			Type:        "string",
			Description: "The assistant's reply. Only present when shouldReply is true.",
		},
		"replyToId": {
			Type:        "string",
			Description: "ID of the history message this reply directly responds to. Omit when not a direct reply.",
		},
	},
	Required: []string{"shouldReply"},
}

// Candidate is one assistant under consideration for a trigger message,
// with its rendered persona and the memories retrieved for the query
type Candidate struct {
	Assistant *model.Assistant
	Memories  []string
}

// Input is one selection round
type Input struct {
	Trigger    *model.Message
	History    []*model.Message
	Candidates []*Candidate
}

// Decision is one assistant's resolved choice to reply. ReplyTo is empty
// unless the assistant picked a specific history message.
type Decision struct {
	AssistantID model.ParticipantID
	Reply       string
	ReplyTo     model.MessageID
}

// Engine decides which assistants reply to a trigger message and with
// what content. Each candidate's decision is an independent backend call;
// the calls fan out concurrently and failures degrade that one candidate
// to silence.
type Engine struct {
	source gateway.Source
}

func New(source gateway.Source) *Engine {
	return &Engine{source: source}
}

// Select evaluates all candidates for the trigger and returns the
// decisions of those that chose to reply, in candidate order. An empty
// candidate list returns immediately without touching the backend. The
// trigger's own author is never evaluated.
func (e *Engine) Select(ctx context.Context, input *Input) ([]*Decision, error) {
	if input.Trigger == nil || input.Trigger.Author == nil {
		return nil, goerr.New("trigger message has no author")
	}
	if len(input.Candidates) == 0 {
		return nil, nil
	}

	candidates := make([]*Candidate, 0, len(input.Candidates))
	for _, c := range input.Candidates {
		// An assistant never replies to its own message
		if c.Assistant.ID == input.Trigger.Author.ID {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]*Decision, len(candidates))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		eg.Go(func() error {
			decision, err := e.decide(egCtx, input, c)
			if err != nil {
				// One failed decision never aborts the others
				logging.From(ctx).Warn("assistant decision failed, treating as no reply",
					"assistant", c.Assistant.Name, "error", err)
				return nil
			}
			results[i] = decision
			return nil
		})
	}
	_ = eg.Wait()

	decisions := make([]*Decision, 0, len(results))
	for _, d := range results {
		if d != nil {
			decisions = append(decisions, d)
		}
	}
	return decisions, nil
}

type historyEntry struct {
	ID   model.MessageID
	Name string
	Text string
}

func (e *Engine) decide(ctx context.Context, input *Input, c *Candidate) (*Decision, error) {
	gen, err := e.source.Acquire(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acquire generation backend")
	}

	history := make([]historyEntry, 0, len(input.History))
	for _, m := range input.History {
		if m.Type == model.MessageTypeSystem || m.Author == nil {
			continue
		}
		history = append(history, historyEntry{ID: m.ID, Name: m.Author.Name, Text: m.Text})
	}

	var buf bytes.Buffer
	if err := decidePromptTmpl.Execute(&buf, map[string]any{
		"Name":       c.Assistant.Name,
		"Persona":    c.Assistant.Persona.Describe(),
		"Memories":   c.Memories,
		"History":    history,
		"AuthorName": input.Trigger.Author.Name,
		"Text":       input.Trigger.Text,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render decision prompt")
	}

	var out struct {
		ShouldReply bool   `json:"shouldReply"`
		Reply       string `json:"reply"`
		ReplyToID   string `json:"replyToId"`
	}
	if err := gen.Generate(ctx, buf.String(), decisionSchema, &out); err != nil {
		return nil, err
	}

	if !out.ShouldReply || strings.TrimSpace(out.Reply) == "" {
		return nil, nil
	}

	decision := &Decision{
		AssistantID: c.Assistant.ID,
		Reply:       strings.TrimSpace(out.Reply),
	}

	// Only accept a replyToId that names a real history message
	replyTo := model.MessageID(out.ReplyToID)
	for _, h := range history {
		if h.ID == replyTo {
			decision.ReplyTo = replyTo
			break
		}
	}
	if replyTo != "" && input.Trigger.ID == replyTo {
		decision.ReplyTo = replyTo
	}

	return decision, nil
}
