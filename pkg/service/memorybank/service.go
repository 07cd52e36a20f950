package memorybank

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/banter/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/summarize.md
var summarizePromptRaw string

//go:embed prompt/prune.md
var prunePromptRaw string

//go:embed prompt/retrieve.md
var retrievePromptRaw string

var (
	summarizePromptTmpl = template.Must(template.New("summarize").Parse(summarizePromptRaw))
	prunePromptTmpl     = template.Must(template.New("prune").Parse(prunePromptRaw))
	retrievePromptTmpl  = template.Must(template.New("retrieve").Parse(retrievePromptRaw))
)

var summarizeSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"newMemory": {
			Type:        "string",
			Description: "A new, dense, 1-2 sentence memory item summarizing the key points of the conversation. Empty string when nothing is worth remembering.",
		},
	},
	Required: []string{"newMemory"},
}

var pruneSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"prunedSummary": {
			Type:        "string",
			Description: "A single cohesive summary paragraph merging the provided memories, under 100 words.",
		},
	},
	Required: []string{"prunedSummary"},
}

var retrieveSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"relevantMemories": {
			Type:        "array",
			Description: "Memory items from the bank that are semantically relevant to the query",
			Items:       &jsonschema.Schema{Type: "string"},
		},
	},
	Required: []string{"relevantMemories"},
}

// Service owns the memory lifecycle of assistants: summarization-driven
// appends, LLM-judged retrieval, and threshold-triggered pruning. It is
// the only writer of memory banks during a turn.
type Service struct {
	repo       repository.Repository
	gen        gateway.Generator
	locks      *bankLocks
	threshold  int
	pruneCount int
}

type Option func(*Service)

// WithPruneLimits overrides the prune threshold and batch size
func WithPruneLimits(threshold, count int) Option {
	return func(s *Service) {
		s.threshold = threshold
		s.pruneCount = count
	}
}

func New(repo repository.Repository, gen gateway.Generator, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		gen:        gen,
		locks:      newBankLocks(),
		threshold:  model.MemoryPruneThreshold,
		pruneCount: model.MemoryPruneCount,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Append adds a memory item to the assistant's bank and prunes the bank
// when it grows past the threshold. Empty or whitespace-only content is
// a no-op: summarization legitimately produces "nothing to remember".
//
// The append is committed before prune eligibility is evaluated, and the
// whole sequence holds the group's roster lock, so a concurrent append,
// by any assistant of the group, can never be discarded by an in-flight
// write. A failed prune leaves the bank exactly as the append committed
// it.
func (s *Service) Append(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	roster, err := s.repo.GetRoster(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to get roster")
	}

	assistant := roster.Assistant(assistantID)
	if assistant == nil {
		return goerr.New("assistant not found", goerr.V("group", groupID), goerr.V("assistant", assistantID))
	}

	assistant.MemoryBank = append(assistant.MemoryBank, model.NewMemory(content))
	if err := s.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save memory bank")
	}

	if len(assistant.MemoryBank) <= s.threshold {
		return nil
	}

	// Prune operates on the post-append state
	oldest := assistant.MemoryBank[:s.pruneCount]
	rest := assistant.MemoryBank[s.pruneCount:]

	summary, err := s.prune(ctx, model.MemoryContents(oldest))
	if err != nil {
		// The bank stays over threshold until the next successful prune
		logging.From(ctx).Warn("memory prune failed, keeping bank unpruned",
			"assistant", assistant.Name, "size", len(assistant.MemoryBank), "error", err)
		return nil
	}
	if strings.TrimSpace(summary) == "" {
		return nil
	}

	compacted := &model.Memory{
		ID:        model.NewMemoryID(),
		Content:   summary,
		CreatedAt: time.Now(),
	}
	assistant.MemoryBank = append([]*model.Memory{compacted}, rest...)

	if err := s.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save pruned memory bank")
	}
	return nil
}

// RetrieveRelevant returns the subset of the assistant's memories that
// relate to the query. An empty bank short-circuits without a backend
// call. Relevance is the backend's judgment, best effort.
func (s *Service) RetrieveRelevant(ctx context.Context, assistant *model.Assistant, query string) ([]string, error) {
	if len(assistant.MemoryBank) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := retrievePromptTmpl.Execute(&buf, map[string]any{
		"Query":    query,
		"Memories": model.MemoryContents(assistant.MemoryBank),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render retrieve prompt")
	}

	var out struct {
		RelevantMemories []string `json:"relevantMemories"`
	}
	if err := s.gen.Generate(ctx, buf.String(), retrieveSchema, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve relevant memories")
	}

	return out.RelevantMemories, nil
}

// Summarize extracts one memory item from a conversation transcript as
// seen by an assistant with the given persona. An empty result means the
// conversation contained nothing worth remembering.
func (s *Service) Summarize(ctx context.Context, transcript, persona string) (string, error) {
	var buf bytes.Buffer
	if err := summarizePromptTmpl.Execute(&buf, map[string]any{
		"Persona":    persona,
		"Transcript": transcript,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render summarize prompt")
	}

	var out struct {
		NewMemory string `json:"newMemory"`
	}
	if err := s.gen.Generate(ctx, buf.String(), summarizeSchema, &out); err != nil {
		return "", goerr.Wrap(err, "failed to summarize conversation")
	}

	return strings.TrimSpace(out.NewMemory), nil
}

func (s *Service) prune(ctx context.Context, memories []string) (string, error) {
	var buf bytes.Buffer
	if err := prunePromptTmpl.Execute(&buf, map[string]any{
		"Memories": memories,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render prune prompt")
	}

	var out struct {
		PrunedSummary string `json:"prunedSummary"`
	}
	if err := s.gen.Generate(ctx, buf.String(), pruneSchema, &out); err != nil {
		return "", err
	}

	return out.PrunedSummary, nil
}

// AddMemory inserts a memory item directly. Manual edits overwrite the
// bank and never trigger pruning.
func (s *Service) AddMemory(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, content string) error {
	return s.editBank(ctx, groupID, assistantID, func(bank []*model.Memory) ([]*model.Memory, error) {
		return append(bank, model.NewMemory(content)), nil
	})
}

// UpdateMemory rewrites the content of an existing memory item
func (s *Service) UpdateMemory(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, memoryID model.MemoryID, content string) error {
	return s.editBank(ctx, groupID, assistantID, func(bank []*model.Memory) ([]*model.Memory, error) {
		for _, m := range bank {
			if m.ID == memoryID {
				m.Content = content
				return bank, nil
			}
		}
		return nil, goerr.New("memory not found", goerr.V("memory", memoryID))
	})
}

// DeleteMemory removes a memory item
func (s *Service) DeleteMemory(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, memoryID model.MemoryID) error {
	return s.editBank(ctx, groupID, assistantID, func(bank []*model.Memory) ([]*model.Memory, error) {
		for i, m := range bank {
			if m.ID == memoryID {
				return append(bank[:i], bank[i+1:]...), nil
			}
		}
		return nil, goerr.New("memory not found", goerr.V("memory", memoryID))
	})
}

func (s *Service) editBank(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, edit func([]*model.Memory) ([]*model.Memory, error)) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	roster, err := s.repo.GetRoster(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to get roster")
	}

	assistant := roster.Assistant(assistantID)
	if assistant == nil {
		return goerr.New("assistant not found", goerr.V("group", groupID), goerr.V("assistant", assistantID))
	}

	bank, err := edit(assistant.MemoryBank)
	if err != nil {
		return err
	}
	assistant.MemoryBank = bank

	if err := s.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save memory bank")
	}
	return nil
}
