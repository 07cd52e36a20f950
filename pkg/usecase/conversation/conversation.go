package conversation

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/banter/pkg/usecase/responder"
)

// Selector decides which assistants reply to a trigger message
type Selector interface {
	Select(ctx context.Context, input *responder.Input) ([]*responder.Decision, error)
}

// MemoryStore is the memory pipeline the orchestrator feeds. It is the
// only path that mutates assistant memory banks during a turn.
type MemoryStore interface {
	RetrieveRelevant(ctx context.Context, assistant *model.Assistant, query string) ([]string, error)
	Summarize(ctx context.Context, transcript, persona string) (string, error)
	Append(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, content string) error
}

// Emitter receives presentation events. Typing flags are transient UI
// state and never persisted.
type Emitter interface {
	TypingStarted(assistant *model.Assistant)
	TypingStopped(assistant *model.Assistant)
	MessagePosted(msg *model.Message)
}

type nopEmitter struct{}

func (nopEmitter) TypingStarted(*model.Assistant) {}
func (nopEmitter) TypingStopped(*model.Assistant) {}
func (nopEmitter) MessagePosted(*model.Message)   {}

// Pacing configures the simulated thinking/typing latency before each
// reply. Zero ranges disable pacing entirely.
type Pacing struct {
	ThinkingMin time.Duration
	ThinkingMax time.Duration
	TypingMin   time.Duration
	TypingMax   time.Duration
}

// DefaultPacing mirrors a human-ish response rhythm
func DefaultPacing() Pacing {
	return Pacing{
		ThinkingMin: 500 * time.Millisecond,
		ThinkingMax: 1500 * time.Millisecond,
		TypingMin:   500 * time.Millisecond,
		TypingMax:   3 * time.Second,
	}
}

// UseCase drives the turn cycle of one or more conversations: intake a
// message, select responders, emit the replies in order with pacing, and
// feed each emitted AI reply into the memory pipeline plus a recursive,
// depth-bounded selection cycle.
type UseCase struct {
	repo    repository.Repository
	engine  Selector
	memory  MemoryStore
	emitter Emitter
	user    *model.User

	pacing        Pacing
	rng           *rand.Rand
	rngMu         sync.Mutex
	maxDepth      int
	historyWindow int
	summaryWindow int

	bg sync.WaitGroup
}

type Option func(*UseCase)

// WithEmitter sets the presentation sink
func WithEmitter(e Emitter) Option {
	return func(uc *UseCase) {
		uc.emitter = e
	}
}

// WithPacing overrides the reply latency simulation
func WithPacing(p Pacing) Option {
	return func(uc *UseCase) {
		uc.pacing = p
	}
}

// WithRand injects the jitter source
func WithRand(rng *rand.Rand) Option {
	return func(uc *UseCase) {
		uc.rng = rng
	}
}

// WithMaxDepth overrides the bot-to-bot recursion bound
func WithMaxDepth(depth int) Option {
	return func(uc *UseCase) {
		uc.maxDepth = depth
	}
}

// WithUser overrides the human participant identity
func WithUser(u *model.User) Option {
	return func(uc *UseCase) {
		uc.user = u
	}
}

func New(repo repository.Repository, engine Selector, memory MemoryStore, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:          repo,
		engine:        engine,
		memory:        memory,
		emitter:       nopEmitter{},
		user:          model.DefaultUser(),
		pacing:        DefaultPacing(),
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		maxDepth:      model.MaxReplyDepth,
		historyWindow: model.HistoryWindow,
		summaryWindow: model.SummaryWindow,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Wait blocks until outstanding background memory summarizations finish
func (uc *UseCase) Wait() {
	uc.bg.Wait()
}

func (uc *UseCase) delay(minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	uc.rngMu.Lock()
	defer uc.rngMu.Unlock()
	return minD + time.Duration(uc.rng.Int64N(int64(maxD-minD)))
}

func (uc *UseCase) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
