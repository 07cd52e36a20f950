package conversation

import (
	"context"
	"strings"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/usecase/responder"
	"github.com/m-mizutani/banter/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// Post persists a human message and runs the response cycle for it. A
// failed persistence write is surfaced to the caller: the user initiated
// this action and must see the failure.
func (uc *UseCase) Post(ctx context.Context, groupID model.GroupID, text string, replyTo model.MessageID) (*model.Message, error) {
	msg := &model.Message{
		Type:    model.MessageTypeUser,
		Text:    text,
		Author:  model.AuthorOf(uc.user),
		ReplyTo: replyTo,
	}

	saved, err := uc.repo.AddMessage(ctx, groupID, msg)
	if err != nil {
		return nil, goerr.Wrap(err, "message could not be sent")
	}
	uc.emitter.MessagePosted(saved)

	uc.processTurn(ctx, groupID, saved, 0)
	return saved, nil
}

// processTurn runs one selection round for a trigger message and recurses
// on each emitted AI reply. depth counts bot-triggered cycles: 0 is the
// response to a human message, and past maxDepth the chain stops no
// matter what the selection engine would decide.
func (uc *UseCase) processTurn(ctx context.Context, groupID model.GroupID, trigger *model.Message, depth int) {
	if depth > uc.maxDepth {
		return
	}
	if trigger.Type == model.MessageTypeSystem || trigger.Author == nil {
		return
	}

	logger := logging.From(ctx)

	// Roster snapshot: assistants added mid-turn stay out of this round
	roster, err := uc.repo.GetRoster(ctx, groupID)
	if err != nil {
		logger.Warn("failed to load roster, skipping turn", "group", groupID, "error", err)
		return
	}
	assistants := roster.Assistants()
	if len(assistants) == 0 {
		return
	}

	history, err := uc.repo.ListMessages(ctx, groupID, uc.historyWindow)
	if err != nil {
		logger.Warn("failed to load history, skipping turn", "group", groupID, "error", err)
		return
	}

	// Fan out per-assistant memory retrieval; a failed retrieval only
	// costs that assistant its memories, not its turn
	candidates := make([]*responder.Candidate, len(assistants))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, a := range assistants {
		eg.Go(func() error {
			memories, err := uc.memory.RetrieveRelevant(egCtx, a, trigger.Text)
			if err != nil {
				logger.Warn("memory retrieval failed", "assistant", a.Name, "error", err)
			}
			candidates[i] = &responder.Candidate{Assistant: a, Memories: memories}
			return nil
		})
	}
	_ = eg.Wait()

	decisions, err := uc.engine.Select(ctx, &responder.Input{
		Trigger:    trigger,
		History:    history,
		Candidates: candidates,
	})
	if err != nil {
		logger.Warn("responder selection failed", "group", groupID, "error", err)
		return
	}

	// Replies go out strictly in decision order; the pacing delays are
	// sequential so jitter can never reorder them
	for _, decision := range decisions {
		assistant := roster.Assistant(decision.AssistantID)
		if assistant == nil {
			logger.Warn("decision names unknown assistant", "assistant", decision.AssistantID)
			continue
		}

		uc.sleep(ctx, uc.delay(uc.pacing.ThinkingMin, uc.pacing.ThinkingMax))
		uc.emitter.TypingStarted(assistant)
		uc.sleep(ctx, uc.delay(uc.pacing.TypingMin, uc.pacing.TypingMax))
		uc.emitter.TypingStopped(assistant)

		replyTo := decision.ReplyTo
		if replyTo == "" {
			replyTo = trigger.ID
		}

		reply := &model.Message{
			Type:    model.MessageTypeAI,
			Text:    decision.Reply,
			Author:  model.AuthorOf(assistant),
			ReplyTo: replyTo,
		}

		saved, err := uc.repo.AddMessage(ctx, groupID, reply)
		if err != nil {
			// Not user-initiated, so logging is the surface
			logger.Error("failed to save assistant reply", "assistant", assistant.Name, "error", err)
			continue
		}
		uc.emitter.MessagePosted(saved)

		uc.bg.Add(1)
		go func(a *model.Assistant) {
			defer uc.bg.Done()
			uc.summarizeTurn(ctx, groupID, a)
		}(assistant)

		uc.processTurn(ctx, groupID, saved, depth+1)
	}
}

// summarizeTurn extracts a memory item from the recent conversation slice
// from the speaking assistant's point of view and appends it to that
// assistant's bank. Failures end here; the conversation moves on.
func (uc *UseCase) summarizeTurn(ctx context.Context, groupID model.GroupID, assistant *model.Assistant) {
	logger := logging.From(ctx)

	recent, err := uc.repo.ListMessages(ctx, groupID, uc.summaryWindow)
	if err != nil {
		logger.Warn("failed to load messages for summarization", "assistant", assistant.Name, "error", err)
		return
	}

	transcript := Transcript(recent)
	if transcript == "" {
		return
	}

	memory, err := uc.memory.Summarize(ctx, transcript, assistant.Persona.Describe())
	if err != nil {
		logger.Warn("memory summarization failed", "assistant", assistant.Name, "error", err)
		return
	}
	if memory == "" {
		return
	}

	if err := uc.memory.Append(ctx, groupID, assistant.ID, memory); err != nil {
		logger.Warn("memory append failed", "assistant", assistant.Name, "error", err)
	}
}

// Transcript renders messages as plain "name: text" lines, skipping
// system messages and entries with a missing author
func Transcript(msgs []*model.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Type == model.MessageTypeSystem || m.Author == nil {
			continue
		}
		lines = append(lines, m.Author.Name+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}
