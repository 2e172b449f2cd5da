package usecase

import (
	"context"
	"fmt"
	"strings"

	"docport/internal/domain"
	"docport/internal/index"
	"docport/internal/logger"
	"docport/internal/port"
	"docport/internal/prompt"
)

// QueryUseCase answers questions from an index: embed the question, retrieve
// top-k passages, ground a generation call on them. History is bounded to
// MaxHistoryTurns exchanges; older turns are dropped before prompting.
type QueryUseCase struct {
	embedder        port.Embedder
	generator       port.Generator
	topK            int
	maxHistoryTurns int
	contextBudget   int
}

func NewQueryUseCase(embedder port.Embedder, generator port.Generator, topK, maxHistoryTurns, contextBudget int) *QueryUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &QueryUseCase{
		embedder:        embedder,
		generator:       generator,
		topK:            topK,
		maxHistoryTurns: maxHistoryTurns,
		contextBudget:   contextBudget,
	}
}

// Answer runs the retrieval-augmented chain. Follow-up questions are first
// rewritten against the conversation history so retrieval sees a standalone
// query; a failed rewrite falls back to the raw question. Generation errors
// surface verbatim, never a substitute answer.
func (u *QueryUseCase) Answer(ctx context.Context, ix *index.Index, question string, history []domain.Turn) (domain.Answer, error) {
	if ix == nil || ix.Meta.Count == 0 {
		return domain.Answer{}, fmt.Errorf("answer: %w", domain.ErrNoContext)
	}
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("answer: empty question")
	}

	history = prompt.BoundHistory(history, u.maxHistoryTurns)

	searchQuery := question
	if len(history) > 0 {
		rewritten, err := u.generator.GenerateWithSystem(ctx, prompt.ContextualizeSystem, prompt.ContextualizePrompt(history, question))
		switch {
		case ctx.Err() != nil:
			return domain.Answer{}, fmt.Errorf("contextualize question: %w", domain.ErrTimeout)
		case err != nil:
			logger.Warn("question rewrite failed, retrieving with the raw question: %v", err)
		case strings.TrimSpace(rewritten) != "":
			searchQuery = strings.TrimSpace(rewritten)
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{searchQuery})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := ix.Search(vectors[0], u.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return domain.Answer{}, fmt.Errorf("answer: %w", domain.ErrNoContext)
	}

	contextBlock, used := prompt.BuildContext(hits, u.contextBudget)
	logger.Debug("answering with %d of %d retrieved passages", len(used), len(hits))

	text, err := u.generator.GenerateWithSystem(ctx,
		fmt.Sprintf(prompt.ContextQASystem, contextBlock),
		prompt.QAPrompt(history, question))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	citations := make([]domain.Citation, len(used))
	for i, h := range used {
		citations[i] = domain.Citation{Ref: i + 1, Passage: h.Passage, Score: h.Score}
	}

	return domain.Answer{Text: strings.TrimSpace(text), Citations: citations}, nil
}
