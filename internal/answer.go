package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LanguageModel completes a single prompt with no conversation memory
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator answers questions about content with a hosted model. Every
// question is sent on its own; earlier exchanges are never included.
type AnswerGenerator struct {
	model   LanguageModel
	prompts *PromptManager
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnswerGenerator creates an Answerer. A zero timeout means no limit beyond ctx.
func NewAnswerGenerator(model LanguageModel, prompts *PromptManager, timeout time.Duration, logger *slog.Logger) *AnswerGenerator {
	if prompts == nil {
		prompts = NewPromptManager("", "")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerGenerator{
		model:   model,
		prompts: prompts,
		timeout: timeout,
		logger:  logger,
	}
}

// SetPromptManager swaps the prompt template source
func (g *AnswerGenerator) SetPromptManager(pm *PromptManager) {
	g.prompts = pm
}

// Answer implements Answerer. Failures are returned as the answer text so they
// land in the chat log instead of breaking the session.
func (g *AnswerGenerator) Answer(ctx context.Context, content, question string) string {
	answer, err := g.answer(ctx, content, question)
	if err != nil {
		g.logger.Error("answering question failed", slog.Any("error", err))
		return fmt.Sprintf("Error processing query: %v", err)
	}
	return answer
}

func (g *AnswerGenerator) answer(ctx context.Context, content, question string) (string, error) {
	prompt, err := g.prompts.CreatePrompt(content, question)
	if err != nil {
		return "", fmt.Errorf("creating prompt: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.model.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	g.logger.Debug("model answered", slog.Duration("took", time.Since(start)), slog.Int("chars", len(raw)))

	return strings.TrimSpace(raw), nil
}
