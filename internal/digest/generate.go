package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// DefaultSubject is the newsletter subject line.
const DefaultSubject = "YT DIGEST"

// Completer is the minimal text-generation surface the generator needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// llmCompleter adapts *llm.Client (variadic options) to Completer.
type llmCompleter struct {
	client *llm.Client
}

func (c llmCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.client.Complete(ctx, system, prompt)
}

// NewLLMCompleter wraps a go-kit llm client for use by the Generator.
func NewLLMCompleter(client *llm.Client) Completer {
	return llmCompleter{client: client}
}

// Generator turns a transcript record sequence into a newsletter digest
// with a single model call per run, so the model can synthesize across
// videos.
type Generator struct {
	LLM                Completer
	Model              string // for error reporting; the client is already bound to it
	MaxTranscriptChars int
}

// Generate filters records to usable transcripts and produces the digest.
// Returns ErrNoContent (before any model call) when nothing is usable;
// returns *GenerationError when the model errors or yields empty output.
func (g *Generator) Generate(ctx context.Context, records []TranscriptRecord) (Digest, error) {
	usable := make([]TranscriptRecord, 0, len(records))
	for _, r := range records {
		if r.Status == StatusOK && len(r.Segments) > 0 {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return Digest{}, ErrNoContent
	}

	contextBlock, truncated := buildContextBlock(usable, g.MaxTranscriptChars)
	prompt := fmt.Sprintf(newsletterPrompt, contextBlock)

	slog.Info("requesting digest",
		slog.String("model", g.Model),
		slog.Int("videos", len(usable)),
		slog.Int("truncated", truncated))

	raw, err := g.LLM.Complete(ctx, newsletterSystemPrompt, prompt)
	if err != nil {
		return Digest{}, &GenerationError{Model: g.Model, Err: err}
	}

	body := strings.TrimSpace(stripFences(raw))
	if body == "" {
		return Digest{}, &GenerationError{Model: g.Model, Err: errors.New("model returned empty content")}
	}

	return Digest{Subject: DefaultSubject, BodyMarkdown: body}, nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
