// yt-digest — YouTube transcript newsletter pipeline.
//
// Searches YouTube for a keyword, fetches transcripts for the top results,
// asks an LLM to write a Markdown newsletter digest, persists the raw
// transcripts and the digest, and optionally emails the result via Resend.
//
// Single-run mode reads SEARCH_KEYWORD / DIGEST_RECIPIENTS from the
// environment; batch mode iterates a SUBSCRIPTIONS_FILE of
// {email, query} entries, one digest per entry.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"github.com/joho/godotenv"

	"yt-digest/internal/digest"
	"yt-digest/internal/youtube"
)

func main() {
	_ = godotenv.Load()
	cfg := digest.FromEnv()

	slog.Info("starting yt-digest",
		slog.String("model", cfg.LLMModel),
		slog.Int("limit", cfg.Limit),
		slog.String("language", cfg.PreferredLanguage),
		slog.Bool("email_enabled", cfg.ResendAPIKey != ""),
	)

	if cfg.LLMAPIKey == "" {
		slog.Error("LLM_API_KEY is required")
		os.Exit(1)
	}

	pipeline, cleanup, err := buildPipeline(cfg)
	if err != nil {
		slog.Error("init failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx := context.Background()
	code := 0
	if cfg.SubscriptionsFile != "" {
		code = runBatch(ctx, pipeline, cfg.SubscriptionsFile)
	} else {
		code = runOnce(ctx, pipeline, cfg.Query, cfg.Recipients)
	}
	cleanup()
	os.Exit(code)
}

// buildPipeline wires all components from the configuration.
func buildPipeline(cfg digest.Config) (*digest.Pipeline, func(), error) {
	httpClient := digest.NewHTTPClient(cfg.FetchTimeout)

	seenPath := cfg.SeenDBPath
	if seenPath == "" {
		seenPath = filepath.Join(cfg.OutputDir, "seen.db")
	}
	seen, err := digest.OpenSeenStore(seenPath)
	if err != nil {
		return nil, nil, err
	}

	llmClient := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithMaxTokens(cfg.LLMMaxTokens),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)

	var mailer digest.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = digest.NewResendMailer(cfg.ResendAPIKey)
	}

	yt := youtube.NewClient(httpClient, cfg.YouTubeAPIKey)
	p := &digest.Pipeline{
		Searcher: yt,
		Fetcher:  yt,
		Seen:     seen,
		Store:    digest.Store{Dir: cfg.OutputDir},
		Generator: &digest.Generator{
			LLM:                digest.NewLLMCompleter(llmClient),
			Model:              cfg.LLMModel,
			MaxTranscriptChars: cfg.MaxTranscriptChars,
		},
		Dispatcher: &digest.Dispatcher{
			Mailer: mailer,
			From:   cfg.FromEmail,
		},
		Limit:             cfg.Limit,
		PreferredLanguage: cfg.PreferredLanguage,
	}
	return p, func() { seen.Close() }, nil
}

// runOnce executes a single pipeline run and returns the exit code.
func runOnce(ctx context.Context, p *digest.Pipeline, query string, recipients []string) int {
	result, err := p.Run(ctx, query, recipients)
	if err != nil {
		reportFatal(err)
		return 1
	}
	reportResult(result)
	return 0
}

// runBatch runs the pipeline once per subscription entry. One entry's
// failure logs and continues; the exit code is non-zero only when no
// entry could be processed at all.
func runBatch(ctx context.Context, p *digest.Pipeline, path string) int {
	subs, err := digest.LoadSubscriptions(path)
	if err != nil {
		slog.Error("batch mode failed", slog.Any("err", err))
		return 1
	}
	if len(subs) == 0 {
		slog.Error("no valid subscription entries", slog.String("path", path))
		return 1
	}

	failed := 0
	for i, sub := range subs {
		slog.Info("processing subscription",
			slog.Int("n", i+1), slog.Int("of", len(subs)),
			slog.String("recipient", sub.Email), slog.String("query", sub.Query))
		result, err := p.Run(ctx, sub.Query, []string{sub.Email})
		if err != nil {
			slog.Error("subscription run failed, continuing",
				slog.String("recipient", sub.Email), slog.Any("err", err))
			failed++
			continue
		}
		reportResult(result)
	}
	if failed == len(subs) {
		return 1
	}
	return 0
}

// reportFatal logs a fatal run error with its taxonomy class.
func reportFatal(err error) {
	var searchErr *digest.SearchError
	var genErr *digest.GenerationError
	switch {
	case errors.As(err, &searchErr):
		slog.Error("search failed, aborting run", slog.Any("err", err))
	case errors.As(err, &genErr):
		slog.Error("digest generation failed, aborting run", slog.Any("err", err))
	default:
		slog.Error("run failed", slog.Any("err", err))
	}
}

// reportResult logs the outcome of a completed run.
func reportResult(r *digest.RunResult) {
	if r.NoContent {
		slog.Info("run complete: no usable transcripts",
			slog.String("query", r.Query),
			slog.Int("candidates", r.Candidates))
		return
	}
	slog.Info("run complete",
		slog.String("query", r.Query),
		slog.Int("candidates", r.Candidates),
		slog.Int("transcribed", r.Transcribed),
		slog.String("records", r.RecordsPath),
		slog.String("digest", r.DigestPath),
		slog.String("delivery", string(r.Delivery.Status)),
		slog.String("delivery_detail", r.Delivery.Detail),
	)
}
