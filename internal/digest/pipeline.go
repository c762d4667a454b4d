package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// VideoSearcher is the video-search boundary.
type VideoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]VideoCandidate, error)
}

// TranscriptFetcher is the transcript boundary. Per-item failures are
// encoded in the returned record, never raised.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, video VideoCandidate, preferredLang string) TranscriptRecord
}

// Pipeline wires the components into the linear run:
// search → fetch → persist raw → generate → persist digest → deliver.
type Pipeline struct {
	Searcher   VideoSearcher
	Fetcher    TranscriptFetcher
	Seen       *SeenStore // nil disables the already-seen filter
	Store      Store
	Generator  *Generator
	Dispatcher *Dispatcher

	Limit             int
	PreferredLanguage string
}

// RunResult summarizes one pipeline run for the caller's report.
type RunResult struct {
	Query       string
	Candidates  int
	Transcribed int
	NoContent   bool
	RecordsPath string
	DigestPath  string
	Delivery    DeliveryResult
}

// Run executes one digest run. Fatal outcomes (*SearchError,
// *GenerationError, artifact write failures) return an error; per-item
// transcript failures and delivery failures are reported in the result.
// A run with nothing to digest returns a result with NoContent set.
func (p *Pipeline) Run(ctx context.Context, query string, recipients []string) (*RunResult, error) {
	result := &RunResult{Query: query}

	candidates, err := p.Searcher.Search(ctx, query, p.Limit)
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	slog.Info("search complete", slog.String("query", query), slog.Int("candidates", len(candidates)))

	if p.Seen != nil {
		fresh, err := p.Seen.FilterNew(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("filter seen videos: %w", err)
		}
		if dropped := len(candidates) - len(fresh); dropped > 0 {
			slog.Info("skipping already-digested videos", slog.Int("dropped", dropped))
		}
		candidates = fresh
	}
	result.Candidates = len(candidates)

	// Sequential fetch; output order matches candidate order. One failed
	// candidate never prevents processing of the rest.
	records := make([]TranscriptRecord, 0, len(candidates))
	for i, c := range candidates {
		slog.Info("fetching transcript",
			slog.Int("n", i+1), slog.Int("of", len(candidates)),
			slog.String("id", c.ID), slog.String("title", c.Title))
		rec := p.Fetcher.FetchTranscript(ctx, c, p.PreferredLanguage)
		switch rec.Status {
		case StatusOK:
			result.Transcribed++
			slog.Info("transcript ok", slog.String("id", c.ID), slog.String("language", rec.Language))
		default:
			slog.Warn("transcript unusable",
				slog.String("id", c.ID),
				slog.String("status", string(rec.Status)),
				slog.String("detail", rec.Error))
		}
		records = append(records, rec)
	}

	recordsPath, err := p.Store.SaveRecords(records)
	if err != nil {
		return nil, err
	}
	result.RecordsPath = recordsPath

	dg, err := p.Generator.Generate(ctx, records)
	if errors.Is(err, ErrNoContent) {
		slog.Warn("no usable transcripts, nothing to digest", slog.String("query", query))
		result.NoContent = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	digestPath, err := p.Store.SaveDigest(dg)
	if err != nil {
		return nil, err
	}
	result.DigestPath = digestPath

	if p.Seen != nil {
		if err := p.Seen.MarkAll(ctx, candidates); err != nil {
			// The digest already exists on disk; losing the seen marks
			// only risks a duplicate next run.
			slog.Warn("failed to record seen videos", slog.Any("err", err))
		}
	}

	// Artifacts are persisted by this point and are not rolled back on
	// delivery failure.
	result.Delivery = p.Dispatcher.Send(ctx, dg, recipients)
	return result, nil
}
