// Package digest implements the newsletter pipeline: transcript records,
// digest generation, persistence, and email delivery.
package digest

import (
	"errors"
	"fmt"
	"strings"
)

// VideoCandidate is a video returned by search, not yet confirmed to have
// a usable transcript.
type VideoCandidate struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// TranscriptSegment is a timestamped fragment of spoken text.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptStatus is the per-video fetch outcome.
type TranscriptStatus string

const (
	StatusOK          TranscriptStatus = "ok"
	StatusUnavailable TranscriptStatus = "unavailable"
	StatusDisabled    TranscriptStatus = "disabled"
	StatusError       TranscriptStatus = "error"
)

// TranscriptRecord is the fetch result for one candidate. Records with
// StatusOK carry a non-empty segment list; all other statuses carry none.
type TranscriptRecord struct {
	Video    VideoCandidate      `json:"video"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
	Status   TranscriptStatus    `json:"status"`
	Error    string              `json:"error,omitempty"`
}

// Text joins all segment texts into a single space-separated string.
func (r TranscriptRecord) Text() string {
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Digest is the generated newsletter document.
type Digest struct {
	Subject      string `json:"subject"`
	BodyMarkdown string `json:"body_markdown"`
}

// EmailPayload is the email-ready form of a digest for one send call.
type EmailPayload struct {
	Subject    string
	HTMLBody   string
	TextBody   string
	Recipients []string
}

// DeliveryStatus is the outcome of a dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliverySkipped DeliveryStatus = "skipped"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryResult reports what happened to the digest email. Detail carries
// per-recipient failure lines when Status is DeliveryFailed.
type DeliveryResult struct {
	Status DeliveryStatus `json:"status"`
	Detail string         `json:"detail"`
}

// ErrNoContent is returned by the generator when no record has usable
// transcript content. It is a clean empty run, not a failure.
var ErrNoContent = errors.New("no transcripts with content available")

// SearchError is fatal: nothing useful can be produced downstream.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// GenerationError is fatal: the model call failed or returned nothing.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate digest (%s): %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
