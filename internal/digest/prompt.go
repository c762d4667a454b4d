package digest

import (
	"fmt"
	"log/slog"
	"strings"
)

// LLM prompt templates — data only, no logic.

// newsletterSystemPrompt sets the editorial persona for digest generation.
const newsletterSystemPrompt = `You are an expert tech newsletter editor. Your goal is to synthesize raw video transcripts into a concise, high-value weekly digest.`

// newsletterPrompt produces the Markdown digest body.
// Args: context block of labeled transcripts.
const newsletterPrompt = `Here are the transcripts from the most recent videos.

Please write a Newsletter Digest in Markdown format.

**Strict Formatting Rules:**
1. Do NOT include a main headline or title at the top.
2. Do NOT include an Executive Summary or Intro.
3. Start directly with the list of videos.
4. Do NOT include a "TL;DR" line for the videos.
5. Do NOT include any concluding remarks, "If you want...", or offers for further instructions at the end.

**Structure for each video:**
### Title: <Original Video Title>
Link: [Watch on YouTube](<Video URL>)
Key Takeaways:

- <Bullet 1: Specific, actionable detail>
- <Bullet 2: Specific, actionable detail>
... (Provide between 2 and 5 bullet points. Use fewer for short/simple videos, and more for dense/complex technical content.)

**(IMPORTANT: You must leave a blank line between 'Key Takeaways:' and the first bullet point so the list renders correctly.)**
---

Data:
%s`

// buildContextBlock formats OK records for the single generation call.
// Transcripts longer than maxChars runes are capped; every truncation is
// logged and counted so it is never silent.
func buildContextBlock(records []TranscriptRecord, maxChars int) (string, int) {
	var sb strings.Builder
	truncated := 0
	for i, r := range records {
		text := r.Text()
		capped := TruncateRunes(text, maxChars, "")
		if len(capped) < len(text) {
			truncated++
			slog.Warn("transcript truncated for prompt",
				slog.String("id", r.Video.ID),
				slog.Int("max_chars", maxChars))
		}
		fmt.Fprintf(&sb, "--- VIDEO %d ---\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", r.Video.Title)
		fmt.Fprintf(&sb, "URL: %s\n", r.Video.URL)
		fmt.Fprintf(&sb, "Transcript: %s\n\n", capped)
	}
	return sb.String(), truncated
}
