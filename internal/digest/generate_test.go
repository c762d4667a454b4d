package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeCompleter records prompts and plays back canned responses.
type fakeCompleter struct {
	response string
	err      error
	calls    int
	system   string
	prompt   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system = system
	f.prompt = prompt
	return f.response, f.err
}

func okRecord(id, title, text string) TranscriptRecord {
	return TranscriptRecord{
		Video:    VideoCandidate{ID: id, Title: title, URL: WatchURL(id)},
		Language: "en",
		Segments: []TranscriptSegment{{Text: text, Start: 0, Duration: 1}},
		Status:   StatusOK,
	}
}

func TestGenerateNoContent(t *testing.T) {
	llm := &fakeCompleter{response: "should never be used"}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	records := []TranscriptRecord{
		{Video: VideoCandidate{ID: "vid-dis-0001"}, Status: StatusDisabled},
		{Video: VideoCandidate{ID: "vid-dis-0002"}, Status: StatusDisabled},
	}
	_, err := g.Generate(context.Background(), records)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("model called %d times on empty content, want 0", llm.calls)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	llm := &fakeCompleter{}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	_, err := g.Generate(context.Background(), nil)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestGeneratePromptContainsAllVideos(t *testing.T) {
	llm := &fakeCompleter{response: "### Title: A\n\n- takeaway\n"}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	records := []TranscriptRecord{
		okRecord("vid-aaa-0001", "Go Generics Deep Dive", "generics are parametric polymorphism"),
		{Video: VideoCandidate{ID: "vid-bad-0001"}, Status: StatusError, Error: "boom"},
		okRecord("vid-bbb-0002", "Profiling in Production", "pprof shows allocation hotspots"),
	}

	d, err := g.Generate(context.Background(), records)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d.Subject != DefaultSubject {
		t.Errorf("subject = %q, want %q", d.Subject, DefaultSubject)
	}
	if llm.calls != 1 {
		t.Fatalf("model called %d times, want exactly 1 per run", llm.calls)
	}

	for _, want := range []string{
		"Go Generics Deep Dive",
		"Profiling in Production",
		WatchURL("vid-aaa-0001"),
		WatchURL("vid-bbb-0002"),
		"generics are parametric polymorphism",
	} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// The failed record must not leak into the prompt.
	if strings.Contains(llm.prompt, "vid-bad-0001") {
		t.Error("prompt contains failed-record video ID")
	}
	if llm.system == "" {
		t.Error("system prompt not set")
	}
}

func TestGenerateModelError(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("rate limited")}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	_, err := g.Generate(context.Background(), []TranscriptRecord{okRecord("vid-aaa-0001", "A", "text")})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	llm := &fakeCompleter{response: "   \n"}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	_, err := g.Generate(context.Background(), []TranscriptRecord{okRecord("vid-aaa-0001", "A", "text")})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError for empty completion, got %v", err)
	}
}

func TestGenerateStripsFences(t *testing.T) {
	llm := &fakeCompleter{response: "```markdown\n### Title: A\n\n- point\n```"}
	g := &Generator{LLM: llm, Model: "test-model", MaxTranscriptChars: 1000}

	d, err := g.Generate(context.Background(), []TranscriptRecord{okRecord("vid-aaa-0001", "A", "text")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(d.BodyMarkdown, "```") {
		t.Errorf("fences not stripped: %q", d.BodyMarkdown)
	}
	if !strings.HasPrefix(d.BodyMarkdown, "### Title: A") {
		t.Errorf("unexpected body: %q", d.BodyMarkdown)
	}
}

func TestBuildContextBlockTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	records := []TranscriptRecord{okRecord("vid-lng-0001", "Long", long)}

	block, truncated := buildContextBlock(records, 100)
	if truncated != 1 {
		t.Errorf("truncated = %d, want 1", truncated)
	}
	if strings.Contains(block, long) {
		t.Error("context block contains full untruncated transcript")
	}

	_, truncated = buildContextBlock(records, 10000)
	if truncated != 0 {
		t.Errorf("truncated = %d for generous cap, want 0", truncated)
	}
}
