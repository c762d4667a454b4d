package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yt-digest/internal/digest"
)

// fastRetry keeps tests snappy: no retries, no waits.
var fastRetry = digest.RetryConfig{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}

func testClient(srv *httptest.Server, apiKey string) *Client {
	c := NewClient(srv.Client(), apiKey)
	c.retry = fastRetry
	c.dataAPIBase = srv.URL
	c.resultsURL = srv.URL + "/results"
	c.watchURLBase = srv.URL + "/watch"
	c.innertubeURL = srv.URL + "/youtubei/v1/player"
	return c
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"flat", `{"a":1}`, `{"a":1}`},
		{"nested", `{"a":{"b":2}}tail`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}"}x`, `{"a":"}"}`},
		{"escaped quote", `{"a":"\"}"}rest`, `{"a":"\"}"}`},
		{"not an object", `[1,2]`, ""},
		{"incomplete", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON([]byte(tt.in))
			if string(got) != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const sampleInitialData = `{
  "contents": [
    {"videoRenderer": {"videoId": "vid-aaa-0001", "title": {"runs": [{"text": "First Result"}]}}},
    {"channelRenderer": {"channelId": "chan-x"}},
    {"videoRenderer": {"videoId": "vid-bbb-0002", "title": {"runs": [{"text": "Second Result"}]}}},
    {"videoRenderer": {"videoId": "vid-ccc-0003", "title": {"runs": [{"text": "Third Result"}]}}}
  ]
}`

func TestExtractVideosFromInitialData(t *testing.T) {
	videos := extractVideosFromInitialData([]byte(sampleInitialData), 10)
	if len(videos) != 3 {
		t.Fatalf("got %d videos, want 3", len(videos))
	}
	if videos[0].ID != "vid-aaa-0001" || videos[0].Title != "First Result" {
		t.Errorf("first video wrong: %+v", videos[0])
	}
	if videos[1].ID != "vid-bbb-0002" || videos[2].ID != "vid-ccc-0003" {
		t.Errorf("result order not preserved: %+v", videos)
	}
	if videos[0].URL != digest.WatchURL("vid-aaa-0001") {
		t.Errorf("url = %q", videos[0].URL)
	}
}

func TestExtractVideosRespectsLimit(t *testing.T) {
	videos := extractVideosFromInitialData([]byte(sampleInitialData), 2)
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want limit of 2", len(videos))
	}
}

func TestSearchDataAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "video" {
			t.Errorf("missing type=video filter, query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [
			{"id": {"videoId": "vid-one-0001"}, "snippet": {"title": "One"}},
			{"id": {"channelId": "chan-y"}, "snippet": {"title": "A Channel"}},
			{"id": {"videoId": "vid-two-0002"}, "snippet": {"title": "Two"}}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv, "test-key")
	videos, err := c.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2 (channel filtered)", len(videos))
	}
	if videos[0].ID != "vid-one-0001" || videos[1].ID != "vid-two-0002" {
		t.Errorf("order not preserved: %+v", videos)
	}
}

func TestSearchDataAPIShortResultSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items": [{"id": {"videoId": "vid-one-0001"}, "snippet": {"title": "Only"}}]}`))
	}))
	defer srv.Close()

	videos, err := testClient(srv, "test-key").Search(context.Background(), "rare topic", 10)
	if err != nil {
		t.Fatalf("short result set must not error: %v", err)
	}
	if len(videos) != 1 {
		t.Errorf("got %d videos, want 1", len(videos))
	}
}

func TestSearchDataAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := testClient(srv, "test-key").Search(context.Background(), "golang", 5); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestSearchScrapeRoute(t *testing.T) {
	page := `<!DOCTYPE html><html><body><script>var ytInitialData = ` + sampleInitialData + `;</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	// No API key → scrape route.
	videos, err := testClient(srv, "").Search(context.Background(), "golang news", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].ID != "vid-aaa-0001" {
		t.Errorf("first video: %+v", videos[0])
	}
}

func TestSearchScrapeMalformedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>no initial data here</html>"))
	}))
	defer srv.Close()

	if _, err := testClient(srv, "").Search(context.Background(), "golang", 2); err == nil {
		t.Fatal("expected error for page without ytInitialData")
	}
}
