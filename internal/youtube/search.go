package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"yt-digest/internal/digest"
)

// Client talks to YouTube. All endpoints share one HTTP client and retry
// policy; the endpoint bases are fields so tests can point them at fakes.
type Client struct {
	http   *http.Client
	apiKey string
	retry  digest.RetryConfig

	dataAPIBase  string
	resultsURL   string
	watchURLBase string
	innertubeURL string
}

// NewClient builds a YouTube client. An empty apiKey selects the
// ytInitialData scraping route for search.
func NewClient(httpClient *http.Client, apiKey string) *Client {
	return &Client{
		http:         httpClient,
		apiKey:       apiKey,
		retry:        digest.DefaultRetryConfig,
		dataAPIBase:  defaultDataAPIBase,
		resultsURL:   defaultResultsURL,
		watchURLBase: defaultWatchURLBase,
		innertubeURL: defaultInnertubeURL,
	}
}

// --- YouTube Data API v3 types ---

type ytDataSearchResp struct {
	Items []ytDataItem `json:"items"`
}

type ytDataItem struct {
	ID      ytDataItemID      `json:"id"`
	Snippet ytDataItemSnippet `json:"snippet"`
}

type ytDataItemID struct {
	VideoID string `json:"videoId"`
}

type ytDataItemSnippet struct {
	Title string `json:"title"`
}

// --- ytInitialData scraping types ---

const ytInitialDataMarker = "var ytInitialData = "

type ytVideoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"title"`
}

// Search returns up to limit candidates for the query, in backend order.
// A result set smaller than limit is not an error. Unreachable backend or
// malformed payload is; the pipeline treats it as fatal.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]digest.VideoCandidate, error) {
	if limit <= 0 {
		limit = 5
	}
	if c.apiKey != "" {
		return c.searchDataAPI(ctx, query, limit)
	}
	return c.searchInitialData(ctx, query, limit)
}

// searchDataAPI searches via YouTube Data API v3, type=video only.
func (c *Client) searchDataAPI(ctx context.Context, query string, limit int) ([]digest.VideoCandidate, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("key", c.apiKey)

	apiURL := c.dataAPIBase + "/search?" + params.Encode()
	resp, err := digest.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("youtube data API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("youtube data API %d: %s", resp.StatusCode, string(body))
	}

	var result ytDataSearchResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube data API: %w", err)
	}

	videos := make([]digest.VideoCandidate, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue // non-video results carry no videoId
		}
		videos = append(videos, digest.VideoCandidate{
			ID:    item.ID.VideoID,
			Title: item.Snippet.Title,
			URL:   digest.WatchURL(item.ID.VideoID),
		})
		if len(videos) >= limit {
			break
		}
	}
	return videos, nil
}

// searchInitialData scrapes YouTube search results by parsing ytInitialData.
// The sp filter restricts the page to videos, which drops channels and
// playlists before parsing even starts.
func (c *Client) searchInitialData(ctx context.Context, query string, limit int) ([]digest.VideoCandidate, error) {
	searchURL := c.resultsURL + "?search_query=" + url.QueryEscape(query) + "&sp=" + ytSearchVideosFilter

	resp, err := digest.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read youtube search response: %w", err)
	}

	idx := bytes.Index(body, []byte(ytInitialDataMarker))
	if idx < 0 {
		return nil, fmt.Errorf("ytInitialData not found in YouTube search response")
	}
	jsonData := extractJSON(body[idx+len(ytInitialDataMarker):])
	if jsonData == nil {
		return nil, fmt.Errorf("failed to extract ytInitialData JSON")
	}
	return extractVideosFromInitialData(jsonData, limit), nil
}

// extractVideosFromInitialData recursively walks ytInitialData JSON for
// videoRenderer entries.
func extractVideosFromInitialData(data []byte, limit int) []digest.VideoCandidate {
	var results []digest.VideoCandidate
	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		if len(results) >= limit {
			return
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			if raw, ok := obj["videoRenderer"]; ok {
				var vr ytVideoRenderer
				if err := json.Unmarshal(raw, &vr); err == nil && vr.VideoID != "" {
					title := "Unknown Title"
					if len(vr.Title.Runs) > 0 {
						title = vr.Title.Runs[0].Text
					}
					results = append(results, digest.VideoCandidate{
						ID:    vr.VideoID,
						Title: title,
						URL:   digest.WatchURL(vr.VideoID),
					})
					return
				}
			}
			for _, child := range obj {
				if len(results) >= limit {
					return
				}
				walk(child)
			}
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil {
			for _, item := range arr {
				if len(results) >= limit {
					return
				}
				walk(item)
			}
		}
	}
	walk(data)
	return results
}
