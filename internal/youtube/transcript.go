package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"yt-digest/internal/digest"
)

// Transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption tracks (works from any IP)
// Fallback: ANDROID Innertube /player → captionTracks (works from non-blocked IPs)

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// captionList is the outcome of listing a video's caption tracks.
type captionList struct {
	tracks   []captionTrack
	disabled bool
	reason   string
}

// FetchTranscript retrieves the transcript for one candidate. Failures are
// encoded in the record status — this function never returns an error, so
// one bad video cannot abort the run:
//
//	DISABLED    — the video exposes no captions section (subtitles off)
//	UNAVAILABLE — captions exist as a concept but no transcript does
//	ERROR       — transport or parse failure, message recorded
//
// When the preferred language is absent the first available track is used
// and its language recorded.
func (c *Client) FetchTranscript(ctx context.Context, video digest.VideoCandidate, preferredLang string) digest.TranscriptRecord {
	rec := digest.TranscriptRecord{Video: video}

	list, err := c.listTracks(ctx, video.ID)
	if err != nil {
		rec.Status = digest.StatusError
		rec.Error = err.Error()
		return rec
	}
	if list.disabled {
		rec.Status = digest.StatusDisabled
		rec.Error = list.reason
		return rec
	}
	if len(list.tracks) == 0 {
		rec.Status = digest.StatusUnavailable
		return rec
	}

	track, ok := pickTrack(list.tracks, preferredLang)
	if !ok {
		rec.Status = digest.StatusError
		rec.Error = "all caption tracks require PoToken"
		return rec
	}
	if !langMatches(track.LanguageCode, preferredLang) {
		slog.Info("preferred language unavailable, falling back",
			slog.String("id", video.ID),
			slog.String("preferred", preferredLang),
			slog.String("using", track.LanguageCode))
	}

	segments, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		rec.Status = digest.StatusError
		rec.Error = err.Error()
		return rec
	}
	if len(segments) == 0 {
		rec.Status = digest.StatusUnavailable
		return rec
	}

	rec.Status = digest.StatusOK
	rec.Language = track.LanguageCode
	rec.Segments = segments
	return rec
}

// listTracks lists caption tracks, watch-page scrape first, /player second.
func (c *Client) listTracks(ctx context.Context, videoID string) (captionList, error) {
	list, err := c.listTracksViaWatchPage(ctx, videoID)
	if err == nil {
		return list, nil
	}
	slog.Warn("youtube: watch page scrape failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))
	return c.listTracksViaPlayer(ctx, videoID)
}

// listTracksViaWatchPage scrapes ytInitialPlayerResponse from the watch page HTML.
func (c *Client) listTracksViaWatchPage(ctx context.Context, videoID string) (captionList, error) {
	watchURL := c.watchURLBase + "?v=" + videoID

	resp, err := digest.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.http.Do(req)
	})
	if err != nil {
		return captionList{}, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return captionList{}, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return captionList{}, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return captionList{}, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return captionList{}, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return captionsFromPlayer(playerResp), nil
}

// listTracksViaPlayer uses the ANDROID Innertube /player endpoint.
func (c *Client) listTracksViaPlayer(ctx context.Context, videoID string) (captionList, error) {
	body, err := c.postPlayer(ctx, videoID)
	if err != nil {
		return captionList{}, err
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(body, &playerResp); err != nil {
		return captionList{}, fmt.Errorf("decode player: %w", err)
	}
	return captionsFromPlayer(playerResp), nil
}

// captionsFromPlayer maps a player response onto the track-list outcome.
// A missing captions section means subtitles are off for the video.
func captionsFromPlayer(resp innertubePlayerResp) captionList {
	if resp.Captions == nil {
		reason := "transcripts are disabled for this video"
		if resp.PlayabilityStatus != nil && resp.PlayabilityStatus.Reason != "" {
			reason = resp.PlayabilityStatus.Reason
		}
		return captionList{disabled: true, reason: reason}
	}
	return captionList{tracks: resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks}
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// langMatches treats regional variants as a match: "en" covers "en-US".
func langMatches(trackLang, preferred string) bool {
	if preferred == "" {
		return true
	}
	return trackLang == preferred ||
		strings.HasPrefix(trackLang, preferred+"-") ||
		strings.HasPrefix(preferred, trackLang+"-")
}

// pickTrack selects the best usable caption track for the preferred language:
// manual track in the preferred language, then auto-generated in the
// preferred language, then the first available track. Reports false when
// every track requires a PoToken.
func pickTrack(tracks []captionTrack, preferred string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, t := range usable {
		if langMatches(t.LanguageCode, preferred) && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range usable {
		if langMatches(t.LanguageCode, preferred) {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches a timedtext caption URL and parses it into
// timestamped segments.
func (c *Client) fetchTimedText(ctx context.Context, baseURL string) ([]digest.TranscriptSegment, error) {
	resp, err := digest.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText converts timedtext XML into clean segments, dropping
// lines that are empty after tag stripping.
func parseTimedText(body []byte) ([]digest.TranscriptSegment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	segments := make([]digest.TranscriptSegment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := digest.CleanHTML(line.Text)
		if text == "" {
			continue
		}
		segments = append(segments, digest.TranscriptSegment{
			Text:     text,
			Start:    line.Start,
			Duration: line.Dur,
		})
	}
	return segments, nil
}
