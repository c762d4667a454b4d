package digest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Subscription pairs one recipient with the search query their digest is
// built from. Loaded from the batch-mode subscriptions file.
type Subscription struct {
	Email string `json:"email"`
	Query string `json:"query"`
}

// LoadSubscriptions reads and validates the batch configuration file.
// Entries with missing or malformed fields are skipped with a warning;
// only a missing file or malformed JSON is an error. The caller decides
// what an empty result means.
func LoadSubscriptions(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}

	var raw []Subscription
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("subscriptions: invalid JSON in %s: %w", path, err)
	}

	valid := make([]Subscription, 0, len(raw))
	for i, entry := range raw {
		email := strings.TrimSpace(entry.Email)
		query := strings.TrimSpace(entry.Query)
		if email == "" || !strings.Contains(email, "@") {
			slog.Warn("subscriptions: skipping entry with invalid email", slog.Int("index", i))
			continue
		}
		if query == "" {
			slog.Warn("subscriptions: skipping entry with empty query", slog.Int("index", i))
			continue
		}
		valid = append(valid, Subscription{Email: email, Query: query})
	}

	slog.Info("subscriptions loaded", slog.String("path", path), slog.Int("valid", len(valid)), slog.Int("total", len(raw)))
	return valid, nil
}
