package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists run artifacts under a single output directory:
// the raw transcript collection and the generated digest.
type Store struct {
	Dir string
}

const (
	recordsFileName = "transcripts.json"
	digestFileName  = "digest.md"
)

// SaveRecords writes the full record sequence as pretty-printed JSON,
// insertion order preserved. Returns the written path.
func (s Store) SaveRecords(records []TranscriptRecord) (string, error) {
	if err := os.MkdirAll(s.Dir, 0750); err != nil {
		return "", fmt.Errorf("store: mkdir %s: %w", s.Dir, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false) // keep emojis and foreign titles readable
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("store: encode records: %w", err)
	}
	path := filepath.Join(s.Dir, recordsFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("store: write %s: %w", path, err)
	}
	return path, nil
}

// LoadRecords reads a record sequence back. Write-then-load reproduces
// the same logical sequence field-for-field.
func (s Store) LoadRecords(path string) ([]TranscriptRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var records []TranscriptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return records, nil
}

// SaveDigest writes the generated Markdown. Returns the written path.
func (s Store) SaveDigest(d Digest) (string, error) {
	if err := os.MkdirAll(s.Dir, 0750); err != nil {
		return "", fmt.Errorf("store: mkdir %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, digestFileName)
	if err := os.WriteFile(path, []byte(d.BodyMarkdown), 0644); err != nil {
		return "", fmt.Errorf("store: write %s: %w", path, err)
	}
	return path, nil
}
