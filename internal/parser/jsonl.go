// Package parser reads Codex CLI session logs. Each session is one
// JSONL file under ~/.codex/sessions; token counters in the log are
// cumulative, so the parser emits per-line deltas.
package parser

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cxusage/cxusage/internal/pricing"
	"github.com/cxusage/cxusage/internal/usage"
)

// rawLine covers the two line shapes we care about: turn_context lines
// that switch the active model, and event_msg/token_count lines that
// carry the cumulative usage counters.
type rawLine struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Payload   struct {
		Type      string `json:"type"`
		Model     string `json:"model"`
		ModelName string `json:"model_name"`
		ModelID   string `json:"model_id"`
		Info      struct {
			TotalTokenUsage counters `json:"total_token_usage"`
		} `json:"info"`
	} `json:"payload"`
}

type counters struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens"`
}

// delta returns the per-field difference against prev, clamped at zero
// so counter resets (new context windows) do not go negative.
func (c counters) delta(prev counters) pricing.Breakdown {
	return pricing.Breakdown{
		InputTokens:           clamp(c.InputTokens - prev.InputTokens),
		CachedInputTokens:     clamp(c.CachedInputTokens - prev.CachedInputTokens),
		OutputTokens:          clamp(c.OutputTokens - prev.OutputTokens),
		ReasoningOutputTokens: clamp(c.ReasoningOutputTokens - prev.ReasoningOutputTokens),
		TotalTokens:           clamp(c.TotalTokens - prev.TotalTokens),
	}
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// FindSessionFiles lists all session logs under the Codex home
// directory, which defaults to ~/.codex.
func FindSessionFiles(codexHome string) ([]string, error) {
	if codexHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		codexHome = filepath.Join(homeDir, ".codex")
	}

	sessionsDir := filepath.Join(codexHome, "sessions")
	var files []string

	err := filepath.Walk(sessionsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}

// ParseFile parses one session log into usage records. Malformed lines
// are skipped. The file path doubles as the session id.
func ParseFile(path string) ([]usage.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []usage.Record
	scanner := bufio.NewScanner(file)

	// Increase buffer size for large lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	currentModel := "unknown"
	var prev counters
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			// Skip malformed lines
			continue
		}

		switch raw.Type {
		case "turn_context":
			if m := firstNonEmpty(raw.Payload.Model, raw.Payload.ModelName, raw.Payload.ModelID); m != "" {
				currentModel = pricing.NormalizeModelName(m)
			}

		case "event_msg":
			if raw.Payload.Type != "token_count" {
				continue
			}
			timestamp, err := time.Parse(time.RFC3339, raw.Timestamp)
			if err != nil {
				continue
			}
			cur := raw.Payload.Info.TotalTokenUsage
			records = append(records, usage.Record{
				Timestamp: timestamp,
				Model:     currentModel,
				SessionID: path,
				Tokens:    cur.delta(prev),
			})
			prev = cur
		}
	}

	return records, scanner.Err()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseAllFiles parses every session log and concatenates the records.
// Files that fail to parse are skipped so one corrupt log cannot hide
// the rest.
func ParseAllFiles(codexHome string) ([]usage.Record, error) {
	files, err := FindSessionFiles(codexHome)
	if err != nil {
		return nil, err
	}

	var allRecords []usage.Record
	for _, file := range files {
		records, err := ParseFile(file)
		if err != nil {
			continue
		}
		allRecords = append(allRecords, records...)
	}

	return allRecords, nil
}
