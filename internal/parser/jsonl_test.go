package parser

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSession = `
{"timestamp":"2026-02-01T09:00:00Z","type":"turn_context","payload":{"model":"gpt-5.1-codex"}}
{"timestamp":"2026-02-01T09:01:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":100,"cached_input_tokens":20,"output_tokens":50,"reasoning_output_tokens":10,"total_tokens":160}}}}
{"timestamp":"2026-02-01T09:02:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":300,"cached_input_tokens":120,"output_tokens":90,"reasoning_output_tokens":15,"total_tokens":405}}}}
not json at all
{"timestamp":"2026-02-01T09:03:00Z","type":"event_msg","payload":{"type":"agent_message"}}
{"timestamp":"2026-02-01T09:04:00Z","type":"turn_context","payload":{"model_name":"gpt-5-mini (fast)"}}
{"timestamp":"2026-02-01T09:05:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":50,"cached_input_tokens":0,"output_tokens":10,"reasoning_output_tokens":0,"total_tokens":60}}}}
`

func writeSession(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollout-2026-02-01.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	path := writeSession(t, sampleSession)

	records, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	// First line yields its full counters as the delta.
	if records[0].Model != "gpt-5.1-codex" {
		t.Errorf("record 0 model = %q", records[0].Model)
	}
	if records[0].Tokens.TotalTokens != 160 || records[0].Tokens.InputTokens != 100 {
		t.Errorf("record 0 tokens = %+v", records[0].Tokens)
	}

	// Second line is cumulative; only the difference counts.
	if records[1].Tokens.TotalTokens != 245 || records[1].Tokens.CachedInputTokens != 100 {
		t.Errorf("record 1 tokens = %+v", records[1].Tokens)
	}

	// Counter reset after the model switch clamps at zero, and the
	// parenthetical in the model name is stripped.
	if records[2].Model != "gpt-5-mini" {
		t.Errorf("record 2 model = %q", records[2].Model)
	}
	if records[2].Tokens.InputTokens != 0 || records[2].Tokens.OutputTokens != 0 {
		t.Errorf("record 2 tokens should clamp to zero, got %+v", records[2].Tokens)
	}

	for _, rec := range records {
		if rec.SessionID != path {
			t.Errorf("session id = %q, want file path", rec.SessionID)
		}
	}
}

func TestParseFileNoModelContext(t *testing.T) {
	path := writeSession(t, `{"timestamp":"2026-02-01T09:01:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":10,"total_tokens":10}}}}`)

	records, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Model != "unknown" {
		t.Errorf("model = %q, want unknown", records[0].Model)
	}
}

func TestFindSessionFilesMissingDir(t *testing.T) {
	files, err := FindSessionFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("FindSessionFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestFindSessionFiles(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, "sessions", "2026", "02", "01")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.jsonl", "b.jsonl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := FindSessionFiles(home)
	if err != nil {
		t.Fatalf("FindSessionFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("got %d files, want 2", len(files))
	}
}
