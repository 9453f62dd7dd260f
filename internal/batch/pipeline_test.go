package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/config"
	"github.com/textmill/textmill/internal/logger"
	"github.com/textmill/textmill/internal/masking"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	engine, err := masking.New(config.MaskingConfig{
		Enabled:   true,
		Detectors: []string{"all"},
		MaskChar:  "*",
	}, &logger.Logger{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("Failed to create masking engine: %v", err)
	}
	return NewPipeline(engine, nil, DefaultConfig(), zap.NewNop())
}

func TestDetectFileFormat(t *testing.T) {
	cases := map[string]FileFormat{
		"data.csv":     FormatCSV,
		"data.parquet": FormatParquet,
		"data.jsonl":   FormatJSONL,
		"data.json":    FormatJSONL,
		"data.txt":     FormatCSV,
	}
	for name, want := range cases {
		if got := DetectFileFormat(name); got != want {
			t.Errorf("DetectFileFormat(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestProcessCSV(t *testing.T) {
	pipeline := newTestPipeline(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")

	content := "text,source\nemail jane.doe@example.com,unit\nhello world,unit\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	result, err := pipeline.ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if result.TotalRecords != 2 {
		t.Errorf("TotalRecords = %d, want 2", result.TotalRecords)
	}
	if result.MaskedRecords != 1 {
		t.Errorf("MaskedRecords = %d, want 1", result.MaskedRecords)
	}
	if result.FindingsByType["email"] != 1 {
		t.Errorf("Email findings = %d, want 1", result.FindingsByType["email"])
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	text := string(got)
	if strings.Contains(text, "jane.doe@example.com") {
		t.Errorf("Output still contains the email address:\n%s", text)
	}
	if !strings.Contains(text, "j******e@e*****e.com") {
		t.Errorf("Output missing masked email:\n%s", text)
	}
	if !strings.Contains(text, `"hello world","unit"`) {
		t.Errorf("Clean row mangled:\n%s", text)
	}
}

func TestProcessCSVSkipsInvalidRows(t *testing.T) {
	pipeline := newTestPipeline(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")

	content := "text,source\nvalid row,a\n,b\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	result, err := pipeline.ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 1 {
		t.Errorf("TotalRecords = %d, want 1", result.TotalRecords)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
}

func TestProcessJSONL(t *testing.T) {
	pipeline := newTestPipeline(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	output := filepath.Join(dir, "out.jsonl")

	content := `{"text":"call (555) 123-4567","source":"crm"}` + "\n" +
		`{"text":"nothing here","source":"crm"}` + "\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	result, err := pipeline.ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 2 {
		t.Errorf("TotalRecords = %d, want 2", result.TotalRecords)
	}
	if result.FindingsByType["phone"] != 1 {
		t.Errorf("Phone findings = %d, want 1", result.FindingsByType["phone"])
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 output lines, got %d", len(lines))
	}

	var first Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Failed to decode output line: %v", err)
	}
	if first.Text != "call (***) ***-4567" {
		t.Errorf("Masked text = %q", first.Text)
	}
	if first.Source != "crm" {
		t.Errorf("Source column changed: %q", first.Source)
	}
}

func TestProcessFileCancelled(t *testing.T) {
	pipeline := newTestPipeline(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")

	if err := os.WriteFile(input, []byte("text\nrow one\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pipeline.ProcessFile(ctx, input, output); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
