// ABOUTME: Tests for export functionality
// ABOUTME: Verifies YAML, JSON, and Markdown export formats
package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/persona/internal/models"
)

func seedExport(t *testing.T) *Storage {
	t.Helper()
	store := newTestStorage(t)
	commit(t, store,
		scalarDelta("d1", "c1", models.FieldOccupation, "nurse", 0.857, t0),
		setDelta("d2", "c1", models.FieldGoalsPrimary, nil, []string{"run a marathon", "sleep more"}, 0.7, t0),
	)
	insight := models.NewDefaultInsight("c1", "sess_1")
	insight.CreatedAt = t0.Add(time.Hour)
	if err := store.SaveInsight(context.Background(), models.StoredInsight{Record: insight}); err != nil {
		t.Fatalf("SaveInsight() error = %v", err)
	}
	return store
}

func TestExport(t *testing.T) {
	store := seedExport(t)

	data, err := store.Export(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if data.Version != ExportVersion {
		t.Errorf("Version = %v, want %v", data.Version, ExportVersion)
	}
	if data.Tool != "persona" {
		t.Errorf("Tool = %v, want persona", data.Tool)
	}
	if len(data.Deltas) != 2 || data.Deltas[0].ID != "d1" {
		t.Errorf("Deltas should be the full ledger oldest first, got %d", len(data.Deltas))
	}
	if len(data.Insights) != 1 {
		t.Errorf("Insights len = %d, want 1", len(data.Insights))
	}
	if len(data.Persona.Categories) != 2 {
		t.Fatalf("Categories len = %d, want 2", len(data.Persona.Categories))
	}
	if got := data.Persona.Categories[0].Fields[0].ConfidencePercent; got != 86 {
		t.Errorf("ConfidencePercent = %d, want 86", got)
	}
}

func TestWriteExportYAML(t *testing.T) {
	store := seedExport(t)
	data, err := store.Export(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteExport(&buf, data, "yaml"); err != nil {
		t.Fatalf("WriteExport(yaml) error = %v", err)
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if parsed["tool"] != "persona" {
		t.Errorf("tool = %v, want persona", parsed["tool"])
	}
	if !strings.Contains(buf.String(), "- run a marathon") {
		t.Errorf("set values should render as YAML sequences:\n%s", buf.String())
	}
}

func TestWriteExportJSON(t *testing.T) {
	store := seedExport(t)
	data, err := store.Export(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteExport(&buf, data, "json"); err != nil {
		t.Fatalf("WriteExport(json) error = %v", err)
	}

	var parsed struct {
		Deltas []struct {
			Field    string          `json:"field"`
			NewValue json.RawMessage `json:"new_value"`
		} `json:"deltas"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(parsed.Deltas) != 2 {
		t.Fatalf("deltas len = %d, want 2", len(parsed.Deltas))
	}
	if string(parsed.Deltas[0].NewValue) != `"nurse"` {
		t.Errorf("scalar new_value = %s, want \"nurse\"", parsed.Deltas[0].NewValue)
	}
	if !strings.HasPrefix(string(parsed.Deltas[1].NewValue), "[") {
		t.Errorf("set new_value = %s, want JSON array", parsed.Deltas[1].NewValue)
	}
}

func TestExportToFileMarkdown(t *testing.T) {
	store := seedExport(t)
	outputPath := filepath.Join(t.TempDir(), "out", "persona.md")

	if err := store.ExportToFile(context.Background(), "c1", outputPath, "markdown"); err != nil {
		t.Fatalf("ExportToFile() error = %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"# Persona Export - c1", "## demographics", "| demographics.occupation | nurse | 86% |", "## Sessions"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("markdown missing %q:\n%s", want, content)
		}
	}
}

func TestWriteExportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, &ExportData{}, "xml"); err == nil {
		t.Error("WriteExport(xml) should fail")
	}
}
