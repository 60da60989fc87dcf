// ABOUTME: Export functionality for persona data
// ABOUTME: Supports YAML, JSON, and Markdown export formats
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/persona/internal/models"
)

// ExportVersion is bumped whenever the export document shape changes
const ExportVersion = "1.0"

// ExportData represents the complete exportable data for one client
type ExportData struct {
	Version    string                 `yaml:"version" json:"version"`
	ExportedAt string                 `yaml:"exported_at" json:"exported_at"`
	Tool       string                 `yaml:"tool" json:"tool"`
	Persona    models.SnapshotView    `yaml:"persona" json:"persona"`
	Deltas     []models.FieldDelta    `yaml:"deltas" json:"deltas"`
	Insights   []models.StoredInsight `yaml:"insights,omitempty" json:"insights,omitempty"`
}

// Export gathers a client's snapshot, full ledger (oldest first), and session insights
func (s *Storage) Export(ctx context.Context, clientID string) (*ExportData, error) {
	snap, err := s.GetSnapshot(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	deltas, err := s.ListAllDeltas(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deltas: %w", err)
	}

	insights, err := s.ListInsights(ctx, clientID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}

	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:       "persona",
		Persona:    snap.View(),
		Deltas:     deltas,
		Insights:   insights,
	}, nil
}

// WriteExport encodes export data as yaml, json, or markdown
func WriteExport(w io.Writer, data *ExportData, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case "markdown", "md":
		return writeMarkdown(w, data)
	default:
		return fmt.Errorf("unsupported export format %q (use yaml, json, or markdown)", format)
	}
}

// ExportToFile exports a client to outputPath, creating parent directories
func (s *Storage) ExportToFile(ctx context.Context, clientID, outputPath, format string) error {
	data, err := s.Export(ctx, clientID)
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return WriteExport(file, data, format)
}

func writeMarkdown(w io.Writer, data *ExportData) error {
	_, _ = fmt.Fprintf(w, "# Persona Export - %s\n\n", data.Persona.ClientID)
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)

	for _, cat := range data.Persona.Categories {
		_, _ = fmt.Fprintf(w, "## %s\n\n", cat.Category)
		_, _ = fmt.Fprintln(w, "| Field | Value | Confidence |")
		_, _ = fmt.Fprintln(w, "|-------|-------|------------|")
		for _, f := range cat.Fields {
			_, _ = fmt.Fprintf(w, "| %s | %s | %d%% |\n", f.Field, f.Value.String(), f.ConfidencePercent)
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(data.Deltas) > 0 {
		_, _ = fmt.Fprintln(w, "## History")
		_, _ = fmt.Fprintln(w)
		for _, d := range data.Deltas {
			_, _ = fmt.Fprintf(w, "- %s **%s** → %s\n", d.CreatedAt.Format(time.RFC3339), d.Field, d.NewValue.String())
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(data.Insights) > 0 {
		_, _ = fmt.Fprintln(w, "## Sessions")
		_, _ = fmt.Fprintln(w)
		for _, in := range data.Insights {
			_, err := fmt.Fprintf(w, "### %s\n\n%s\n\n", in.Record.SessionID, in.Record.ExecutiveSummary)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
