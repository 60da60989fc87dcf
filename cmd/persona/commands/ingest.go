// ABOUTME: CLI command to apply extraction batches to client personas
// ABOUTME: Accepts one batch object or an array of batches as JSON
package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
)

var (
	ingestClient  string
	ingestSession string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <batch.json|->",
		Short: "Apply extraction batches to personas",
		Long: `Apply extraction batches to client personas.

The input is one batch object or an array of batches:

  {"client_id": "c1", "session_id": "s1",
   "items": [{"field": "goals.primary", "value": ["Get promoted"], "confidence": 0.7}]}

A batch is applied whole or not at all. Batches for different clients
run in parallel; batches for one client apply in input order.

Examples:
  persona ingest batch.json
  cat batch.json | persona ingest -
  persona ingest items.json --client c1 --session s1 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestClient, "client", "", "Override client_id for every batch")
	cmd.Flags().StringVar(&ingestSession, "session", "", "Override session_id for every batch")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return fmt.Errorf("reading batch: %w", err)
	}

	batches, err := decodeBatches(data)
	if err != nil {
		return err
	}
	for i := range batches {
		if ingestClient != "" {
			batches[i].ClientID = ingestClient
		}
		if ingestSession != "" {
			batches[i].SessionID = ingestSession
		}
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	outcomes, err := eng.ingestor.IngestAll(cmd.Context(), batches)
	if err != nil {
		return fmt.Errorf("ingesting: %w", err)
	}

	reports := make([]ingestReport, len(outcomes))
	var failed []error
	for idx, o := range outcomes {
		reports[idx] = newIngestReport(idx, batches[idx], o)
		if o.Err != nil {
			failed = append(failed, fmt.Errorf("batch %d (%s): %w", idx, batches[idx].ClientID, o.Err))
		}
	}

	if handled, err := writeStructured(cmd, reports); handled {
		if err != nil {
			return err
		}
		return errors.Join(failed...)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CLIENT\tFIELD\tOLD\tNEW\tCONF\n")
	fmt.Fprintf(w, "------\t-----\t---\t---\t----\n")

	applied := 0
	for _, r := range reports {
		for _, d := range r.Deltas {
			old := "-"
			if d.OldValue != nil {
				old = formatValue(*d.OldValue)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\n",
				d.ClientID,
				d.Field,
				truncate(old, 30),
				truncate(formatValue(d.NewValue), 40),
				models.ConfidencePercent(d.Confidence))
			applied++
		}
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nApplied %d delta(s) from %d batch(es)\n", applied, len(batches)-len(failed))
	}
	return errors.Join(failed...)
}

// ingestReport is the printable outcome of one input batch
type ingestReport struct {
	Index     int                 `json:"index" yaml:"index"`
	ClientID  string              `json:"client_id" yaml:"client_id"`
	SessionID string              `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Status    string              `json:"status" yaml:"status"`
	Error     string              `json:"error,omitempty" yaml:"error,omitempty"`
	Deltas    []models.FieldDelta `json:"deltas" yaml:"deltas"`
}

func newIngestReport(idx int, batch models.ExtractionBatch, o core.IngestOutcome) ingestReport {
	r := ingestReport{Index: idx, ClientID: batch.ClientID, SessionID: batch.SessionID, Deltas: []models.FieldDelta{}}
	switch {
	case o.Err != nil:
		r.Status = ingestStatus(o.Err)
		r.Error = o.Err.Error()
	case o.Result == nil:
		// Never started: the context ended before this batch ran.
		r.Status = "skipped"
	case o.Result.NoChanges():
		r.Status = "unchanged"
	default:
		r.Status = "applied"
		r.Deltas = o.Result.Deltas
	}
	return r
}

// decodeBatches accepts a single batch object or an array of batches
func decodeBatches(data []byte) ([]models.ExtractionBatch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty batch input")
	}

	if trimmed[0] == '[' {
		var batches []models.ExtractionBatch
		if err := json.Unmarshal(trimmed, &batches); err != nil {
			return nil, fmt.Errorf("parsing batches: %w", err)
		}
		return batches, nil
	}

	var batch models.ExtractionBatch
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, fmt.Errorf("parsing batch: %w", err)
	}
	return []models.ExtractionBatch{batch}, nil
}

// ingestStatus classifies a failed batch
func ingestStatus(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return "rejected"
	case errors.Is(err, core.ErrClientBusy):
		return "busy"
	default:
		return "failed"
	}
}
