// ABOUTME: CLI commands to resolve and process finished sessions
// ABOUTME: resolve is a dry run; process stores the insight and updates the persona
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
)

const sessionInputHelp = `The input is a JSON session:

  {"client_id": "c1", "session_id": "s1",
   "transcript": [{"speaker": "client", "text": "...", "start_time": 0, "end_time": 4.5}],
   "realtime": {"overall_score": 8.2, "goals": ["Get promoted"]},
   "synthesis_text": "... {\"overall_score\": 6} ..."}

realtime and synthesis_text are optional. Present real-time fields win,
then fields parsed from the synthesis text, then neutral defaults.`

// NewResolveCmd creates the resolve command
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <session.json|->",
		Short: "Resolve a session insight record without storing it",
		Long: `Resolve a session insight record without storing it.

` + sessionInputHelp + `

Examples:
  persona resolve session.json
  persona resolve session.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	in, err := readSessionInput(cmd, args[0])
	if err != nil {
		return err
	}

	res := core.ResolveInsights(in, time.Now().UTC())
	if res.SynthesisErr != nil {
		logger.Info("synthesis text unusable, using defaults")
	}

	stored := models.StoredInsight{
		Record:          res.Record,
		RawSynthesis:    res.RawSynthesis,
		SynthesisParsed: res.SynthesisParsed,
	}
	if handled, err := writeStructured(cmd, stored); handled {
		return err
	}
	printInsight(cmd, stored)
	return nil
}

// NewProcessCmd creates the process command
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <session.json|->",
		Short: "Process a finished session into an insight and persona update",
		Long: `Process a finished session.

The insight record is resolved and stored with the raw synthesis text,
then its goals, challenges, values, strengths, behaviour patterns,
achievements, breakthroughs, commitments, and growth areas are ingested
into the client's persona. Session scores stay in the insight record.

When synthesis_text is absent and OPENAI_API_KEY is set, synthesis text
is requested from the model first.

` + sessionInputHelp + `

Examples:
  persona process session.json
  cat session.json | persona process - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	in, err := readSessionInput(cmd, args[0])
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.processor().Process(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("processing session: %w", err)
	}

	if handled, err := writeStructured(cmd, res); handled {
		return err
	}

	printInsight(cmd, res.Insight)
	if !quiet {
		n := 0
		if res.Ingest != nil {
			n = len(res.Ingest.Deltas)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nPersona: %d change(s) applied\n", n)
	}
	return nil
}

func readSessionInput(cmd *cobra.Command, path string) (core.ResolveInput, error) {
	var in core.ResolveInput
	data, err := readInput(cmd, path)
	if err != nil {
		return in, fmt.Errorf("reading session: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parsing session: %w", err)
	}
	return in, nil
}

func printInsight(cmd *cobra.Command, s models.StoredInsight) {
	r := s.Record
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Session\t%s\n", r.SessionID)
	fmt.Fprintf(w, "Client\t%s\n", r.ClientID)
	fmt.Fprintf(w, "Synthesis\t%s\n", synthesisLabel(s))
	fmt.Fprintf(w, "Scores\toverall %.1f  engagement %.1f  clarity %.1f  momentum %.1f  breakthrough %.1f\n",
		r.OverallScore, r.EngagementScore, r.ClarityScore, r.MomentumScore, r.BreakthroughScore)
	fmt.Fprintf(w, "Tone\t%s\n", r.EmotionalTone)
	fmt.Fprintf(w, "Phase\t%s\n", r.SessionPhase)
	fmt.Fprintf(w, "Summary\t%s\n", truncate(r.ExecutiveSummary, 80))
	fmt.Fprintf(w, "Focus\t%s\n", truncate(r.NextSessionFocus, 80))
	fmt.Fprintf(w, "Duration\t%.0fs, %d words\n", r.Metrics.DurationSeconds, r.Metrics.TotalWords)
	w.Flush()

	lists := []struct {
		title string
		items []string
	}{
		{"Key insights", r.KeyInsights},
		{"Action items", r.ActionItems},
		{"Goals", r.Goals},
		{"Breakthroughs", r.Breakthroughs},
	}
	for _, l := range lists {
		if len(l.items) == 0 {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", l.title)
		for _, item := range l.items {
			fmt.Fprintf(cmd.OutOrStdout(), "  • %s\n", item)
		}
	}
}

func synthesisLabel(s models.StoredInsight) string {
	switch {
	case s.SynthesisParsed:
		return "parsed"
	case s.RawSynthesis != "":
		return "unusable (defaults used)"
	default:
		return "none"
	}
}
