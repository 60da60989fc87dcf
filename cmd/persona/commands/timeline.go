// ABOUTME: CLI command to show a client's milestone timeline
// ABOUTME: Periods are months or sessions; significant periods are starred
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
)

var timelineGranularity string

// NewTimelineCmd creates the timeline command
func NewTimelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline <client-id>",
		Short: "Show a client's milestone timeline",
		Long: `Show a client's milestone timeline, newest period first.

A period is significant (*) when its average confidence is at least 80%,
it holds five or more changes, or it touches a key field
(goals.primary, progress.achievements, progress.breakthroughs).

Examples:
  persona timeline c1
  persona timeline c1 --granularity session
  persona timeline c1 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runTimeline,
	}

	cmd.Flags().StringVar(&timelineGranularity, "granularity", string(models.GranularityMonth), "Group by month or session")

	return cmd
}

func runTimeline(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	r := core.NewTimelineReconstructor(eng.store, logger)
	periods, err := r.Build(cmd.Context(), args[0], core.TimelineOptions{
		Granularity: models.Granularity(timelineGranularity),
		Limit:       eng.cfg.TimelineLimit,
	})
	if err != nil {
		return fmt.Errorf("building timeline: %w", err)
	}

	if handled, err := writeStructured(cmd, periods); handled {
		return err
	}

	if len(periods) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No changes recorded\n")
		}
		return nil
	}

	out := cmd.OutOrStdout()
	for _, p := range periods {
		mark := " "
		if p.IsSignificant {
			mark = "*"
		}
		cats := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			cats = append(cats, string(c))
		}
		fmt.Fprintf(out, "%s %s  %d change(s), avg %d%%, %s\n",
			mark, p.PeriodKey, len(p.Deltas), models.ConfidencePercent(p.AvgConfidence), strings.Join(cats, ", "))
		for _, e := range p.Deltas {
			fmt.Fprintf(out, "    %-36s %s\n", e.Delta.Field, truncate(describeChange(e.Delta), 60))
		}
	}
	return nil
}
