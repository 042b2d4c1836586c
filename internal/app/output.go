package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/history"
	"github.com/five82/smashtrack/internal/ui"
)

func writeReport(out io.Writer, r analysis.Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Speed\t%.0f km/h\n", r.Speed)
	fmt.Fprintf(tw, "Rank\tfaster than %.0f%% of players", r.Rank)
	if r.RankPosition > 0 {
		fmt.Fprintf(tw, " (#%.0f)", r.RankPosition)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Level\t%s\n", r.Level)
	fmt.Fprintf(tw, "Score\t%.1f / 10\n", r.Score)
	fmt.Fprintf(tw, "Power\t%.0f\n", r.Technique.Power)
	fmt.Fprintf(tw, "Angle\t%.0f\n", r.Technique.Angle)
	fmt.Fprintf(tw, "Coordination\t%.0f\n", r.Technique.Coordination)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Suggestions) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Suggestions")
	for _, s := range r.Suggestions {
		fmt.Fprintf(out, "  %s %s\n", ui.SuggestionIcon(s.Icon), s.Title)
		fmt.Fprintf(out, "     %s\n", s.Description)
		if s.Highlight != "" {
			fmt.Fprintf(out, "     > %s\n", s.Highlight)
		}
	}
	return nil
}

func writeHistory(out io.Writer, page history.Page, stats history.Stats) error {
	fmt.Fprintf(out, "%d analyses  best %.0f km/h  avg score %.1f  level %s\n\n",
		stats.Total, stats.MaxSpeed, stats.AverageScore, stats.Level)
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No analyses yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tANALYZED\tSPEED\tSCORE\tLEVEL")
	for _, it := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.1f\t%s\n", it.ID, it.AnalyzedAt, it.Speed, it.Score, it.Level)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if pages := pageCount(page); pages > 1 {
		fmt.Fprintf(out, "\npage %d of %d\n", page.Page, pages)
	}
	return nil
}

func pageCount(p history.Page) int {
	if p.PageSize <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// ShareText is the plain-text summary of a report for pasting elsewhere.
func ShareText(r analysis.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏸 My smash hit %.0f km/h", r.Speed)
	if r.Rank > 0 {
		fmt.Fprintf(&b, ", faster than %.0f%% of players", r.Rank)
	}
	b.WriteString(".")
	fmt.Fprintf(&b, " Score %.1f/10", r.Score)
	if r.Level != "" && r.Level != analysis.PlaceholderLevel {
		fmt.Fprintf(&b, ", level %s", r.Level)
	}
	b.WriteString(". #smashtrack")
	return b.String()
}
