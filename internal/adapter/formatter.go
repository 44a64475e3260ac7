// Package adapter renders dispatcher state as plain text for terminals and logs.
package adapter

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/quota"
	"github.com/kapu/multistream-checker-go/internal/service/dispatcher"
	"github.com/kapu/multistream-checker-go/internal/util"
)

// ResponseFormatter formats entry lists and cycle summaries.
type ResponseFormatter struct {
	loc *time.Location
}

// NewResponseFormatter creates a formatter printing clock times in loc (local time when nil).
func NewResponseFormatter(loc *time.Location) *ResponseFormatter {
	if loc == nil {
		loc = time.Local
	}
	return &ResponseFormatter{loc: loc}
}

// FormatEntries lays the entries out as an aligned table, one row per entry in list order.
func (f *ResponseFormatter) FormatEntries(entries []domain.MonitoredEntry) string {
	if len(entries) == 0 {
		return "No channels loaded."
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NICKNAME\tPLATFORM\tCHANNEL\tSTATUS\tVIEWERS\tTITLE / DETAILS\tCHECKED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.cell(e.Nickname),
			e.Platform.DisplayName(),
			f.cell(e.Name),
			e.Status.Label(),
			f.viewers(e.Viewers),
			f.description(e),
			f.clock(e.LastCheck),
		)
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

// FormatLive lists only the entries that are currently live.
func (f *ResponseFormatter) FormatLive(entries []domain.MonitoredEntry) string {
	var live []domain.MonitoredEntry
	for _, e := range entries {
		if e.Status == domain.StreamStatusLive {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return "Nobody is live right now."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Live now (%d)\n", len(live)))
	for _, e := range live {
		sb.WriteString(fmt.Sprintf("\n* %s [%s]", f.cell(e.Nickname), e.Platform.DisplayName()))
		if e.Title != "" {
			sb.WriteString("\n  " + util.TruncateString(e.Title, constants.StringLimits.StreamTitle))
		}
		if e.Viewers != nil {
			sb.WriteString(fmt.Sprintf("\n  %d viewers", *e.Viewers))
		}
		sb.WriteString("\n  " + e.OriginalInput)
	}
	return sb.String()
}

// FormatSummary describes one cycle the way the dispatcher reports it to the UI.
func (f *ResponseFormatter) FormatSummary(res dispatcher.CycleResult) string {
	switch {
	case res.Stale:
		return "Results discarded: the channel list changed during the check."
	case res.Panicked > 0:
		return "Some checks failed during refresh"
	}
	s := fmt.Sprintf("Checked %d: %d live, %d offline, %d with errors", res.Checked, res.Live, res.Offline, res.Failed)
	if res.Skipped > 0 {
		s += fmt.Sprintf(" (%d skipped)", res.Skipped)
	}
	return s
}

// FormatQuota reports YouTube unit usage and when it resets.
func (f *ResponseFormatter) FormatQuota(u quota.Usage) string {
	if u.Limit <= 0 {
		return "YouTube quota: untracked"
	}
	pct := float64(u.Used) / float64(u.Limit) * 100
	return fmt.Sprintf("YouTube quota: %d / %d units (%.1f%%), resets %s",
		u.Used, u.Limit, pct, u.ResetAt.In(f.loc).Format("2006-01-02 15:04 MST"))
}

func (f *ResponseFormatter) description(e domain.MonitoredEntry) string {
	text := e.Details
	if e.Title != "" {
		text = e.Title
		if e.Details != "" {
			text += " (" + e.Details + ")"
		}
	}
	return f.cell(util.TruncateString(text, constants.StringLimits.ErrorDetails))
}

func (f *ResponseFormatter) viewers(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func (f *ResponseFormatter) clock(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.In(f.loc).Format("15:04:05")
}

// cell keeps tabs and newlines from breaking the table layout.
func (f *ResponseFormatter) cell(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
	if s == "" {
		return "-"
	}
	return s
}
