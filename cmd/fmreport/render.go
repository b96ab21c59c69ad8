package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("--format must be text, json or yaml, got %q", raw)
	}
}

func render(w io.Writer, format outputFormat, d *dashboard.Dashboard) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderText(w, d)
	}
}

func renderText(w io.Writer, d *dashboard.Dashboard) error {
	m := d.Metrics
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if d.Demo {
		_, _ = fmt.Fprintln(tw, "(demo data)")
	}
	_, _ = fmt.Fprintf(tw, "sessions\t%d\n", m.TotalSessions)
	_, _ = fmt.Fprintf(tw, "hours\t%.1f\n", m.TotalHours)
	_, _ = fmt.Fprintf(tw, "partners\t%d\n", m.TotalPartners)
	_, _ = fmt.Fprintf(tw, "first session\t%s\n", dateOrDash(m.FirstSessionDate))
	_, _ = fmt.Fprintf(tw, "max hours in a day\t%.1f (%s)\n", m.MaxHoursADay, dateOrDash(m.MaxHoursDate))
	_, _ = fmt.Fprintf(tw, "streak\t%d (longest %d)\n", m.CurrentStreak, m.LongestStreak)

	_, _ = fmt.Fprintln(tw, "\nduration\tsessions\tshare")
	for _, b := range m.SessionsByDuration {
		_, _ = fmt.Fprintf(tw, "%dm\t%d\t%.0f%%\n", b.Minutes, b.Sessions, b.Percent)
	}

	if len(m.Milestones) > 0 {
		_, _ = fmt.Fprintln(tw, "\nmilestone\tdate")
		for _, ms := range m.Milestones {
			_, _ = fmt.Fprintf(tw, "#%d\t%s\n", ms.Number, ms.Date.Format(time.DateOnly))
		}
	}

	if len(m.RepeatPartners) > 0 {
		_, _ = fmt.Fprintln(tw, "\npartner\tsessions\tlast")
		for _, p := range m.RepeatPartners {
			name := p.Name
			if name == "" {
				name = p.PartnerID
			}
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", name, p.Sessions, p.LastSession.Format(time.DateOnly))
		}
	}

	if len(m.Monthly) > 0 {
		_, _ = fmt.Fprintln(tw, "\nmonth\tsessions\thours")
		for _, b := range m.Monthly {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%.1f\n", b.Label, b.Sessions, b.Hours)
		}
	}
	return tw.Flush()
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
