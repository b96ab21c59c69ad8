package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fmreport",
		Short:         "Focusmate session statistics from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd())
	return root
}

type reportOptions struct {
	input   string
	userID  string
	token   string
	apiURL  string
	demo    bool
	format  string
	tz      string
	limit   int
	lookups int
}

func newReportCmd() *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report (--input <sessions.json> | --token <access token> | --demo)",
		Short: "Print dashboard metrics for a session history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fetcher, err := opts.fetcher(cmd.Context())
			if err != nil {
				return err
			}
			format, err := parseFormat(opts.format)
			if err != nil {
				return err
			}

			d, err := dashboard.NewService().Build(cmd.Context(), fetcher, dashboard.Options{
				RepeatPartnerLimit: opts.limit,
				PartnerLookupLimit: opts.lookups,
			})
			if err != nil {
				return err
			}
			d.Demo = opts.demo
			return render(cmd.OutOrStdout(), format, d)
		},
	}

	fm := config.Focusmate{}
	cmd.Flags().StringVar(&opts.input, "input", "", "sessions JSON file as returned by GET /sessions or /api/sessions")
	cmd.Flags().StringVar(&opts.userID, "user", "", "your Focusmate user id within the input file (defaults to the first participant)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Focusmate access token to fetch the history live")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", fm.GetAPIURL(), "Focusmate API base URL")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "report on generated demo data")
	cmd.Flags().StringVar(&opts.format, "format", string(formatText), "output format: text|json|yaml")
	cmd.Flags().StringVar(&opts.tz, "tz", "", "IANA time zone for days, weeks and months (defaults to the profile zone or UTC)")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "repeat partners to show, 0 for all")
	cmd.Flags().IntVar(&opts.lookups, "lookups", 0, "repeat partners to look up names for when using --token")
	return cmd
}

func (o reportOptions) fetcher(ctx context.Context) (dashboard.Fetcher, error) {
	sources := 0
	for _, set := range []bool{o.input != "", o.token != "", o.demo} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of --input, --token or --demo is required")
	}
	if o.tz != "" {
		if _, err := time.LoadLocation(o.tz); err != nil {
			return nil, fmt.Errorf("--tz: %w", err)
		}
	}

	var f dashboard.Fetcher
	switch {
	case o.input != "":
		file, err := loadSessionsFile(o.input, o.userID)
		if err != nil {
			return nil, err
		}
		f = file
	case o.token != "":
		f = focusmate.NewStaticTokenClient(ctx, strings.TrimSpace(o.token), o.apiURL)
	default:
		f = dashboard.NewDemoFetcher(dashboard.NowTimeFunc())
	}

	if o.tz != "" {
		f = zoneOverride{Fetcher: f, zone: o.tz}
	}
	return f, nil
}
