package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gapo-hq/keygate/pkg/cli"
	"gapo-hq/keygate/pkg/telemetry/journal"
)

var eventsFlags struct {
	since  time.Duration
	code   int
	limit  int
	output string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the rejection journal",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled rejections, newest first",
	Long: `List rejected requests recorded in the journal.

Examples:
  # Rejections from the last hour
  keygate events list --since 1h

  # Only invalid-request rejections, as JSON
  keygate events list --code 901 --output json`,
	RunE: runEventsList,
}

func init() {
	eventsListCmd.Flags().DurationVar(&eventsFlags.since, "since", 24*time.Hour, "only events newer than this (0 for all)")
	eventsListCmd.Flags().IntVar(&eventsFlags.code, "code", 0, "only events with this error code")
	eventsListCmd.Flags().IntVar(&eventsFlags.limit, "limit", 50, "maximum number of events (0 for no limit)")
	eventsListCmd.Flags().StringVarP(&eventsFlags.output, "output", "o", "text", "output format (text, json, csv)")
	eventsCmd.AddCommand(eventsListCmd)
	rootCmd.AddCommand(eventsCmd)
}

// eventList is the result of events list.
type eventList []journal.Record

func (l eventList) Header() []string {
	return []string{"TIME", "ID", "HTTP", "CODE", "URI", "MESSAGE"}
}

func (l eventList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, r := range l {
		rows[i] = []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ID,
			strconv.Itoa(r.HTTPCode),
			strconv.Itoa(r.Code),
			r.URI,
			r.Message,
		}
	}
	return rows
}

// eventFilter builds the journal filter from flags, relative to now.
func eventFilter(now time.Time) journal.Filter {
	f := journal.Filter{Code: eventsFlags.code, Limit: eventsFlags.limit}
	if eventsFlags.since > 0 {
		f.Since = now.Add(-eventsFlags.since)
	}
	return f
}

func runEventsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(eventsFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}
	if eventsFlags.limit < 0 {
		return cli.NewConfigError("limit", "must be non-negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openJournal(&cfg.Telemetry.Journal)
	if err != nil {
		return cli.NewCommandError("events list", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := store.List(ctx, eventFilter(time.Now()))
	if err != nil {
		return cli.NewCommandError("events list", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), eventList(records))
}
