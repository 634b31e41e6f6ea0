package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"courtstats/internal/core"
	"courtstats/internal/ingest"
)

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON        bool
		includeOrders bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.xlsx>",
		Short: "Analyse an order export and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newAnalyzer(includeOrders)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			tbl, err := ingest.ReadXLSX(f)
			if err != nil {
				return err
			}
			report, err := a.AnalyzeTable(cmd.Context(), tbl)
			for _, w := range report.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output the full report as JSON")
	cmd.Flags().BoolVar(&includeOrders, "orders", false, "Include parsed order rows in JSON output")

	return cmd
}

func printReport(w io.Writer, r core.Report) {
	s := r.Statistics

	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "  %-14s %d\n", "Orders:", s.TotalOrders)
	fmt.Fprintf(w, "  %-14s %d (%d effective, %d group)\n", "Activities:", s.TotalActivities, s.EffectiveActivityCount, s.GroupBookingCount)
	fmt.Fprintf(w, "  %-14s %s\n", "Spent:", core.FormatYuan(s.TotalOutgoing))
	fmt.Fprintf(w, "  %-14s %s\n", "Incoming:", core.FormatYuan(s.TotalIncoming))
	fmt.Fprintf(w, "  %-14s %s\n", "Net:", core.FormatYuan(s.NetSpent))
	fmt.Fprintf(w, "  %-14s %s\n", "Per activity:", core.FormatYuan(s.AveragePerActivity))
	fmt.Fprintf(w, "  %-14s %.2f (%s)\n", "Per week:", s.AvgPerWeek, s.HealthLevel)
	fmt.Fprintf(w, "  %-14s %.1f h, %.0f kcal\n", "Exercise:", s.TotalHours, s.TotalCalories)

	if len(r.Monthly) > 0 {
		fmt.Fprintln(w, "\nBy month:")
		for _, m := range r.Monthly {
			fmt.Fprintf(w, "  %-10s %4d  %s\n", m.Month, m.Count, core.FormatYuan(m.TotalSpend))
		}
	}
	if len(r.Venues) > 0 {
		fmt.Fprintln(w, "\nBy venue:")
		for _, v := range r.Venues {
			fmt.Fprintf(w, "  %-10s %4d  %s  %5.1f%%\n", v.Venue, v.Count, core.FormatYuan(v.TotalSpend), v.Percent)
		}
	}
	if len(r.Weekdays) > 0 {
		fmt.Fprintln(w, "\nBy weekday:")
		for _, d := range r.Weekdays {
			fmt.Fprintf(w, "  %-10s %4d  %s\n", d.Weekday, d.Count, core.FormatYuan(d.TotalSpend))
		}
	}

	fmt.Fprintf(w, "\nHealth: %d/100 %s\n", r.Health.Value, r.Health.Comment)
}
