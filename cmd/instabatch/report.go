package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"instabatch/internal/app"
)

func newReportCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize runs recorded in the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sums, err := app.Report(cmd.Context(), cfg, runID)
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tFIRED\tBATCHES\tATTEMPTS\tMAX LATENCY\tMAX DRIFT\tSIM")
			for _, s := range sums {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%v\n",
					s.RunID,
					humanize.Time(s.First),
					humanize.Comma(int64(s.Fired)),
					humanize.Comma(int64(s.Batches)),
					s.TotalAttempts,
					s.MaxLatency.Round(time.Millisecond),
					s.MaxDrift,
					s.Simulated,
				)
			}
			return tw.Flush()
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "only this run id")
	return cmd
}
