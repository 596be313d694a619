package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"instabatch/internal/app"
	"instabatch/internal/batcher"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batcher until the stop condition or batch cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Validate(ctx); err != nil {
				return err
			}
			// Not running under systemd is fine; SdNotify is a no-op then.
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
			res, err := a.Run(ctx)
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}

func printResult(w io.Writer, res batcher.Result) {
	fmt.Fprintf(w, "run %s stopped (%s)\n", res.RunID, res.StopReason)
	fmt.Fprintf(w, "  batches: %s\n", humanize.Comma(int64(res.BatchesCount)))
	fmt.Fprintf(w, "  actions: %s (fired %s)\n", humanize.Comma(int64(res.ActionsCount)), humanize.Comma(int64(res.FiredCount)))
	fmt.Fprintf(w, "  elapsed: %s\n", res.StoppedAt.Sub(res.StartedAt).Round(time.Millisecond))
	if res.Drift > 0 {
		fmt.Fprintf(w, "  drift:   %s\n", res.Drift)
	}
	if !res.LastCompletionAt.IsZero() {
		fmt.Fprintf(w, "  last completion: %s (%s)\n", res.LastCompletionAt.Format(time.RFC3339), humanize.Time(res.LastCompletionAt))
	}
	if res.AuditPath != "" {
		fmt.Fprintf(w, "  audit:   %s\n", res.AuditPath)
	}
}
