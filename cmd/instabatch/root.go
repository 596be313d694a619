package main

import (
	"strings"

	"github.com/spf13/cobra"

	"instabatch/internal/app"
	"instabatch/internal/config"
)

var (
	flagConfig     string
	flagHosting    string
	flagTarget     string
	flagMethod     string
	flagMaxBatches int
	flagInterval   string
	flagLead       string
	flagStop       string
	flagAuditPath  string
	flagSimulate   bool
	flagDebug      bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "instabatch",
		Short:        "Schedule repeating action batches on a completion lattice",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "./config.yaml", "path to config (yaml or json)")

	root.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newOrdersCmd(),
		newReportCmd(),
	)
	return root
}

// addRunFlags registers the flags that override run settings.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagHosting, "hosting", "", "hosting host (overrides run.hosting_host)")
	f.StringVar(&flagTarget, "target", "", "target host (overrides run.target_host)")
	f.StringVarP(&flagMethod, "method", "m", "", "batching method: hwgw, hgw, gw, w")
	f.IntVarP(&flagMaxBatches, "max-batches", "n", -1, "stop after this many batches (0 = unbounded)")
	f.StringVar(&flagInterval, "interval", "", "spacing between completions, e.g. 1s")
	f.StringVar(&flagLead, "lead-offset", "", "minimum delay before the first completion")
	f.StringVar(&flagStop, "stop", "", "stop expression, e.g. 'batchesCount >= 10'")
	f.StringVar(&flagAuditPath, "audit-path", "", "audit log path")
	f.BoolVar(&flagSimulate, "simulate", false, "compute the schedule without dispatching")
	f.BoolVar(&flagDebug, "debug", false, "print the effective config and per-tick timing")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*app.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("hosting", &cfg.Run.HostingHost, flagHosting)
	set("target", &cfg.Run.TargetHost, flagTarget)
	set("method", &cfg.Run.Method, flagMethod)
	set("interval", &cfg.Run.Interval, flagInterval)
	set("lead-offset", &cfg.Run.LeadOffset, flagLead)
	set("stop", &cfg.Stop.Expression, flagStop)
	set("audit-path", &cfg.Audit.Path, flagAuditPath)
	if f.Changed("max-batches") {
		cfg.Run.MaxBatches = flagMaxBatches
	}
	if f.Changed("simulate") {
		cfg.Run.Simulate = flagSimulate
	}
	if f.Changed("debug") {
		cfg.Run.Debug = flagDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
