package main

import (
	"fmt"
	"os"

	"github.com/generect/generect-mcp/pkg/probe"
	"github.com/spf13/cobra"
)

var probeVerbose bool

var probeCmd = &cobra.Command{
	Use:   "probe [api-key]",
	Short: "Check an API key directly against the Generect API",
	Long: `Call three Generect endpoints with the given key (or GENERECT_API_KEY)
and report what each returned:
  • leads by LinkedIn link
  • companies by ICP keywords
  • leads by ICP company link

The gateway is not involved, which makes this the first thing to run when
tool calls fail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		key := cfg.API.Key
		if len(args) == 1 {
			key = args[0]
		}
		if key == "" {
			return fmt.Errorf("no API key: pass one or set GENERECT_API_KEY")
		}
		logger := newLogger(cfg, os.Stderr)

		report := probe.Upstream(cmd.Context(), newUpstream(cfg, logger), key)
		probe.Render(cmd.OutOrStdout(), report, probeVerbose)
		if !report.OK() {
			return fmt.Errorf("probe failed")
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().BoolVarP(&probeVerbose, "verbose", "v", false, "Show timings and details of passing checks")
	rootCmd.AddCommand(probeCmd)
}
