package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/generect/generect-mcp/pkg/probe"
	"github.com/spf13/cobra"
)

var (
	authCheckVerbose bool
	authCheckTimeout time.Duration
)

var authCheckCmd = &cobra.Command{
	Use:   "auth-check [url] [api-key]",
	Short: "Check that a running gateway enforces authentication",
	Long: `Initialize against a running gateway twice: once with the key, which must
succeed and list every tool, and once without, which must be refused with 401.

The url defaults to the local gateway from the current configuration and the
key to GENERECT_API_KEY.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		newLogger(cfg, os.Stderr)

		endpoint := fmt.Sprintf("http://localhost%s%s", cfg.Addr(), cfg.Server.Path)
		if len(args) >= 1 {
			endpoint = args[0]
		}
		key := cfg.API.Key
		if len(args) == 2 {
			key = args[1]
		}

		client := &http.Client{Timeout: authCheckTimeout}
		report := probe.Auth(cmd.Context(), client, endpoint, key)
		probe.Render(cmd.OutOrStdout(), report, authCheckVerbose)
		if !report.OK() {
			return fmt.Errorf("auth check failed")
		}
		return nil
	},
}

func init() {
	authCheckCmd.Flags().BoolVarP(&authCheckVerbose, "verbose", "v", false, "Show timings and details of passing checks")
	authCheckCmd.Flags().DurationVar(&authCheckTimeout, "timeout", 30*time.Second, "Per request timeout")
	rootCmd.AddCommand(authCheckCmd)
}
