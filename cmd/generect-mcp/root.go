package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/generect/generect-mcp/pkg/config"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/generect/generect-mcp/pkg/upstream"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	version    = "dev"
	commit     = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "generect-mcp",
	Short: "MCP server for the Generect lead and company API",
	Long: `generect-mcp exposes the Generect API as MCP tools:
  • get_lead_by_url     Enrich a LinkedIn profile
  • search_leads        Find people by ICP filters
  • search_companies    Find companies by ICP filters
  • generate_email      Guess and validate a work email
  • health              Check that the API answers

Quick Start:
  generect-mcp serve                     # Streamable HTTP on :3000/mcp
  generect-mcp stdio                     # Single session on stdin/stdout
  generect-mcp probe                     # Check the API key against Generect
  generect-mcp auth-check                # Check a running gateway's auth

Settings come from an optional config file (--config), a .env file in the
working directory and the environment (GENERECT_API_KEY, GENERECT_API_BASE,
GENERECT_TIMEOUT_MS, MCP_PORT, MCP_DEBUG, ...).`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every request and tool call (same as MCP_DEBUG=1)")
}

// loadConfig reads the layered configuration and applies command line
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Logging.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := cfg.Logging.NewLogger(w)
	slog.SetDefault(logger)
	return logger
}

func newUpstream(cfg *config.Config, logger *slog.Logger) *upstream.Client {
	return upstream.New(cfg.API.BaseURL, &upstream.Options{
		DefaultTimeout: cfg.API.Timeout,
		UserAgent:      "generect-mcp/" + version,
		Logger:         logger,
	})
}

func newDispatcher(cfg *config.Config, client *upstream.Client, logger *slog.Logger) *tools.Dispatcher {
	return tools.NewDispatcher(client, &tools.Options{
		DefaultTimeout: cfg.API.Timeout,
		Logger:         logger,
		Debug:          cfg.Logging.Debug,
	})
}
