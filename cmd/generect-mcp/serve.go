package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/generect/generect-mcp/pkg/credential"
	mcpgateway "github.com/generect/generect-mcp/pkg/mcp-gateway"
	"github.com/spf13/cobra"
)

const banner = `
   ┌─┐┌─┐┌┐┌┌─┐┬─┐┌─┐┌─┐┌┬┐  ┌┬┐┌─┐┌─┐
   │ ┬├┤ │││├┤ ├┬┘├┤ │   │   │││├  ├─┘
   └─┘└─┘┘└┘└─┘┴└─└─┘└─┘ ┴   ┴ ┴└─┘┴
`

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over Streamable HTTP",
	Long: `Start the multi-session gateway. Every client session is bound to the
API key sent in its Authorization header on initialize ("Bearer <key>",
"Token <key>" or a bare key). When GENERECT_API_KEY is set, sessions that send
no key fall back to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, os.Stderr)

		cyan := color.New(color.FgCyan)
		gray := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		cyan.Print(banner)
		gray.Printf("    version: %s\n\n", version)
		green.Print("    ▶ ")
		fmt.Printf("MCP:       http://localhost%s%s\n", cfg.Addr(), cfg.Server.Path)
		green.Print("    ▶ ")
		fmt.Printf("API:       %s\n", cfg.API.BaseURL)
		green.Print("    ▶ ")
		fmt.Print("Fallback:  ")
		if cfg.API.Key != "" {
			fmt.Println(credential.Redact(cfg.API.Key))
		} else {
			yellow.Println("none (clients must send a key)")
		}
		if cfg.Logging.Debug {
			green.Print("    ▶ ")
			yellow.Println("Debug logging enabled")
		}
		fmt.Println()

		client := newUpstream(cfg, logger)
		gateway, err := mcpgateway.NewGateway(newDispatcher(cfg, client, logger), &mcpgateway.Options{
			Addr:               cfg.Addr(),
			Path:               cfg.Server.Path,
			Logger:             logger,
			Debug:              cfg.Logging.Debug,
			DefaultCredential:  cfg.API.Key,
			SessionIdleTimeout: cfg.Server.SessionIdleTimeout,
			AllowedOrigins:     cfg.Server.AllowedOrigins,
		})
		if err != nil {
			return fmt.Errorf("creating gateway: %w", err)
		}

		logger.Info("starting generect-mcp",
			"addr", cfg.Addr(),
			"path", cfg.Server.Path,
			"api", cfg.API.BaseURL,
			"session_idle_timeout", cfg.Server.SessionIdleTimeout,
		)
		if err := gateway.ListenAndServe(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("gateway stopped: %w", err)
		}
		logger.Info("gateway stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
