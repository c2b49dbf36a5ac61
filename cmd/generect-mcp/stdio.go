package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	mcpgateway "github.com/generect/generect-mcp/pkg/mcp-gateway"
	"github.com/generect/generect-mcp/pkg/mcpclient"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve a single session on stdin/stdout",
	Long: `Serve the tools to one client over stdin/stdout, for MCP hosts that
launch servers as subprocesses. Every call uses GENERECT_API_KEY. Logs go to
stderr; with --debug every JSON-RPC message is logged as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol.
		logger := newLogger(cfg, os.Stderr)
		if cfg.API.Key == "" {
			logger.Warn("GENERECT_API_KEY is not set; tool calls will fail until it is")
		}

		server := mcp.NewServer(mcpgateway.DefaultImplementation(), nil)
		newDispatcher(cfg, newUpstream(cfg, logger), logger).Register(server, tools.StaticCredential(cfg.API.Key))

		var rpcLogger mcpclient.RPCLogger
		if cfg.Logging.Debug {
			rpcLogger = mcpclient.SlogRPCLogger(logger)
		}
		transport := mcpclient.LoggingTransport("stdio", &mcp.StdioTransport{}, rpcLogger)

		logger.Info("serving on stdio", "api", cfg.API.BaseURL)
		if err := server.Run(cmd.Context(), transport); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stdioCmd)
}
