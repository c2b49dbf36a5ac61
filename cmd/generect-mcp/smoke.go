package main

import (
	"context"
	"fmt"
	"os"

	"github.com/generect/generect-mcp/pkg/credential"
	mcpgateway "github.com/generect/generect-mcp/pkg/mcp-gateway"
	"github.com/generect/generect-mcp/pkg/mcpclient"
	"github.com/generect/generect-mcp/pkg/probe"
	"github.com/generect/generect-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	smokeEndpoint string
	smokeKey      string
	smokeVerbose  bool
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Call every tool once with sample arguments",
	Long: `List the tools and call each with sample arguments. With --endpoint the
calls go through a running gateway; without it an in-process server is used so
only the Generect API is exercised.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, os.Stderr)
		key := smokeKey
		if key == "" {
			key = cfg.API.Key
		}

		var rpcLogger mcpclient.RPCLogger
		if cfg.Logging.Debug {
			rpcLogger = mcpclient.SlogRPCLogger(logger)
		}

		ctx := cmd.Context()
		var (
			session *mcp.ClientSession
			target  string
		)
		if smokeEndpoint != "" {
			target = smokeEndpoint
			auth := ""
			if normalized, ok := credential.Normalize(key); ok {
				auth = "Bearer " + normalized
			}
			session, err = mcpclient.Dial(ctx, &mcpclient.Options{
				Endpoint:   smokeEndpoint,
				Auth:       mcpclient.StaticAuth(auth),
				MaxRetries: 1,
				RPCLogger:  rpcLogger,
			})
		} else {
			if key == "" {
				return fmt.Errorf("no API key: pass --key or set GENERECT_API_KEY")
			}
			target = "in-process (" + cfg.API.BaseURL + ")"
			session, err = inProcessSession(ctx, key, rpcLogger, func(server *mcp.Server, key string) {
				newDispatcher(cfg, newUpstream(cfg, logger), logger).Register(server, tools.StaticCredential(key))
			})
		}
		if err != nil {
			return err
		}
		defer session.Close()

		report := probe.Smoke(ctx, session, target)
		probe.Render(cmd.OutOrStdout(), report, smokeVerbose)
		if !report.OK() {
			return fmt.Errorf("smoke test failed")
		}
		return nil
	},
}

// inProcessSession connects a client to a fresh server over in-memory
// transports. The server side ends when the client session closes.
func inProcessSession(ctx context.Context, key string, rpcLogger mcpclient.RPCLogger, register func(*mcp.Server, string)) (*mcp.ClientSession, error) {
	server := mcp.NewServer(mcpgateway.DefaultImplementation(), nil)
	register(server, key)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		return nil, fmt.Errorf("starting in-process server: %w", err)
	}
	return mcpclient.Connect(ctx, clientTransport, &mcpclient.Options{RPCLogger: rpcLogger})
}

func init() {
	smokeCmd.Flags().StringVar(&smokeEndpoint, "endpoint", "", "Streamable HTTP URL of a running gateway, e.g. http://localhost:3000/mcp")
	smokeCmd.Flags().StringVar(&smokeKey, "key", "", "API key (defaults to GENERECT_API_KEY)")
	smokeCmd.Flags().BoolVarP(&smokeVerbose, "verbose", "v", false, "Show timings and details of passing checks")
	rootCmd.AddCommand(smokeCmd)
}
