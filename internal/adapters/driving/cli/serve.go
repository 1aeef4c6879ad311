package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/adapters/driving/api"
	"github.com/custodia-labs/procrag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/logger"
)

// MetricsHandler instruments HTTP requests and serves the scrape endpoint.
type MetricsHandler = api.Metrics

var (
	serveAddr   string
	serveNoMCP  bool
	serveMaxReq int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the JSON API under /api, a health check at /healthz and,
when metrics are enabled, a Prometheus endpoint at /metrics. The MCP
streamable HTTP transport is mounted at /mcp unless --no-mcp is given.

The listen address defaults to server.addr from the configuration.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	serveCmd.Flags().Int64Var(&serveMaxReq, "max-body-bytes", 0, "request body limit in bytes (0 = 1 MiB)")
	rootCmd.AddCommand(serveCmd)
}

func resolveServeAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.Server.Addr != "" {
			return s.Server.Addr
		}
	}
	return domain.DefaultAppSettings().Server.Addr
}

func buildAPIServer() (*api.Server, error) {
	opts := []api.Option{api.WithMaxBodyBytes(serveMaxReq)}
	if metricsHandler != nil {
		opts = append(opts, api.WithMetrics(metricsHandler))
	}
	if !serveNoMCP {
		ms, err := mcp.NewServer(mcpPorts())
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithMount("/mcp", ms.Handler()))
	}

	return api.NewServer(api.Ports{
		Ask:       askService,
		Retrieval: retrievalService,
		Intent:    intentService,
		Gating:    gatingService,
		Whitelist: whitelistService,
		Process:   processService,
	}, opts...)
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv, err := buildAPIServer()
	if err != nil {
		return err
	}

	addr := resolveServeAddr()
	logger.Info("HTTP API listening on %s", addr)
	cmd.Printf("Listening on http://%s\n", displayAddr(addr))
	return srv.Run(commandContext(cmd), addr)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
