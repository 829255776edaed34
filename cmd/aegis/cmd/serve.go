package cmd

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/exec"
	"os/signal"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	inboundhttp "github.com/aegis-policy/aegis/internal/adapter/inbound/http"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/mcpresolver"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/tracing"
	"github.com/aegis-policy/aegis/internal/config"
	"github.com/aegis-policy/aegis/internal/engine"
	"github.com/aegis-policy/aegis/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation HTTP server",
	Long: `Serve starts an HTTP server exposing POST /v1/evaluate and GET
/metrics, backed by the configured rule store and, if enabled, OpenTelemetry
tracing. The /v1/evaluate endpoint is gated by server.auth_token_hash when
configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitProvider("aegis")
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown(context.Background())
	}

	stores, err := service.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(prometheus.DefaultRegisterer)
	}

	opts := []engine.Option{engine.WithMetrics(m)}
	if cfg.MCP.Enabled {
		resolver, err := dialMCP(context.Background(), cfg, logger)
		if err != nil {
			return fmt.Errorf("dial mcp entrypoint resolver: %w", err)
		}
		defer resolver.Close()
		opts = append(opts, engine.WithEntrypointResolver(resolver, cfg.EntrypointGroup))
	}

	p, err := service.LoadPolicy(stores, logger, opts...)
	if err != nil {
		return err
	}

	runtime := service.NewRuntime(p, m, logger)
	handler := inboundhttp.NewHandler(runtime, cfg.Server.AuthTokenHash, logger)

	mux := stdhttp.NewServeMux()
	handler.Routes(mux)

	server := &stdhttp.Server{Addr: cfg.Server.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("aegis serve listening", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return server.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != stdhttp.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// dialMCP builds the transport named by cfg.MCP (a local command or a
// streamable-HTTP URL, config.Validate guarantees exactly one is set) and
// connects an mcpresolver.Resolver over it.
func dialMCP(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mcpresolver.Resolver, error) {
	var transport mcp.Transport
	switch {
	case len(cfg.MCP.Command) > 0:
		c := exec.Command(cfg.MCP.Command[0], cfg.MCP.Command[1:]...)
		transport = &mcp.CommandTransport{Command: c}
	case cfg.MCP.URL != "":
		transport = &mcp.StreamableClientTransport{Endpoint: cfg.MCP.URL}
	default:
		return nil, fmt.Errorf("mcp enabled but neither command nor url configured")
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.MCP.Timeout)
	defer cancel()
	return mcpresolver.Dial(dialCtx, transport, logger)
}
