package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrifair/agriwizard/internal/hooks"
	"github.com/agrifair/agriwizard/internal/httpapi"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/mcpserver"
	"github.com/agrifair/agriwizard/internal/nats"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	listen string
	events bool
	noMCP  bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as a JSON API",
	Long: `Serve wizard sessions over HTTP for web and mobile front ends.

Sessions live under /api/v1/sessions. The same sessions are exposed as MCP
tools at /mcp. With --events every snapshot is also published to an embedded
NATS JetStream stream, which backs the history and server-sent events routes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "Address to listen on (default: from config)")
	serveCmd.Flags().BoolVar(&serveFlags.events, "events", false, "Record snapshots in embedded NATS (default: from config)")
	serveCmd.Flags().BoolVar(&serveFlags.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	lang, err := i18n.ParseLanguage(cfg.Language)
	if err != nil {
		return err
	}
	listen := cfg.Listen
	if serveFlags.listen != "" {
		listen = serveFlags.listen
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := recommend.New(cfg.APIURL, cfg.Timeout)

	var observers []wizard.Observer
	var opts []httpapi.Option

	if serveFlags.events || cfg.Events {
		storeDir, err := os.MkdirTemp("", "agriwizard-nats-")
		if err != nil {
			return fmt.Errorf("failed to create nats store dir: %w", err)
		}
		defer func() { _ = os.RemoveAll(storeDir) }()

		ns, err := nats.StartEmbedded(storeDir)
		if err != nil {
			return fmt.Errorf("failed to start nats: %w", err)
		}
		nc, err := nats.ConnectInProcess(ns)
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer func() {
			if err := nats.Shutdown(nc, ns); err != nil {
				logger.Warn("nats shutdown: %v", err)
			}
		}()

		bus, err := nats.NewBus(ctx, nc)
		if err != nil {
			return err
		}
		observers = append(observers, bus.Observer())
		opts = append(opts, httpapi.WithSnapshotLog(bus))
		logger.Info("Snapshot events enabled")
	}

	hookCfg, err := hooks.LoadConfig(".")
	if err != nil {
		return err
	}
	runner := hooks.NewRunner(ctx, hookCfg, ".", func(s string) {
		logger.Info("on_result hook: %s", s)
	})
	defer runner.Wait()
	observers = append(observers, runner.Observer())

	registry := wizard.NewRegistry(client, lang, observers...)
	defer registry.Close()

	if !serveFlags.noMCP {
		mcp := mcpserver.New(registry, version)
		opts = append(opts, httpapi.WithMount("/mcp", mcp.Handler()))
	}

	srv := httpapi.New(registry, client, opts...)
	defer srv.Close()

	out := cmd.OutOrStdout()
	return srv.Serve(ctx, listen, func(addr net.Addr) {
		fmt.Fprintf(out, "Serving on http://%s (backend %s)\n", addr, client.BaseURL())
	})
}
