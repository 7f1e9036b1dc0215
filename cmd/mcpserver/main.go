// Command mcpserver runs an MCP server over stdio or HTTP+SSE, wired to
// a small set of built-in example tools.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhpenta/mcpcore/guard"
	"github.com/mhpenta/mcpcore/session"
	"github.com/mhpenta/mcpcore/tools"
	"github.com/mhpenta/mcpcore/transport"
)

func main() {
	var (
		transportFlag = flag.String("transport", "stdio", "transport to serve on: stdio or http")
		addr          = flag.String("addr", ":8787", "address to listen on (http transport only)")
		policyFlag    = flag.String("policy", "safe-defaults", "security guard policy: permissive, restrictive, safe-defaults, read-only")
		fsRoot        = flag.String("fs-root", ".", "root directory file-access tools are confined to")
		devAuth       = flag.Bool("dev-auth", false, "require the hardcoded development API key on http connections")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	registry := tools.NewRegistry()
	echo, err := tools.NewToolWithError("echo", "Echoes arguments.msg back as a text content item",
		func(ctx context.Context, in struct {
			Msg string `json:"msg"`
		}) (string, error) {
			return in.Msg, nil
		})
	if err != nil {
		log.Fatalf("building echo tool: %v", err)
	}
	if err := registry.Register(echo); err != nil {
		log.Fatalf("registering echo tool: %v", err)
	}

	policy, err := parsePolicy(*policyFlag)
	if err != nil {
		log.Fatalf("invalid policy: %v", err)
	}
	sessionGuard := guard.New(policy, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverCfg := session.ServerConfig{
		Name:     "mcpcore-demo",
		Version:  "0.1.0",
		Registry: registry,
		Guard:    sessionGuard,
		FSRoot:   *fsRoot,
		Logger:   logger,
	}

	switch *transportFlag {
	case "stdio":
		runStdio(ctx, serverCfg, logger)
	case "http":
		runHTTP(ctx, *addr, *devAuth, serverCfg, logger)
	default:
		log.Fatalf("unknown transport %q (want stdio or http)", *transportFlag)
	}

	logger.Info("mcpserver stopped")
}

func parsePolicy(name string) (guard.Policy, error) {
	switch name {
	case "permissive":
		return guard.PermissivePolicy(), nil
	case "restrictive":
		return guard.RestrictivePolicy(), nil
	case "safe-defaults":
		return guard.SafeDefaultsPolicy(), nil
	case "read-only":
		return guard.ReadOnlyPolicy(), nil
	default:
		return guard.Policy{}, errUnknownPolicy(name)
	}
}

type errUnknownPolicy string

func (e errUnknownPolicy) Error() string { return "unknown policy: " + string(e) }

func runStdio(ctx context.Context, cfg session.ServerConfig, logger *slog.Logger) {
	tr := transport.NewStdio(os.Stdin, os.Stdout)
	srv := session.NewServer(tr, cfg)
	logger.Info("serving mcp over stdio")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("stdio session ended", "error", err)
	}
}

func runHTTP(ctx context.Context, addr string, devAuth bool, cfg session.ServerConfig, logger *slog.Logger) {
	var validator transport.APIKeyValidator
	if devAuth {
		validator = transport.NewDEVKeyValidator()
	}

	listener := transport.NewHTTPSSEListener(logger, validator, func(id string, tr transport.Transport) {
		sessionCfg := cfg
		srv := session.NewServer(tr, sessionCfg)
		logger.Info("mcp session connected", "session", id)
		if err := srv.Run(ctx); err != nil {
			logger.Info("mcp session ended", "session", id, "error", err)
		}
	})

	httpServer := &http.Server{Addr: addr, Handler: listener}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving mcp over http+sse", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}
