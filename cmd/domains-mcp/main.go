package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domainscope/domains-mcp"
	"github.com/domainscope/domains-mcp/servers/domains"
)

const (
	defaultPort = 8000

	ssePath     = "/mcp"
	messagePath = "/mcp/messages"
)

var serverInfo = mcp.Info{
	Name:    "domains-mcp",
	Version: "0.1.0",
}

func main() {
	stdio := flag.Bool("stdio", false, "serve over stdin/stdout instead of HTTP")
	assetsDir := flag.String("assets", "assets", "directory holding widget html bundles")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	catalog, err := domains.NewCatalog(*assetsDir)
	if err != nil {
		logger.Error("Failed to build catalog", slog.String("err", err.Error()))
		os.Exit(1)
	}
	server := domains.NewServer(catalog, domains.WithLogger(logger))

	if *stdio || !stdinIsTerminal() {
		runStdIO(server, logger)
		return
	}
	runSSE(server, logger)
}

func runStdIO(server domains.Server, logger *slog.Logger) {
	transport := mcp.NewStdIO(os.Stdin, os.Stdout)
	srv := mcp.NewServer(serverInfo, transport,
		mcp.WithToolServer(server),
		mcp.WithResourceServer(server),
		mcp.WithServerLogger(logger),
	)
	go srv.Serve()

	waitForSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", slog.String("err", err.Error()))
	}
}

func runSSE(server domains.Server, logger *slog.Logger) {
	port := listenPort()

	transport := mcp.NewSSEServer(messagePath)
	srv := mcp.NewServer(serverInfo, transport,
		mcp.WithToolServer(server),
		mcp.WithResourceServer(server),
		mcp.WithServerLogger(logger),
	)
	go srv.Serve()

	mux := http.NewServeMux()
	mux.Handle("GET "+ssePath, transport.HandleSSE())
	mux.Handle("POST "+messagePath, transport.HandleMessage())
	mux.Handle("OPTIONS "+ssePath, preflightHandler())
	mux.Handle("OPTIONS "+messagePath, preflightHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	waitForSignal()
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Session shutdown failed", slog.String("err", err.Error()))
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.String("err", err.Error()))
	}
}

// preflightHandler answers CORS preflight requests for browser-based clients.
func preflightHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "content-type")
		w.WriteHeader(http.StatusNoContent)
	})
}

// listenPort reads the PORT environment variable, falling back to the default
// when it is unset or not a number.
func listenPort() int {
	v := os.Getenv("PORT")
	if v == "" {
		return defaultPort
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 {
		return defaultPort
	}
	return port
}

// stdinIsTerminal reports whether stdin is attached to a terminal. A piped
// stdin selects the stdio transport even without the flag.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
