package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP extraction server",
	Long: `Start an HTTP server that extracts decision records from uploaded images.

Endpoints:
  GET  /health   service status, models and host memory
  POST /extract  multipart field "image"; ?explain=1 adds diagnostics, ?format= picks the encoding
  GET  /ws       websocket: send binary image frames, receive one record per frame
  GET  /metrics  Prometheus metrics

If the models cannot be loaded the server still starts and reports itself as
degraded; extraction requests then fail with 503.

Examples:
  qdocr serve
  qdocr serve --host 127.0.0.1 --port 9000 --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("host", "H", "0.0.0.0", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origin")
	f.Int64("max-upload-mb", 20, "maximum upload size in MB")
	f.Duration("timeout", 60*time.Second, "per-document processing timeout")
	f.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	bindFlags(serveCmd, map[string]string{
		"server.host":             "host",
		"server.port":             "port",
		"server.cors_origin":      "cors-origin",
		"server.max_upload_mb":    "max-upload-mb",
		"server.timeout":          "timeout",
		"server.shutdown_timeout": "shutdown-timeout",
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sc := cfg.ToServerConfig()

	var srv *server.Server
	p, suite, err := buildPipeline()
	if err != nil {
		slog.Error("Models unavailable, serving degraded", "error", err)
		srv = server.NewServer(sc, nil, slog.Default())
	} else {
		defer func() { _ = suite.Close() }()
		sc.RecognizerAvailable = suite.Recognizer != nil
		srv = server.NewServer(sc, p, slog.Default())
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       sc.Timeout + 10*time.Second,
		WriteTimeout:      sc.Timeout + 10*time.Second,
	}
	return serveUntilDone(ctx, httpServer, cfg.Server.ShutdownTimeout)
}

// serveUntilDone runs hs until ctx is canceled or the listener fails, then
// shuts it down gracefully.
func serveUntilDone(ctx context.Context, hs *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutdown requested", "reason", context.Cause(ctx))
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
