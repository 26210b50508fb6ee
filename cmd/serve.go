package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/stereogram/internal/server"
	"github.com/kiesman99/stereogram/internal/stereogram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the stereogram API",
	Long: `Start an HTTP server that provides a REST API for stereogram generation.

Depth maps (and optional tiles) are uploaded as multipart form data and the
stereogram is returned as PNG. Results are cached in Redis when --redis-addr
is set and on disk otherwise.

Examples:
  # Start server on default port 8080
  stereogram serve

  # Start server on custom port
  stereogram serve --port 3000

  # Share cached results between instances
  stereogram serve --bind 0.0.0.0 --redis-addr localhost:6379

  # Try it
  curl -F depth=@shark.png -F seed=7 http://localhost:8080/api/v1/stereogram -o out.png`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().String("redis-addr", "", "redis address for the result cache (host:port)")
	serveCmd.Flags().String("redis-password", "", "redis password")
	serveCmd.Flags().Int("redis-db", 0, "redis database number")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.redis-addr", serveCmd.Flags().Lookup("redis-addr"))
	viper.BindPFlag("server.redis-password", serveCmd.Flags().Lookup("redis-password"))
	viper.BindPFlag("server.redis-db", serveCmd.Flags().Lookup("redis-db"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	c, err := openCache(ctx, viper.GetString("server.redis-addr"))
	if err != nil {
		return err
	}
	runner := stereogram.NewRunner(c, logger)
	defer runner.Close()

	apiServer := server.NewServer(Version, runner, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown once the command context is cancelled
	go func() {
		<-ctx.Done()

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	logger.Info("starting stereogram server", "addr", addr)
	logger.Info("health check", "url", fmt.Sprintf("http://%s%s/health", addr, server.APIPrefix))
	logger.Info("stereogram endpoint", "url", fmt.Sprintf("http://%s%s/stereogram", addr, server.APIPrefix))

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
