package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/internal/adapters/file"
	"github.com/aretw0/bindery/internal/adapters/redis"
	httpAdapter "github.com/aretw0/bindery/pkg/adapters/http"
	"github.com/aretw0/bindery/pkg/observability"
	"github.com/aretw0/bindery/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes context roots over a JSON API, with snapshot persistence on disk or in
Redis and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFor(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		redisAddr, _ := cmd.Flags().GetString("redis")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		dir, _ := cmd.Flags().GetString("dir")
		format, _ := cmd.Flags().GetString("format")

		metrics := observability.NewCollector()
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			metrics,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		opts := []bindery.Option{
			bindery.WithLogger(logger),
			bindery.WithLifecycleHooks(metrics.Hooks()),
		}
		if maxDepth > 0 {
			opts = append(opts, bindery.WithMaxDepth(maxDepth))
		}
		mws, err := storeMiddlewares(cmd)
		if err != nil {
			return err
		}
		if redisAddr != "" {
			store := redis.New(redisAddr, redisPassword, redisDB, redis.WithTTL(ttl))
			defer store.Close()
			opts = append(opts,
				bindery.WithStore(middleware.Chain(store, mws...)),
				bindery.WithLocker(redis.NewLocker(store.Client(), redis.DefaultPrefix)),
			)
			logger.Info("using redis snapshot store", "addr", redisAddr, "db", redisDB)
		} else {
			store := file.New(dir, file.WithFormat(file.Format(format)))
			opts = append(opts, bindery.WithStore(middleware.Chain(store, mws...)))
			logger.Info("using file snapshot store", "dir", dir, "format", format)
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(bindery.New(opts...), httpAdapter.WithLogger(logger), httpAdapter.WithMetrics(reg)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting Bindery Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("start shutdown", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bindery Server stopped gracefully")
			return nil
		}
	},
}

// storeMiddlewares builds the masking and encryption layers requested by
// flags. The key falls back to BINDERY_ENCRYPTION_KEY.
func storeMiddlewares(cmd *cobra.Command) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	patterns, _ := cmd.Flags().GetStringSlice("mask")
	if len(patterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}

	rawKey, _ := cmd.Flags().GetString("encryption-key")
	if rawKey == "" {
		rawKey = os.Getenv("BINDERY_ENCRYPTION_KEY")
	}
	if rawKey != "" {
		key, err := hex.DecodeString(rawKey)
		if err != nil {
			return nil, fmt.Errorf("encryption key must be hex encoded: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for snapshots and locks (file store when empty)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
	serveCmd.Flags().Duration("ttl", 0, "Snapshot expiration in Redis (0 keeps them)")
	serveCmd.Flags().String("dir", "", "Snapshot directory for the file store (default .bindery/snapshots)")
	serveCmd.Flags().String("format", string(file.FormatJSON), "Snapshot file format (json, yaml)")
	serveCmd.Flags().StringSlice("mask", nil, "Key patterns whose values are masked in snapshots")
	serveCmd.Flags().String("encryption-key", "", "Hex encoded AES-256 key encrypting snapshots at rest")
}
