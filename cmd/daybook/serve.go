package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/unowned-ai/daybook/pkg/config"
	"github.com/unowned-ai/daybook/pkg/entries"
	"github.com/unowned-ai/daybook/pkg/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daybook HTTP server",
	Long: `Serve the entry detail pages and the JSON API.

Configuration comes from daybook.yaml (found in the working directory or a parent,
or named by DAYBOOK_CONFIG) and environment variables such as SERVER_PORT, DB_DRIVER,
DB_URL, REDIS_ADDR, and KAFKA_BROKERS. Redis caching and Kafka events are enabled
only when their addresses are configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app := fx.New(serveOptions(cfg)...)
		if err := app.Start(cmd.Context()); err != nil {
			return err
		}

		sig := <-app.Wait()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			return err
		}
		if sig.ExitCode != 0 {
			return fmt.Errorf("server stopped with exit code %d", sig.ExitCode)
		}
		return nil
	},
}

// serveOptions assembles the server application for cfg.
func serveOptions(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newStore,
			newCache,
			newPublisher,
			newLoader,
			newHTTPServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		fx.Invoke(registerServerHooks),
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	return logger
}

func newStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (entries.Store, error) {
	store, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) entries.Cache {
	c := openCache(cfg)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The loader reads through to the store when the cache is down
			if err := c.Ping(ctx); err != nil {
				logger.Warn("Cache unreachable, serving from the store", "addr", cfg.Cache.Addr, "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (entries.Publisher, error) {
	pub, err := openPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func newLoader(store entries.Store, c entries.Cache, pub entries.Publisher, logger *slog.Logger) *entries.Loader {
	return entries.NewLoader(store,
		entries.WithCache(c),
		entries.WithPublisher(pub),
		entries.WithLogger(logger),
	)
}

func newHTTPServer(cfg *config.Config, loader *entries.Loader, logger *slog.Logger) *server.Server {
	return server.New(loader, logger, server.Options{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, srv *server.Server, logger *slog.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Bind before returning so a taken port fails the start
			ln, err := srv.Listen()
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil {
					logger.Error("Server failed", "error", err)
					shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			logger.Info("Server exited gracefully")
			return nil
		},
	})
}
