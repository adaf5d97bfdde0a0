package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rewards/internal/amqp"
	"rewards/internal/core"
	apphttp "rewards/internal/http"
	"rewards/internal/log"
	"rewards/internal/middleware/idempotency"
	"rewards/internal/seed"
	"rewards/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var (
		port     string
		seedData bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rewards HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, port, seedData, cmd.Flags().Changed("seed"))
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&seedData, "seed", false, "seed sample data into an empty store (overrides SEED_DATA)")

	return cmd
}

func runServe(ctx context.Context, port string, seedFlag, seedFlagSet bool) error {
	a, err := openApp(ctx, log.ComponentApp, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == "" {
		port = a.cfg.Port
	}
	if !seedFlagSet {
		seedFlag = a.cfg.SeedData
	}

	if seedFlag {
		if _, err := seed.SeedIfEmpty(ctx, a.backend.Store, core.DateOf(time.Now())); err != nil {
			return err
		}
	}

	var opts []services.Option
	if a.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			a.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			a.logger.Info("Initialized AMQP client", "exchange", a.cfg.AMQPExchange, "queue", a.cfg.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
		}
	}

	svc, err := a.newService(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			a.logger.Warn("Failed to close rewards service", log.FieldError, err)
		}
	}()

	srvOpts := []apphttp.ServerOption{apphttp.WithLogger(a.logger)}
	if store := newRedisIdempotencyStore(ctx, a); store != nil {
		srvOpts = append(srvOpts, apphttp.WithIdempotencyStore(store, a.cfg.IdempotencyTTL))
	}
	srv := apphttp.NewServer(":"+port, svc, srvOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting rewards server",
			log.FieldOperation, log.OpStartup,
			"port", port,
			log.FieldBackend, a.cfg.DataBackend,
			log.FieldWindow, svc.Window().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Server error", log.FieldError, err, "port", port)
		return err
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// newRedisIdempotencyStore returns nil when Redis is not configured or not
// reachable, leaving the server on its in-process store.
func newRedisIdempotencyStore(ctx context.Context, a *app) *idempotency.RedisStore {
	if a.cfg.RedisAddr == "" {
		return nil
	}

	store := idempotency.NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		a.logger.Warn("Redis unreachable, using in-process idempotency store",
			"redis_addr", a.cfg.RedisAddr, log.FieldError, err)
		_ = store.Close()
		return nil
	}

	a.logger.Info("Using Redis idempotency store", "redis_addr", a.cfg.RedisAddr)
	return store
}

