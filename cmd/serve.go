package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/eventlog/internal/breaker"
	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/jmehdipour/eventlog/internal/db"
	httpSrv "github.com/jmehdipour/eventlog/internal/http"
	"github.com/jmehdipour/eventlog/internal/kafka"
	"github.com/jmehdipour/eventlog/internal/logger"
	"github.com/jmehdipour/eventlog/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.Init(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = log.Sync() }()

		store, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer store.Close()

		// tables must exist before the listener accepts anything
		if err := db.EnsureSchema(cmd.Context(), store); err != nil {
			return err
		}

		redisClient, err := db.OpenRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		var pub stream.Publisher = stream.Nop{}
		if len(cfg.Kafka.Brokers) > 0 {
			producer := kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.Kafka.Brokers,
				Topic:        cfg.Kafka.Topic,
				WriteTimeout: cfg.Kafka.PublishTimeout,
			})
			defer func() { _ = producer.Close() }()

			br := breaker.New(cfg.Kafka.Breaker.FailThreshold, time.Duration(cfg.Kafka.Breaker.OpenForMs)*time.Millisecond)
			bp := stream.NewBrokerPublisher(producer, br, stream.Options{
				Timeout:   cfg.Kafka.PublishTimeout,
				QueueSize: cfg.Kafka.PublishQueue,
				Log:       log,
			})
			// runs before producer.Close so queued envelopes are written first
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Kafka.PublishTimeout+time.Second)
				defer cancel()
				if err := bp.Close(ctx); err != nil {
					log.Warn("publisher drain", zap.Error(err))
				}
			}()
			pub = bp
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Store:     store,
			Redis:     redisClient,
			Publisher: pub,
			Registry:  reg,
			Log:       log,
		})

		log.Info("config",
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("registration_enabled", cfg.Registration.Enabled),
			zap.Bool("admin_enabled", cfg.Admin.Password != ""),
			zap.Int("retention_days", cfg.Retention.Days),
			zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
			zap.Bool("rate_limit", redisClient != nil && cfg.RateLimit.RPS > 0),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.ListenAddr())
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server exited", zap.Error(err))
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
