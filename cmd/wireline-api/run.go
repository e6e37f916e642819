package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apiserver "github.com/wireline-net/wireline/internal/api_server"
	"github.com/wireline-net/wireline/internal/config"
	"github.com/wireline-net/wireline/internal/engine"
	"github.com/wireline-net/wireline/internal/events"
	"github.com/wireline-net/wireline/internal/safety"
	"github.com/wireline-net/wireline/internal/service"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/transport"
	"github.com/wireline-net/wireline/pkg/log"
	"github.com/wireline-net/wireline/pkg/metrics"
	"github.com/wireline-net/wireline/pkg/migrations"
)

const engineDrainTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wireline api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if cfg.Database.Type == "pgsql" {
			if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
				zap.S().Fatalw("running initial migration", "error", err)
			}
		} else {
			if err := s.InitialMigration(ctx); err != nil {
				zap.S().Fatalw("running initial migration", "error", err)
			}
		}

		if cfg.Engine.SeedInventory {
			if err := s.Seed(ctx, "internal"); err != nil {
				zap.S().Fatalw("seeding lab inventory", "error", err)
			}
			zap.S().Info("lab inventory seeded")
		}

		var writer events.Writer = &events.StdoutWriter{}
		if len(cfg.Service.Kafka.Brokers) > 0 {
			writer, err = events.NewKafkaWriter(cfg.Service.Kafka.Brokers, cfg.Service.Kafka.Version, cfg.Service.Kafka.ClientID)
			if err != nil {
				zap.S().Fatalw("creating kafka writer", "error", err)
			}
		}
		producerOpts := []events.ProducerOptions{}
		if cfg.Service.Kafka.Topic != "" {
			producerOpts = append(producerOpts, events.WithOutputTopic(cfg.Service.Kafka.Topic))
		}
		producer := events.NewEventProducer(writer, producerOpts...)

		driver, err := transport.NewDriver(cfg.Engine.Transport)
		if err != nil {
			zap.S().Fatalw("creating transport driver", "error", err)
		}

		eng := engine.New(cfg, s, driver, producer)
		if err := eng.Resume(ctx); err != nil {
			zap.S().Fatalw("recovering persisted jobs", "error", err)
		}
		eng.Start(ctx)

		go engine.NewJanitor(s).Run(ctx)

		metrics.RegisterFleetCollector(s)

		jobService := service.NewJobService(s, eng, safety.NewClassifier(safety.DefaultRuleSet()), producer)
		deviceService := service.NewDeviceService(s)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, jobService, deviceService, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("running metrics server", "error", err)
			}
		}()

		<-ctx.Done()

		drainCtx, drainCancel := context.WithTimeout(context.Background(), engineDrainTimeout)
		defer drainCancel()
		if err := eng.Stop(drainCtx); err != nil {
			zap.S().Warnw("engine did not drain before timeout", "error", err)
		}
		if err := producer.Close(); err != nil {
			zap.S().Warnw("failed to close event producer", "error", err)
		}

		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
