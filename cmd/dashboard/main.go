package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xela07ax/statusboard/internal/dashboard"
	"github.com/xela07ax/statusboard/internal/dashboard/handler"
	"github.com/xela07ax/statusboard/internal/dashboard/server"
	"github.com/xela07ax/statusboard/internal/dashboard/service"
	"github.com/xela07ax/statusboard/internal/feed"
	"github.com/xela07ax/statusboard/internal/infra"
	"github.com/xela07ax/statusboard/internal/notify"
	"github.com/xela07ax/statusboard/internal/store"
)

func main() {
	flags := pflag.NewFlagSet("dashboard", pflag.ExitOnError)
	flags.String("config", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	flags.String("dashboard.control_addr", ":12345", "control listener address (monitor updates)")
	flags.String("dashboard.web_addr", ":8080", "web listener address (operator dashboard)")
	flags.String("notify.addr", "127.0.0.1:54321", "monitor notification listener address")
	flags.String("metrics.addr", "", "prometheus endpoint address, empty disables")
	flags.String("redis.addr", "", "redis address for the status event feed, empty disables")
	flags.String("mqtt.broker", "", "mqtt broker mirroring the event feed (tcp://host:1883), empty disables")
	flags.String("logger.level", "info", "log level: debug, info, warn, error")
	_ = flags.Parse(os.Args[1:])

	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Контекст жизненного цикла: SIGINT/SIGTERM останавливают диспетчер
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Состояние и метрики
	st := store.New(cfg.Dashboard.SystemStatus, cfg.Dashboard.Devices, cfg.Dashboard.Vars)
	reg := prometheus.NewRegistry()
	metrics := dashboard.NewMetrics(reg, st.ActiveConnections)

	// 3. Лента событий (опционально): Redis и/или MQTT
	var sinks feed.MultiSink
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, events will be dropped until it recovers",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		sinks = append(sinks, feed.NewRedisSink(rdb))
	}
	if cfg.MQTT.Broker != "" {
		client, err := infra.ConnectMQTT(cfg.MQTT, logger)
		if err != nil {
			logger.Warn("mqtt mirror disabled", zap.Error(err))
		} else {
			defer client.Disconnect(1000)
			sinks = append(sinks, feed.NewMQTTSink(client, cfg.MQTT.Topic, cfg.MQTT.QoS, cfg.MQTT.PublishTimeout))
		}
	}

	var events service.EventPublisher = feed.Nop{}
	if len(sinks) > 0 {
		// События уходят в приёмники пачками из фонового воркера
		eventFeed := feed.New(sinks, logger)
		eventFeed.Start()
		defer eventFeed.Stop()
		events = eventFeed
	}

	// 4. Слои (Dependency Injection)
	notifier := notify.NewClient(cfg.Notify.Addr, cfg.Notify.Timeout)
	svc := service.NewStatusService(st, notifier, events, metrics, logger)
	router := server.NewRouter(
		handler.NewControlHandler(svc),
		handler.NewWebHandler(svc, logger),
		metrics,
		logger,
	)
	srv := server.NewServer(server.ConfigFrom(cfg), st, router, metrics, logger)

	// 5. Бинд обоих портов: без них процессу незачем жить
	if err := srv.Listen(ctx); err != nil {
		logger.Fatal("failed to bind listeners", zap.Error(err))
	}

	logger.Info("dashboard started",
		zap.String("control", cfg.Dashboard.ControlAddr),
		zap.String("web", cfg.Dashboard.WebAddr),
		zap.String("notify", notifier.Addr()))

	// 6. Диспетчер и метрики до сигнала или первой ошибки
	grp, groupCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return infra.ServeMetrics(groupCtx, cfg.Metrics.Addr, reg, logger)
	})
	grp.Go(func() error {
		if err := srv.Serve(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := grp.Wait(); err != nil {
		logger.Error("dashboard stopped with error", zap.Error(err))
		return
	}
	logger.Info("dashboard exited properly")
}
