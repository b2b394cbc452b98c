package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xela07ax/statusboard/internal/infra"
	"github.com/xela07ax/statusboard/internal/monitor"
	"github.com/xela07ax/statusboard/internal/notify"
)

func main() {
	flags := pflag.NewFlagSet("monitor", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: monitor [flags] [frontend-host [frontend-port]]\n")
		flags.PrintDefaults()
	}
	flags.String("config", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	flags.Duration("monitor.interval", monitor.DefaultInterval, "simulation tick period")
	flags.String("notify.listen_addr", ":54321", "notification listener address")
	flags.String("metrics.addr", "", "prometheus endpoint address, empty disables")
	flags.String("logger.level", "info", "log level: debug, info, warn, error")
	_ = flags.Parse(os.Args[1:])

	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Позиционные аргументы старше конфига: monitor <host> <port>
	if args := flags.Args(); len(args) > 0 {
		cfg.Monitor.FrontendHost = args[0]
		if len(args) > 1 {
			cfg.Monitor.FrontendPort = args[1]
		}
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)

	// 3. Состояние, рассылка, симулятор
	state := monitor.NewState(cfg.Monitor.Devices)
	broadcaster := monitor.NewBroadcaster(cfg.Monitor.FrontendHost, cfg.Monitor.FrontendPort,
		cfg.Monitor.BroadcastTimeout, metrics, logger)
	sim := monitor.NewSimulator(state, broadcaster, metrics, logger, monitor.WithInterval(cfg.Monitor.Interval))

	// 4. Слушатель уведомлений от дашборда
	ln, err := infra.ListenReuse(ctx, cfg.Notify.ListenAddr, cfg.Server.BindAttempts, logger)
	if err != nil {
		logger.Fatal("failed to bind notification listener", zap.Error(err))
	}
	listener := notify.NewListener(sim.HandleNotification, logger, cfg.Notify.ReadTimeout)

	logger.Info("monitor started",
		zap.String("frontend", cfg.Monitor.FrontendHost+":"+cfg.Monitor.FrontendPort),
		zap.String("notify", ln.Addr().String()),
		zap.Int("devices", len(cfg.Monitor.Devices)))

	// 5. Симуляция, слушатель и метрики до сигнала или первой ошибки
	grp, groupCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return infra.ServeMetrics(groupCtx, cfg.Metrics.Addr, reg, logger)
	})
	grp.Go(func() error {
		return listener.Serve(groupCtx, ln)
	})
	grp.Go(func() error {
		sim.Run(groupCtx)
		return nil
	})

	if err := grp.Wait(); err != nil {
		logger.Error("monitor stopped with error", zap.Error(err))
		return
	}
	logger.Info("monitor exited properly")
}
