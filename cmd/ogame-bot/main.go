// Command ogame-bot runs the autonomous fleet-safety and expedition daemon:
// it watches for incoming hostile fleets, saves threatened ships in flight,
// and dispatches repeating expedition missions while the player is away.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ogsentinel/fleetwatch/internal/adapters/remote"
	"github.com/ogsentinel/fleetwatch/internal/application/common"
	"github.com/ogsentinel/fleetwatch/internal/application/decision"
	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/config"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/metrics"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/pidfile"
)

var (
	configPath    string
	pidFilePath   string
	sessionCookie string
)

func main() {
	root := &cobra.Command{
		Use:   "ogame-bot",
		Short: "Autonomous fleet-safety and expedition daemon",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (searches ./, ./configs, /etc/ogame-bot when empty)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and decision loop",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&pidFilePath, "pidfile", "/var/run/ogame-bot.pid", "PID file path for single-instance locking")
	runCmd.Flags().StringVar(&sessionCookie, "session-cookie", os.Getenv("OGB_SESSION_COOKIE"), "authenticated ogame-session cookie value")

	validateCmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate configuration, exiting non-zero on error",
		RunE:  runValidateConfig,
	}

	root.AddCommand(runCmd, validateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Printf("configuration valid: %d expedition(s), %d listener(s)\n", len(cfg.Expeditions), len(cfg.Listeners))
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.MustLoadConfig(configPath)

	pf := pidfile.New(pidFilePath)
	if err := pf.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire pid file: %w", err)
	}
	defer func() {
		if err := pf.Release(); err != nil {
			log.Printf("failed to release pid file: %v", err)
		}
	}()

	if sessionCookie == "" {
		return fmt.Errorf("no session cookie supplied (--session-cookie or OGB_SESSION_COOKIE)")
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		go serveMetrics(cfg.Metrics.Address, collector)
	}

	sinks, err := sinksFromConfig(cfg, logger, collector)
	if err != nil {
		return fmt.Errorf("failed to build notification sinks: %w", err)
	}
	bus := notify.NewBus(sinks...)

	clock := shared.NewRealClock()

	client := remote.New(remote.Config{
		BaseURL:              cfg.API.BaseURL,
		RequestTimeout:       cfg.API.RequestTimeout,
		DelayBetweenRequests: cfg.API.DelayBetweenRequests,
		RequestsPerSecond:    cfg.API.RateLimit.RequestsPerSecond,
		Burst:                cfg.API.RateLimit.Burst,
		MaxRetries:           cfg.API.Retry.MaxAttempts,
		BackoffBase:          cfg.API.Retry.BackoffBase,
		CircuitThreshold:     cfg.API.CircuitBreaker.FailureThreshold,
		CircuitOpenDuration:  cfg.API.CircuitBreaker.OpenDuration,
	}, sessionCookie, clock)

	sched := scheduler.New(clock)

	def := defence.New(clock, sched, bus, defenceOptions(cfg.Bot))
	exp := expeditionsvc.New(bus, expeditionOptions(cfg.Bot), intentsFromConfig(cfg.Expeditions))

	loop := decision.New(sched, bus, client, clock, def, exp, decision.Options{
		SleepMin: cfg.Bot.SleepMin,
		SleepMax: cfg.Bot.SleepMax,
	})

	wakeCtx := common.WithLogger(context.Background(), common.StdLogger{})
	stop := make(chan struct{})
	go sched.Run(func(payload interface{}) error {
		return loop.Consume(wakeCtx, payload)
	}, stop)

	if collector != nil {
		go reportQueueDepth(sched, collector, stop)
	}

	loop.Start()
	fmt.Println("ogame-bot running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	fmt.Println("shutting down")
	loop.Stop()
	close(stop)
	return nil
}

// reportQueueDepth periodically mirrors the scheduler's pending entry count
// into the queue-depth gauge until stop is closed.
func reportQueueDepth(sched *scheduler.Scheduler, collector *metrics.Collector, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			collector.SetSchedulerQueueLength(sched.Len())
		}
	}
}

func serveMetrics(addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
