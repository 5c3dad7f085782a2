package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fystack/settlement-engine/internal/consumer"
	"github.com/fystack/settlement-engine/internal/engine"
	"github.com/fystack/settlement-engine/pkg/common/config"
	"github.com/fystack/settlement-engine/pkg/common/logger"
	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/infra"
	"github.com/fystack/settlement-engine/pkg/kvstore"
	"github.com/fystack/settlement-engine/pkg/retry"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "settlementd",
		Short: "Epoch settlement and claims daemon",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the settlement daemon",
		RunE:  func(*cobra.Command, []string) error { return runDaemon() },
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [prefix]",
		Short: "Dump stored entities as JSON (pool, round, prediction, profile)",
		Args:  cobra.ExactArgs(1),
		RunE:  func(_ *cobra.Command, args []string) error { return runDump(args[0]) },
	}

	root.AddCommand(runCmd, dumpCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func runDaemon() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogger()
	logger.Info("Config loaded", "environment", cfg.Environment)

	store, err := kvstore.Open(cfg.Badger.Directory, cfg.Badger.Prefix)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	clock := engine.ScheduleClock{
		Genesis:       time.Unix(cfg.Engine.GenesisUnix, 0).UTC(),
		TickInterval:  time.Duration(cfg.Engine.TickIntervalMillis) * time.Millisecond,
		TicksPerEpoch: cfg.Engine.TicksPerEpoch,
	}

	var nc *nats.Conn
	err = retry.Exponential(func() error {
		var connErr error
		nc, connErr = infra.GetNATSConnection(cfg.NATS, cfg.Environment)
		return connErr
	}, retry.ExponentialConfig{
		InitialInterval: 2 * time.Second,
		MaxElapsedTime:  time.Minute,
		OnRetry: func(err error, next time.Duration) {
			logger.Warn("NATS connect failed, retrying", "err", err, "next", next)
		},
	})
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer nc.Close()

	emitter := events.NewEmitter(nc, cfg.NATS.SubjectPrefix)
	defer emitter.Close()

	eng := engine.New(store, clock, emitter)
	if err := eng.Bootstrap(cfg.Engine); err != nil {
		return fmt.Errorf("bootstrap engine: %w", err)
	}
	logger.Info("Engine bootstrapped", "authority", cfg.Engine.Authority)

	manager, err := infra.NewNATsMessageQueueManager(
		infra.ResolveCommandQueue,
		[]string{infra.ResolveCommandQueue + ".>"},
		nc,
	)
	if err != nil {
		return fmt.Errorf("create queue manager: %w", err)
	}
	queue, err := manager.NewMessageQueue(consumer.ConsumerName)
	if err != nil {
		return fmt.Errorf("create command queue: %w", err)
	}

	cons := consumer.New(eng, queue, cfg.Engine.Authority)
	if err := cons.Start(); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer cons.Stop()

	logger.Info("Settlement daemon is running... Press Ctrl+C to stop")
	waitForShutdown()
	logger.Info("Settlement daemon stopped")
	return nil
}

func runDump(prefix string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogger()

	store, err := kvstore.Open(cfg.Badger.Directory, cfg.Badger.Prefix)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	pairs, err := store.List(prefix)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		var pretty json.RawMessage = pair.Value
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			out = pair.Value
		}
		fmt.Printf("%s\n%s\n", pair.Key, out)
	}
	fmt.Printf("%d entries\n", len(pairs))
	return nil
}

func waitForShutdown() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
