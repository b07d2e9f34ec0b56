package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devconnect/realtime/pkg/config"
	"github.com/devconnect/realtime/pkg/relay"
	"github.com/devconnect/realtime/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.ScyllaKeyspace, cfg.GeneratorID)
	if err != nil {
		log.Error("connect to scylla", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// One durable group shared by all archiver replicas: each message event
	// is processed once across the fleet.
	consumer := relay.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "archiver-group", "", log)
	defer consumer.Close()

	archiver := newArchiver(st, log)

	log.Info("archiver consuming", "topic", cfg.KafkaTopic)
	if err := consumer.Run(ctx, archiver.handle); err != nil && ctx.Err() == nil {
		log.Error("archiver stopped", "error", err)
		os.Exit(1)
	}
}
