package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/devconnect/realtime/pkg/auth"
	"github.com/devconnect/realtime/pkg/config"
	"github.com/devconnect/realtime/pkg/core"
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	mirror := newRedisMirror(rdb, log)

	// Each gateway instance publishes under its own origin and consumes with
	// a unique group so every instance sees the whole stream.
	instanceID := uuid.NewString()
	publisher := relay.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, instanceID)
	defer publisher.Close()
	consumer := relay.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "gateway-"+instanceID, instanceID, log)
	defer consumer.Close()

	registry := core.NewRegistry(auth.NewVerifier(cfg.JWTSecret), st, cfg.SendBuffer)
	index := core.NewIndex(st)
	index.Hooks(mirror.ChannelJoined, mirror.ChannelLeft)
	registry.OnRemove(index.OnDisconnect)
	tracker := core.NewTracker(registry, mirror, log)
	router := core.NewRouter(registry, index, st, publisher, cfg.HistoryLimit, log)
	typing := core.NewTypingRelay(registry, index, publisher, log)

	go tracker.Run(ctx)
	go func() {
		if err := consumer.Run(ctx, func(evt relay.Event) {
			router.DeliverLocal(evt.ChannelID, evt.Payload)
		}); err != nil && ctx.Err() == nil {
			log.Error("relay consumer stopped", "error", err)
		}
	}()

	gw := &Gateway{
		registry: registry,
		index:    index,
		router:   router,
		typing:   typing,
		validate: validator.New(),
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.serveWs)

	server := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("gateway listening", "addr", cfg.GatewayAddr, "instance", instanceID)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("gateway server", "error", err)
		os.Exit(1)
	}
}
