package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/profile-assistant/internal/chat"
	"github.com/suPer8Hu/profile-assistant/internal/common"
	"github.com/suPer8Hu/profile-assistant/internal/config"
	"github.com/suPer8Hu/profile-assistant/internal/db"
	"github.com/suPer8Hu/profile-assistant/internal/httpapi"
	"github.com/suPer8Hu/profile-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/profile-assistant/internal/observability"
	"github.com/suPer8Hu/profile-assistant/internal/profile"
	"github.com/suPer8Hu/profile-assistant/internal/session"
	"github.com/suPer8Hu/profile-assistant/internal/store/rabbitmq"
	"github.com/suPer8Hu/profile-assistant/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// transient session storage: redis when configured, process memory otherwise
	var storage session.TransientStorage = session.NewMemoryStorage()
	if cfg.RedisAddr != "" {
		rds, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer rds.Close()
		storage = rds
	}

	opts := chat.Options{
		RevealInterval: cfg.RevealInterval,
		ProfileKey:     cfg.ProfileKey,
	}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit connect: %v", err)
		}
		defer pub.Close()
		opts.Events = pub
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	opts.Observer = metrics

	profiles := profile.NewStore(gdb)
	hub := chat.NewHub(profiles, chat.NewRepo(gdb), opts, cfg.SessionIdleTimeout)
	defer hub.Close()
	hub.StartJanitor(ctx, time.Minute)

	sessions := session.NewManager(storage, common.NewULID)
	h := handlers.NewHandler(sessions, hub, profiles, cfg.ProfileKey, metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// stop in-flight reveals so streaming handlers return before the deadline
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
