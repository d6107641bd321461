package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"podio.org/internal/auth"
	"podio.org/internal/httpapi"
	"podio.org/internal/obs"
	"podio.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()

	secret := os.Getenv("PODIO_AUTH_SECRET")
	if secret == "" {
		log.Fatal("PODIO_AUTH_SECRET is required")
	}

	dsn := os.Getenv("PODIO_PG_DSN")
	if dsn == "" {
		log.Fatal("PODIO_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	codecOpts := []auth.CodecOption{}
	if ttl := envDuration("PODIO_TOKEN_TTL", 0); ttl > 0 {
		codecOpts = append(codecOpts, auth.WithTokenTTL(ttl))
	}
	codec, err := auth.NewTokenCodec(secret, codecOpts...)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	hasher := auth.NewPasswordHasher(envInt("PODIO_BCRYPT_COST", 0))

	authSvc, err := auth.NewService(store, codec, hasher,
		auth.WithAnomalyLogger(func(event string, fields map[string]any) {
			obs.LogEvent("warn", event, fields)
		}))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 30*time.Second)
	if err := authSvc.EnsureBuiltins(bootstrapCtx); err != nil {
		log.Fatalf("ensure builtin permissions: %v", err)
	}
	if admin := os.Getenv("PODIO_ADMIN_USERNAME"); admin != "" {
		email := os.Getenv("PODIO_ADMIN_EMAIL")
		password := os.Getenv("PODIO_ADMIN_PASSWORD")
		if password == "" {
			log.Fatal("PODIO_ADMIN_PASSWORD is required when PODIO_ADMIN_USERNAME is set")
		}
		if err := authSvc.EnsureAdmin(bootstrapCtx, admin, email, password); err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}
	cancelBootstrap()

	api := httpapi.New(authSvc, store, httpapi.ReadyProbe{DB: store.DB()}, version)

	handler := api.Handler()
	handler = httpapi.RateLimit(handler,
		envInt("PODIO_RATE_BURST", 50),
		envInt("PODIO_RATE_PER_SEC", 25))
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)

	addr := os.Getenv("PODIO_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting podio-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, raw)
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s must be a duration, got %q", key, raw)
	}
	return v
}
