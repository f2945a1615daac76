package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/analytics"
	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/session"
	"storefront_back_end/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "storefront", cfg.OtelEndpoint)
	if err != nil {
		log.Printf("⚠️ Traçage désactivé: %v", err)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Store %s indisponible: %v", cfg.StoreBackend, err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("❌ Migration: %v", err)
	}

	events, err := openEvents(ctx, cfg, db)
	if err != nil {
		log.Fatalf("❌ Analytics %s indisponible: %v", cfg.AnalyticsBackend, err)
	}

	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️ Redis indisponible, cache et pub/sub locaux: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var images *services.ImageStore
	if cfg.MinioEndpoint != "" {
		client, err := database.ConnectMinIO(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("⚠️ MinIO indisponible, URLs d'images brutes: %v", err)
		} else {
			images = services.NewImageStore(client, cfg.MinioBucket, cfg.ImageURLTTL)
		}
	}

	recorder := analytics.NewRecorder(events, cfg.EventTimeout)
	bus := cache.NewCartBus(redisClient)

	registry := session.NewRegistry(session.Dependencies{
		Orders:  db,
		Tracker: recorder,
		Notifier: services.NewMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}),
		Bus: bus,
	}, cfg.SessionIdleTTL)
	go registry.Run(ctx, time.Hour)

	h := &handlers.Handler{
		Catalog:   catalog.NewService(db, cache.NewProductCache(redisClient, cfg.ProductCacheTTL), images),
		Sessions:  registry,
		Recorder:  recorder,
		Analytics: analytics.NewAggregator(events, cfg.Location()),
		Bus:       bus,
	}

	secret := cfg.SessionSecret
	if secret == "" {
		log.Println("⚠️ SESSION_SECRET manquant : clé temporaire, les sessions ne survivront pas au redémarrage")
		secret = uuid.NewString() + uuid.NewString()
	}

	r := gin.Default()
	routes.RegisterRoutes(r, h, routes.Options{
		Sessions:    middleware.NewCookieStore(secret, false),
		Redis:       redisClient,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("🚀 Serveur storefront lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt HTTP: %v", err)
	}
	registry.Close()
	recorder.Wait()
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("⚠️ Arrêt traçage: %v", err)
		}
	}
	log.Println("✅ Serveur arrêté")
}
