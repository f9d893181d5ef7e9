package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/ai"
	"rental-marketplace/internal/config"
	"rental-marketplace/internal/database"
	"rental-marketplace/internal/email"
	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/handler"
	"rental-marketplace/internal/logger"
	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/mongo"
	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/realtime"
	"rental-marketplace/internal/repository"
	"rental-marketplace/internal/scheduler"
	"rental-marketplace/internal/service"
	"rental-marketplace/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	mongoClient, err := mongo.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	rdb, err := store.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	// Storage.
	listingRepo := repository.NewListingRepository(db)
	photoRepo := repository.NewPhotoRepository(mongoClient, cfg.Mongo.Database)
	profileRepo := repository.NewProfileRepository(db)
	neighborhoodRepo := repository.NewNeighborhoodRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	savedRepo := repository.NewSavedListingRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	drafts := store.NewDraftStore(rdb, cfg.Redis.DraftTTL)
	tokens := store.NewTokenStore(rdb)

	// External providers.
	gateway := payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.PriceID, cfg.Payment.WebhookSecret)
	generator := ai.NewGenerator(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
	geocoder := geo.NewClient(cfg.Geo.BaseURL, cfg.Geo.AccessToken)
	mailer := email.NewSender(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From, log)

	hub := realtime.NewHub(log)
	metrics.RegisterGauge("realtime_channels", "Open realtime notification channels.", func() float64 {
		return float64(hub.Count())
	})
	tm := middleware.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Services.
	notifier := service.NewNotifier(messageRepo, applicationRepo, hub, log)
	authSvc := service.NewAuthService(profileRepo, tokens, tm, mailer, hub, cfg.PublicURL, log)
	listingSvc := service.NewListingService(listingRepo, photoRepo, geocoder, log)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, log)
	submissionSvc := service.NewSubmissionService(drafts, listingRepo, subscriptionRepo, profileRepo,
		gateway, authSvc, geocoder, cfg.PublicURL, log)
	paymentSvc := service.NewPaymentService(gateway, subscriptionRepo, listingRepo, profileRepo,
		mailer, cfg.PlanDuration(), cfg.PublicURL, log)
	applicationSvc := service.NewApplicationService(applicationRepo, listingRepo, profileRepo,
		mailer, notifier, cfg.PublicURL, log)
	messageSvc := service.NewMessageService(messageRepo, listingRepo, profileRepo,
		mailer, notifier, cfg.PublicURL, log)

	sched, err := scheduler.New(cfg.ExpirySchedule, subscriptionSvc, log)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start()

	limiter := middleware.NewRateLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst, log)
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Cleanup(10 * time.Minute)
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware())
	r.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", middleware.Authenticate(tm, tokens), limiter.Handler())

	// 1. Public browsing plus owner routes guarded inside each handler.
	(&handler.ListingHandler{Listings: listingSvc, Subscriptions: subscriptionSvc, Payments: paymentSvc, Log: log}).RegisterRoutes(api)
	(&handler.PhotoHandler{Listings: listingSvc, Log: log}).RegisterRoutes(api)
	(&handler.NeighborhoodHandler{Neighborhoods: service.NewNeighborhoodService(neighborhoodRepo), Log: log}).RegisterRoutes(api)
	(&handler.AuthHandler{Auth: authSvc, Log: log}).RegisterRoutes(api)
	(&handler.SubmissionHandler{Submissions: submissionSvc, Log: log}).RegisterRoutes(api)
	(&handler.WebhookHandler{Payments: paymentSvc, Log: log}).RegisterRoutes(api)
	(&handler.AssistHandler{Assist: service.NewAssistService(generator, geocoder, neighborhoodRepo, log), Log: log}).RegisterRoutes(api)

	// 2. Signed-in users.
	(&handler.ApplicationHandler{Applications: applicationSvc, Log: log}).RegisterRoutes(api)
	(&handler.MessageHandler{Messages: messageSvc, Log: log}).RegisterRoutes(api)
	(&handler.SavedHandler{Saved: service.NewSavedService(savedRepo, listingRepo), Log: log}).RegisterRoutes(api)
	(&handler.RealtimeHandler{
		Hub:      hub,
		Notifier: notifier,
		Upgrader: websocket.Upgrader{CheckOrigin: handler.CheckOrigin(cfg.PublicURL)},
		Log:      log,
	}).RegisterRoutes(api)

	// 3. Admins.
	(&handler.AdminHandler{Admin: service.NewAdminService(listingRepo, listingSvc, profileRepo), Log: log}).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Rental marketplace running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	sched.Stop(shutdownCtx)
}
