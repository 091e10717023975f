package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/alert"
	"github.com/quocanhngo/otpwatch/internal/config"
	"github.com/quocanhngo/otpwatch/internal/handler"
	"github.com/quocanhngo/otpwatch/internal/middleware"
	"github.com/quocanhngo/otpwatch/internal/repository"
	"github.com/quocanhngo/otpwatch/internal/scheduler"
	"github.com/quocanhngo/otpwatch/internal/service"
	"github.com/quocanhngo/otpwatch/internal/telemetry"
	"github.com/quocanhngo/otpwatch/pkg/auth"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
	"github.com/quocanhngo/otpwatch/pkg/logger"
	"github.com/quocanhngo/otpwatch/pkg/mailer"
	"github.com/quocanhngo/otpwatch/pkg/netprobe"
	"github.com/quocanhngo/otpwatch/pkg/notification"
	"github.com/quocanhngo/otpwatch/pkg/sms"
	"github.com/quocanhngo/otpwatch/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           OTP Watch API
// @version         1.0
// @description     Phone OTP authentication with self-monitoring health telemetry and critical alerting.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey HealthAPIKey
// @in header
// @name X-API-Key

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	defer func() { _ = log.Sync() }()
	log.Info("🚀 Starting OTP server", zap.String("env", cfg.App.Env))

	ctx := context.Background()

	// ==================== Document Store ====================
	var (
		store       docstore.Store
		firebaseApp *firebase.App
	)
	if cfg.Store.Driver == "memory" {
		store = docstore.NewMemoryStore()
		log.Warn("⚠️  Using in-memory document store, data is lost on restart")
	} else {
		app, err := docstore.NewFirebaseApp(ctx, docstore.FirestoreConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			CredentialsJSON: cfg.Firebase.CredentialsJSON,
		})
		if err != nil {
			log.Fatal("❌ Failed to initialize Firebase", zap.Error(err))
		}
		fs, err := docstore.NewFirestore(ctx, app)
		if err != nil {
			log.Fatal("❌ Failed to connect to Firestore", zap.Error(err))
		}
		firebaseApp, store = app, fs
		log.Info("✅ Connected to Firestore", zap.String("project", cfg.Firebase.ProjectID))
	}

	// ==================== Redis ====================
	var (
		rdb         *redis.Client
		throttle    service.Throttler
		revoker     service.Revoker
		revocations middleware.RevocationChecker
	)
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal("❌ Failed to connect to Redis", zap.Error(err))
		}
		blacklist := repository.NewTokenBlacklist(rdb)
		throttle = repository.NewOTPThrottle(rdb, cfg.OTP.RateLimit, cfg.OTP.RateWindow)
		revoker, revocations = blacklist, blacklist
		log.Info("✅ Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		log.Warn("⚠️  Redis not configured (OTP throttling and token revocation disabled)")
	}

	// ==================== Notifications ====================
	var notifiers []notification.Notifier
	if webhook := notification.NewDiscordWebhook(cfg.Alert.DiscordWebhookURL, 10*time.Second); webhook != nil {
		notifiers = append(notifiers, webhook)
		log.Info("📣 Discord webhook configured")
	} else {
		log.Warn("⚠️  Discord webhook not configured, reports and alerts will only be logged")
	}
	if mail := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		To:       cfg.SMTP.To,
	}); mail != nil {
		notifiers = append(notifiers, mail)
		log.Info("📧 SMTP configured", zap.String("host", cfg.SMTP.Host+":"+cfg.SMTP.Port), zap.Strings("to", cfg.SMTP.To))
	}
	if firebaseApp != nil && cfg.Alert.FCMTopic != "" {
		pusher, err := notification.NewTopicPusher(ctx, firebaseApp, cfg.Alert.FCMTopic)
		if err != nil {
			log.Warn("⚠️  FCM not available", zap.Error(err))
		} else {
			notifiers = append(notifiers, pusher)
			log.Info("📲 FCM alerts enabled", zap.String("topic", cfg.Alert.FCMTopic))
		}
	}
	notifier := notification.NewFanout(notifiers...)

	// ==================== SMS Gateway ====================
	smsClient := sms.New(sms.Config{
		APIURL:          cfg.SMS.APIURL,
		Username:        cfg.SMS.Username,
		APIKey:          cfg.SMS.APIKey,
		SenderName:      cfg.SMS.SenderName,
		TransactionType: cfg.SMS.TransactionType,
		Timeout:         cfg.SMS.Timeout,
	})
	if !smsClient.Configured() {
		log.Warn("⚠️  SMS gateway credentials missing, sends will fail")
	}

	// ==================== Log Archive (MinIO) ====================
	var archiver storage.Archiver
	if cfg.MinIO.Enabled() {
		minioArchiver, err := storage.NewMinIO(ctx, storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, log)
		if err != nil {
			log.Warn("⚠️  MinIO not available (health logs are purged without archiving)", zap.Error(err))
		} else {
			archiver = minioArchiver
			log.Info("✅ Connected to MinIO", zap.String("bucket", cfg.MinIO.Bucket))
		}
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	// Repositories
	otpRepo := repository.NewOTPRepository(store)
	tokenRepo := repository.NewRefreshTokenRepository(store)
	profileRepo := repository.NewProfileRepository(store)
	healthLogs := repository.NewHealthLogRepository(store)

	// Health telemetry
	dispatcher := alert.NewDispatcher(alert.Config{
		Notifier:   notifier,
		SMS:        smsClient,
		Logs:       healthLogs,
		AdminPhone: cfg.Alert.AdminPhone,
		Timeout:    cfg.Alert.Timeout,
		Cooldown:   cfg.Alert.Cooldown,
		Logger:     log.Named("alert"),
	})
	monitor := telemetry.NewMonitor(telemetry.Config{
		Logs:      healthLogs,
		Alerter:   dispatcher,
		Notifier:  notifier,
		Prober:    netprobe.NewIPProbe(cfg.Health.IPProbeURL, 5*time.Second),
		Archiver:  archiver,
		Retention: cfg.Health.Retention(),
		Logger:    log.Named("health"),
	})

	// Services
	authService := service.NewAuthService(service.AuthDeps{
		OTPRepo:     otpRepo,
		TokenRepo:   tokenRepo,
		ProfileRepo: profileRepo,
		JWT:         jwtManager,
		SMS:         smsClient,
		Observer:    monitor,
		Throttle:    throttle,
		Revoker:     revoker,
		Logger:      log.Named("auth"),
	}, service.AuthConfig{
		OTPExpiry:       cfg.OTP.Expiry,
		MessageTemplate: cfg.SMS.MessageTemplate,
	})

	// ==================== Scheduler ====================
	sched := scheduler.New(log.Named("scheduler"), time.Local)
	jobs := []scheduler.Job{
		{
			Name: "hourly_report",
			Spec: cfg.Schedule.ReportSpec,
			Run: func(ctx context.Context) error {
				_, err := monitor.EmitHourlyReport(ctx)
				return err
			},
		},
		{
			Name:    "purge_health_logs",
			Spec:    cfg.Schedule.PurgeSpec,
			Timeout: 10 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := monitor.PurgeOldLogs(ctx)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			log.Fatal("❌ Failed to schedule job", zap.Error(err))
		}
	}
	sched.Start()

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Every route below feeds the request and error ledgers
	router.Use(middleware.RequestTracker(monitor))

	handler.Routes{
		OTP:     handler.NewOTPHandler(authService),
		Session: handler.NewSessionHandler(authService),
		Health:  handler.NewHealthHandler(monitor),
		Auth:    middleware.AuthMiddleware(jwtManager, revocations),
		APIKey:  middleware.APIKeyMiddleware(cfg.Health.APIKey, log),
	}.Register(router)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server failed", zap.Error(err))
		}
	}()

	log.Info("🌐 OTP server running", zap.String("addr", "http://0.0.0.0:"+cfg.App.Port))
	log.Info("📋 API docs", zap.String("url", "http://0.0.0.0:"+cfg.App.Port+"/swagger/index.html"))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Server forced to shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	dispatcher.Wait(shutdownCtx)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn("⚠️  Redis close failed", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		log.Warn("⚠️  Document store close failed", zap.Error(err))
	}
	log.Info("✅ Server exited gracefully")
}
