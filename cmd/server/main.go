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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"equiplink/internal/config"
	"equiplink/internal/db"
	"equiplink/internal/notification"
	"equiplink/internal/routing"
	"equiplink/internal/security"
	"equiplink/internal/server"
	"equiplink/internal/telemetry/otel"
	"equiplink/internal/tenantdir"

	auditpkg "equiplink/internal/audit"
	auditrepo "equiplink/internal/audit/repository"
	disputehandler "equiplink/internal/dispute/handler"
	disputerepo "equiplink/internal/dispute/repository"
	disputeservice "equiplink/internal/dispute/service"
	equipmenthandler "equiplink/internal/equipment/handler"
	equipmentrepo "equiplink/internal/equipment/repository"
	equipmentservice "equiplink/internal/equipment/service"
	healthhandler "equiplink/internal/health/handler"
	identityhandler "equiplink/internal/identity/handler"
	identityrepo "equiplink/internal/identity/repository"
	identityservice "equiplink/internal/identity/service"
	membershiphandler "equiplink/internal/membership/handler"
	membershiprepo "equiplink/internal/membership/repository"
	membershipservice "equiplink/internal/membership/service"
	paymenthandler "equiplink/internal/payment/handler"
	paymentrepo "equiplink/internal/payment/repository"
	paymentservice "equiplink/internal/payment/service"
	platformopshandler "equiplink/internal/platformops/handler"
	platformopspolicy "equiplink/internal/platformops/policy"
	platformopsrepo "equiplink/internal/platformops/repository"
	platformopsservice "equiplink/internal/platformops/service"
	sessionrepo "equiplink/internal/session/repository"
	servicerequesthandler "equiplink/internal/servicerequest/handler"
	servicerequestrepo "equiplink/internal/servicerequest/repository"
	servicerequestservice "equiplink/internal/servicerequest/service"
	tenanthandler "equiplink/internal/tenant/handler"
	tenantrepo "equiplink/internal/tenant/repository"
	tenantservice "equiplink/internal/tenant/service"
	workflowrepo "equiplink/internal/workflow/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "equiplink", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry setup", zap.Error(err))
	}
	providers.SetGlobal()

	pg, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect", zap.Error(err))
	}
	defer pg.Close()
	runner := db.NewSQLRunner(pg)

	privKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	pubKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privKey, pubKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = redisClient.Close() }()
	}

	users := identityrepo.NewPostgresRepository(pg)
	sessions := sessionrepo.NewPostgresRepository(pg)
	tenants := tenantrepo.NewPostgresRepository(pg)
	memberships := membershiprepo.NewPostgresRepository(pg)
	equipmentRepo := equipmentrepo.NewPostgresRepository(pg)
	requests := servicerequestrepo.NewPostgresRepository(pg)
	disputes := disputerepo.NewPostgresRepository(pg)
	payments := paymentrepo.NewPostgresRepository(pg)
	history := workflowrepo.NewPostgresRepository(pg)
	auditLog := auditrepo.NewPostgresRepository(pg)
	overview := platformopsrepo.NewPostgresRepository(pg)
	recorder := auditpkg.NewRecorder(auditLog)

	var events notification.Producer
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		events = notification.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
	} else {
		// Without Kafka, domain events land in the OTLP log stream instead
		// of being dropped.
		events = otel.NewEventSink(providers.LoggerProvider)
	}
	defer func() { _ = events.Close() }()

	gate, err := platformopspolicy.NewEvaluator()
	if err != nil {
		logger.Fatal("platform policy compile", zap.Error(err))
	}

	authSvc := identityservice.NewAuthService(users, sessions, memberships, tenants, hasher, tokens, cfg.RefreshTTL())
	resolver := identityservice.NewResolver(tokens)
	tenantSvc := tenantservice.NewService(runner, tenants, memberships, recorder)
	memberSvc := membershipservice.NewService(runner, memberships, users, recorder, events)
	equipmentSvc := equipmentservice.NewService(runner, equipmentRepo, history, recorder, events)
	requestSvc := servicerequestservice.NewService(runner, requests, history, recorder, events)
	disputeSvc := disputeservice.NewService(runner, disputes, requests, history, recorder, events)
	paymentSvc := paymentservice.NewService(runner, payments, requests, history, recorder, events)
	opsSvc := platformopsservice.NewService(gate, runner, overview, tenants, disputes, requests, history, auditLog, recorder, events, cfg.Staleness())

	kinds := tenantdir.New(tenants, redisClient, cfg.KindCacheTTL(), cfg.RequestLookupTimeout(), logger)
	guard := routing.NewGuard(resolver, kinds, logger)

	checks := map[string]healthhandler.Check{
		"database": func(ctx context.Context) error { return pg.PingContext(ctx) },
		"policy":   gate.HealthCheck,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := server.New(server.Deps{
		Logger:          logger,
		Resolver:        resolver,
		Guard:           guard,
		Auth:            identityhandler.NewHandler(authSvc, logger),
		Tenants:         tenanthandler.NewHandler(tenantSvc, logger),
		Members:         membershiphandler.NewHandler(memberSvc, logger),
		Equipment:       equipmenthandler.NewHandler(equipmentSvc, logger),
		ServiceRequests: servicerequesthandler.NewHandler(requestSvc, logger),
		Disputes:        disputehandler.NewHandler(disputeSvc, logger),
		Payments:        paymenthandler.NewHandler(paymentSvc, logger),
		PlatformOps:     platformopshandler.NewHandler(opsSvc, logger),
		Health:          healthhandler.NewHandler(logger, checks),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	// Let in-flight async event emits finish before telemetry goes away.
	time.Sleep(notification.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
