package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/config"
	httpx "github.com/you/backoffice/internal/http"
	"github.com/you/backoffice/internal/http/handlers"
	"github.com/you/backoffice/internal/http/middleware"
	"github.com/you/backoffice/internal/infrastructure/auth"
	"github.com/you/backoffice/internal/infrastructure/database"
	"github.com/you/backoffice/internal/infrastructure/notifications"
	"github.com/you/backoffice/internal/infrastructure/ratelimit"
	"github.com/you/backoffice/internal/infrastructure/repositories"
	"github.com/you/backoffice/internal/metrics"
	"github.com/you/backoffice/internal/realtime"
	"github.com/you/backoffice/internal/services"
)

// Infrastructure is what the container needs from the outside world.
type Infrastructure struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Notifier domain.NotificationService
	Policy   domain.PolicyService
}

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	// Repositories
	UserRepo        *repositories.UserRepositoryImpl
	LoginSessions   *repositories.LoginSessionRepositoryImpl
	Accounts        *repositories.AccountRepository
	Challenges      *repositories.ChallengeRepositoryImpl
	TransactionRepo *repositories.TransactionRepositoryImpl
	SettlementRepo  *repositories.SettlementRepositoryImpl

	// Services
	TokenSvc        *auth.JWTServiceImpl
	NotificationSvc domain.NotificationService
	OTPSvc          *services.OTPServiceImpl
	PolicySvc       domain.PolicyService
	Audit           domain.AuditLogger
	Connections     *realtime.Registry
	Scheduler       *services.SchedulerService

	SegmentActivation   *services.VerifiedMutation[domain.SegmentActivationPayload, domain.SegmentActivationResult]
	DematFreeze         *services.VerifiedMutation[domain.DematFreezePayload, domain.DematAccount]
	SettlementFrequency *services.VerifiedMutation[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult]

	// HTTP
	Limiter *middleware.RateLimiter
}

// NewContainer connects to Postgres, Redis and the notification providers,
// then builds every service on top of them.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, cfg.DBLogLevel)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	cas, err := auth.NewCasbinService(db, cfg.CasbinModelPath)
	if err != nil {
		return nil, err
	}
	policy := services.NewPolicyService(cas.E)
	if err := services.SeedPolicies(policy, services.AdminPolicies); err != nil {
		return nil, err
	}

	sms, err := notifications.NewSMSSender(ctx, notifications.SMSOptions{
		Provider:    cfg.SMSProvider,
		TwilioSID:   cfg.TwilioSID,
		TwilioToken: cfg.TwilioToken,
		TwilioFrom:  cfg.TwilioFrom,
		SNSRegion:   cfg.SNSRegion,
	}, logger.Named("sms"))
	if err != nil {
		return nil, err
	}
	mailer := notifications.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)

	return Build(cfg, Infrastructure{
		DB:       db,
		Redis:    rdb.Client,
		Notifier: notifications.NewNotifier(mailer, sms),
		Policy:   policy,
	}, logger), nil
}

// Build wires repositories, services and handlers over already connected infrastructure.
func Build(cfg *config.Config, infra Infrastructure, logger *zap.Logger) *Container {
	c := &Container{
		Config:          cfg,
		Logger:          logger,
		DB:              infra.DB,
		RedisClient:     infra.Redis,
		NotificationSvc: infra.Notifier,
		PolicySvc:       infra.Policy,
	}

	c.initMetrics()
	c.initRepositories()
	c.initServices()

	c.Limiter = middleware.NewRateLimiter(rate.Limit(cfg.HTTPRate), cfg.HTTPBurst)
	return c
}

func (c *Container) initMetrics() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.New(c.Registry)
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.LoginSessions = repositories.NewLoginSessionRepository(c.DB)
	c.Accounts = repositories.NewAccountRepository(c.DB)
	c.Challenges = repositories.NewChallengeRepository(c.RedisClient)
	c.TransactionRepo = repositories.NewTransactionRepository(c.DB)
	c.SettlementRepo = repositories.NewSettlementRepository(c.DB)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	c.Audit = services.NewZapAuditLogger(c.Logger)

	c.OTPSvc = services.NewOTPService(c.NotificationSvc, c.UserRepo, c.RedisClient, services.OTPConfig{
		Length: cfg.OTP_Length,
		TTL:    cfg.OTP_TTL,
	}, c.Logger.Named("otp"), c.Metrics)

	deps := services.MutationDeps{
		Challenges: c.Challenges,
		OTP:        c.OTPSvc,
		Limiter:    ratelimit.NewRedisLimiter(c.RedisClient, cfg.ResendLimit, cfg.ResendWindow),
		DB:         c.DB,
		SessionTTL: cfg.SessionTTL,
		Logger:     c.Logger.Named("mutation"),
		Metrics:    c.Metrics,
		Audit:      c.Audit,
	}
	c.SegmentActivation = services.NewVerifiedMutation[domain.SegmentActivationPayload, domain.SegmentActivationResult](domain.FeatureSegmentActivation, deps,
		services.NewSegmentActivation(c.Accounts))
	c.DematFreeze = services.NewVerifiedMutation[domain.DematFreezePayload, domain.DematAccount](domain.FeatureDematFreeze, deps,
		services.NewDematFreeze(c.Accounts, c.LoginSessions))
	c.SettlementFrequency = services.NewVerifiedMutation[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult](domain.FeatureSettlementFrequency, deps,
		services.NewSettlementFrequencyChange(c.Accounts))

	c.Connections = realtime.NewRegistry(c.Logger.Named("realtime"))
	c.Scheduler = services.NewSchedulerService(c.DB, c.TransactionRepo, c.SettlementRepo, c.Connections,
		cfg.Location, c.Logger.Named("scheduler"), c.Metrics, c.Audit)
}

// Router builds the HTTP handler tree.
func (c *Container) Router() *gin.Engine {
	return httpx.BuildRouter(httpx.RouterDeps{
		Mutations: []httpx.RouteRegistrar{
			handlers.NewMutationHandlers[domain.SegmentActivationPayload, domain.SegmentActivationResult](c.SegmentActivation, c.UserRepo),
			handlers.NewMutationHandlers[domain.DematFreezePayload, domain.DematAccount](c.DematFreeze, c.UserRepo),
			handlers.NewMutationHandlers[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult](c.SettlementFrequency, c.UserRepo),
		},
		Funds:    handlers.NewFundsHandlers(c.Scheduler),
		WS:       handlers.NewWSHandler(c.Connections, nil, c.Logger.Named("ws")),
		Auth:     middleware.NewAuthMW(c.TokenSvc, c.LoginSessions),
		Casbin:   middleware.NewCasbinMW(c.PolicySvc, c.Logger.Named("casbin")),
		Limiter:  c.Limiter,
		Gatherer: c.Registry,
	})
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
