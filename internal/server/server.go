// Package server wires the HTTP surface: page gate, API guards, and the
// JSON handlers behind them.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/account"
	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	"github.com/dinehq/dinehq/internal/auth"
	authdomain "github.com/dinehq/dinehq/internal/auth/domain"
	"github.com/dinehq/dinehq/internal/auth/session"
	"github.com/dinehq/dinehq/internal/authorization"
	"github.com/dinehq/dinehq/internal/billing"
	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
	"github.com/dinehq/dinehq/internal/menu"
	menudomain "github.com/dinehq/dinehq/internal/menu/domain"
	"github.com/dinehq/dinehq/internal/observability/logger"
	obsmetrics "github.com/dinehq/dinehq/internal/observability/metrics"
	"github.com/dinehq/dinehq/internal/plan"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/ratelimit"
	"github.com/dinehq/dinehq/internal/requestid"
	"github.com/dinehq/dinehq/internal/subscription"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
	"github.com/dinehq/dinehq/internal/usage"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	account.Module,
	auth.Module,
	billing.Module,
	plan.Module,
	ratelimit.Module,
	subscription.Module,
	usage.Module,
	menu.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	genID  *snowflake.Node
	clock  clock.Clock

	sessions        *session.Manager
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	accountRepo     accountdomain.Repository
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	webhookVerifier billingdomain.WebhookVerifier
	menuRepo        menudomain.Repository
	limiter         *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	Clock           clock.Clock
	Sessions        *session.Manager
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AccountRepo     accountdomain.Repository
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	WebhookVerifier billingdomain.WebhookVerifier
	MenuRepo        menudomain.Repository
	Limiter         *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		db:              p.DB,
		genID:           p.GenID,
		clock:           p.Clock,
		sessions:        p.Sessions,
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		accountRepo:     p.AccountRepo,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		webhookVerifier: p.WebhookVerifier,
		menuRepo:        p.MenuRepo,
		limiter:         p.Limiter,
	}

	svc.engine.Use(svc.EntitlementGate(DefaultRouteConfig()))

	svc.registerAuthRoutes()
	svc.registerPlanRoutes()
	svc.registerSubscriptionRoutes()
	svc.registerMenuRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) nowUTC() time.Time {
	return s.clock.Now().UTC()
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/api/auth")
	grp.POST("/register", s.handleRegister)
	grp.POST("/login", s.handleLogin)
	grp.POST("/logout", s.handleLogout)
	grp.GET("/me", s.AuthRequired(), s.handleMe)
}

func (s *Server) registerPlanRoutes() {
	s.engine.GET("/api/plans", s.handleListPlans)

	admin := s.engine.Group("/api/admin/plans", s.AuthRequired())
	admin.POST("", s.handleCreatePlan)
	admin.GET("/:id", s.handleGetPlan)
	admin.PATCH("/:id", s.handleUpdatePlan)
	admin.DELETE("/:id", s.handleArchivePlan)
}

func (s *Server) registerSubscriptionRoutes() {
	grp := s.engine.Group("/api/subscription", s.AuthRequired())
	grp.GET("/status", s.handleSubscriptionStatus)
	grp.POST("/checkout",
		ratelimit.Middleware(s.limiter, s.log, "checkout", s.cfg.RateLimit.CheckoutRate, s.cfg.RateLimit.CheckoutBurst),
		s.handleCreateCheckout,
	)
	grp.PATCH("", s.handleUpdateSubscription)
	grp.DELETE("", s.handleCancelSubscription)

	admin := s.engine.Group("/api/admin/subscriptions", s.AuthRequired())
	admin.POST("/:providerSubID/sync", s.handleSyncSubscription)
}

func (s *Server) registerMenuRoutes() {
	grp := s.engine.Group("/api/menu-items", s.AuthRequired())
	grp.GET("", s.handleListMenuItems)
	grp.POST("", s.RequireUsageLimit(menudomain.LimitKeyMenuItems), s.handleCreateMenuItem)
	grp.PATCH("/:id", s.handleUpdateMenuItem)
	grp.DELETE("/:id", s.handleDeleteMenuItem)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe",
		ratelimit.Middleware(s.limiter, s.log, "webhook", s.cfg.RateLimit.WebhookRate, s.cfg.RateLimit.WebhookBurst),
		s.handleStripeWebhook,
	)
}
