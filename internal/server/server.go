// Package server exposes the webhook ingress and the authenticated billing
// API over gin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/agiletools/billingsync/internal/config"
	entitlementdomain "github.com/agiletools/billingsync/internal/entitlement/domain"
	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	"github.com/agiletools/billingsync/internal/observability"
	obslogger "github.com/agiletools/billingsync/internal/observability/logger"
	obsmetrics "github.com/agiletools/billingsync/internal/observability/metrics"
	"github.com/agiletools/billingsync/internal/provider"
	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
	reconcilerdomain "github.com/agiletools/billingsync/internal/reconciler/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics, registry *prometheus.Registry) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, metrics *obsmetrics.Metrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, metrics, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	identity       identitydomain.Resolver
	reconcilerSvc  reconcilerdomain.Service
	entitlementSvc entitlementdomain.Service
	providers      *provider.Registry
	billing        providerdomain.Client
	metrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Identity       identitydomain.Resolver
	ReconcilerSvc  reconcilerdomain.Service
	EntitlementSvc entitlementdomain.Service
	Providers      *provider.Registry
	Billing        providerdomain.Client
	Metrics        *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("server"),
		identity:       p.Identity,
		reconcilerSvc:  p.ReconcilerSvc,
		entitlementSvc: p.EntitlementSvc,
		providers:      p.Providers,
		billing:        p.Billing,
		metrics:        p.Metrics,
	}

	svc.registerWebhookRoutes()
	svc.registerBillingRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandleBillingWebhook)
}

func (s *Server) registerBillingRoutes() {
	billing := s.engine.Group("/api/v1/billing", s.AuthRequired())

	billing.POST("/portal-session", s.CreatePortalSession)
	billing.POST("/sync", s.SyncSubscription)
	billing.POST("/validate-creation", s.ValidateCreation)
}
