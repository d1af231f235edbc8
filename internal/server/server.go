package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nivala/pricing/internal/adminkey"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	"github.com/nivala/pricing/internal/analytics"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	"github.com/nivala/pricing/internal/audit"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/internal/config"
	"github.com/nivala/pricing/internal/observability"
	obsmiddleware "github.com/nivala/pricing/internal/observability/logger"
	obsmetrics "github.com/nivala/pricing/internal/observability/metrics"
	obstracing "github.com/nivala/pricing/internal/observability/tracing"
	"github.com/nivala/pricing/internal/offering"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	"github.com/nivala/pricing/internal/pricing"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	"github.com/nivala/pricing/internal/ratelimit"
	"github.com/nivala/pricing/internal/recommendation"
	recommendationdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/internal/scheduler"
	"github.com/nivala/pricing/internal/session"
	sessiondomain "github.com/nivala/pricing/internal/session/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	offering.Module,
	pricing.Module,
	session.Module,
	analytics.Module,
	recommendation.Module,
	audit.Module,
	adminkey.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	offeringSvc   offeringdomain.Service
	pricingSvc    pricingdomain.Service
	sessionSvc    sessiondomain.Service
	analyticsSvc  analyticsdomain.Service
	recSvc        recommendationdomain.Service
	auditSvc      auditdomain.Service
	adminKeySvc   adminkeydomain.Service
	ingestLimiter *ratelimit.SessionIngestLimiter
	scheduler     analysisRunner
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	OfferingSvc   offeringdomain.Service
	PricingSvc    pricingdomain.Service
	SessionSvc    sessiondomain.Service
	AnalyticsSvc  analyticsdomain.Service
	RecSvc        recommendationdomain.Service
	AuditSvc      auditdomain.Service
	AdminKeySvc   adminkeydomain.Service
	IngestLimiter *ratelimit.SessionIngestLimiter `optional:"true"`
	Scheduler     *scheduler.Scheduler
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		offeringSvc:   p.OfferingSvc,
		pricingSvc:    p.PricingSvc,
		sessionSvc:    p.SessionSvc,
		analyticsSvc:  p.AnalyticsSvc,
		recSvc:        p.RecSvc,
		auditSvc:      p.AuditSvc,
		adminKeySvc:   p.AdminKeySvc,
		ingestLimiter: p.IngestLimiter,
		scheduler:     p.Scheduler,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/sessions", s.AdminKeyRequired(), s.SessionIngestRateLimit(), s.RecordSession)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminKeyRequired())

	// -------- Service types --------
	admin.GET("/service-types", s.ListServiceTypes)
	admin.POST("/service-types", s.CreateServiceType)
	admin.GET("/service-types/:id", s.GetServiceTypeByID)
	admin.GET("/service-types/:id/snapshot", s.GetUsageSnapshot)

	// -------- Pricing --------
	admin.POST("/pricing/run-analysis", s.RunAnalysis)
	admin.GET("/pricing/prices", s.ListPrices)
	admin.GET("/pricing/prices/:id", s.GetPriceByServiceType)
	admin.PUT("/pricing/prices/:id", s.UpdatePrice)
	admin.GET("/pricing/prices/:id/history", s.GetPriceHistory)
	admin.GET("/pricing/recommendations", s.ListRecommendations)
	admin.GET("/pricing/recommendations/:id", s.GetRecommendationByID)
	admin.POST("/pricing/recommendations/:id/decide", s.DecideRecommendation)
	admin.GET("/pricing/snapshots", s.ListUsageSnapshots)

	// -------- Audit --------
	admin.GET("/audit-logs", s.ListAuditLogs)

	// -------- Keys --------
	admin.POST("/api-keys", s.CreateAdminKey)
}
