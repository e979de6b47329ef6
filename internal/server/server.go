package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	dashboarddomain "github.com/smallbiznis/masstrack/internal/dashboard/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/internal/observability"
	obslogger "github.com/smallbiznis/masstrack/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/masstrack/internal/observability/metrics"
	obstracing "github.com/smallbiznis/masstrack/internal/observability/tracing"
	"github.com/smallbiznis/masstrack/internal/ratelimit"
	"github.com/smallbiznis/masstrack/internal/report"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
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

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	clock           clock.Clock
	authsvc         authdomain.Service
	intentionSvc    intentiondomain.Service
	bulkSvc         bulkdomain.Service
	celebrationSvc  celebrationdomain.Service
	obligationSvc   obligationdomain.Service
	notificationSvc notificationdomain.Service
	dashboardSvc    dashboarddomain.Service
	reportSvc       report.Service
	apiLimiter      *ratelimit.ClientLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Clock           clock.Clock
	Authsvc         authdomain.Service
	IntentionSvc    intentiondomain.Service
	BulkSvc         bulkdomain.Service
	CelebrationSvc  celebrationdomain.Service
	ObligationSvc   obligationdomain.Service
	NotificationSvc notificationdomain.Service
	DashboardSvc    dashboarddomain.Service
	ReportSvc       report.Service
	APILimiter      *ratelimit.ClientLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		clock:           p.Clock,
		authsvc:         p.Authsvc,
		intentionSvc:    p.IntentionSvc,
		bulkSvc:         p.BulkSvc,
		celebrationSvc:  p.CelebrationSvc,
		obligationSvc:   p.ObligationSvc,
		notificationSvc: p.NotificationSvc,
		dashboardSvc:    p.DashboardSvc,
		reportSvc:       p.ReportSvc,
		apiLimiter:      p.APILimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth", s.RateLimit())

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/refresh", s.Refresh)
	auth.POST("/logout", s.Logout)
	auth.POST("/verify-token", s.VerifyToken)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.RateLimit(), s.AuthRequired())

	// -------- Users --------
	api.GET("/users", s.ListUsers)
	api.GET("/users/search", s.SearchUsers)
	api.GET("/users/:id", s.GetUser)
	api.PUT("/users/:id", s.UpdateUser)
	api.POST("/users/:id/deactivate", s.DeactivateUser)

	// -------- Mass Intentions --------
	api.GET("/mass-intentions", s.ListIntentions)
	api.POST("/mass-intentions", s.CreateIntention)
	api.GET("/mass-intentions/upcoming-fixed-dates", s.UpcomingFixedDates)
	api.GET("/mass-intentions/search", s.SearchIntentions)
	api.GET("/mass-intentions/:id", s.GetIntention)
	api.PUT("/mass-intentions/:id", s.UpdateIntention)
	api.POST("/mass-intentions/:id/deactivate", s.DeactivateIntention)

	// -------- Bulk Intentions --------
	api.GET("/bulk-intentions", s.ListBulkIntentions)
	api.POST("/bulk-intentions", s.CreateBulkIntention)
	api.GET("/bulk-intentions/low-count", s.LowCountBulkIntentions)
	api.GET("/bulk-intentions/:id", s.GetBulkIntention)
	api.PUT("/bulk-intentions/:id", s.UpdateBulkIntention)
	api.POST("/bulk-intentions/:id/celebrate", s.CelebrateBulkIntention)
	api.POST("/bulk-intentions/:id/pause", s.PauseBulkIntention)
	api.POST("/bulk-intentions/:id/resume", s.ResumeBulkIntention)
	api.GET("/bulk-intentions/:id/celebrations", s.ListBulkCelebrations)
	api.GET("/bulk-intentions/:id/pause-history", s.BulkPauseHistory)

	// -------- Mass Celebrations --------
	api.GET("/mass-celebrations", s.ListCelebrations)
	api.POST("/mass-celebrations", s.CreateCelebration)
	api.GET("/mass-celebrations/today", s.TodayCelebrations)
	api.GET("/mass-celebrations/monthly-summary", s.MonthlyCelebrationSummary)
	api.GET("/mass-celebrations/monthly-report.pdf", s.MonthlyRegisterPDF)
	api.GET("/mass-celebrations/search", s.SearchCelebrations)
	api.GET("/mass-celebrations/:id", s.GetCelebration)
	api.PUT("/mass-celebrations/:id", s.UpdateCelebration)
	api.DELETE("/mass-celebrations/:id", s.DeleteCelebration)

	// -------- Monthly Obligations --------
	api.GET("/monthly-obligations", s.ListObligations)
	api.GET("/monthly-obligations/current", s.CurrentObligation)
	api.GET("/monthly-obligations/incomplete", s.IncompleteObligations)
	api.GET("/monthly-obligations/summary", s.YearlyObligationSummary)
	api.GET("/monthly-obligations/:year/:month", s.GetObligation)
	api.PUT("/monthly-obligations/:year/:month", s.UpdateObligationTarget)
	api.POST("/monthly-obligations/:year/:month/recalculate", s.RecalculateObligation)

	// -------- Notifications --------
	api.GET("/notifications", s.ListNotifications)
	api.POST("/notifications", s.CreateNotification)
	api.GET("/notifications/unread-count", s.UnreadNotificationCount)
	api.GET("/notifications/urgent", s.UrgentNotifications)
	api.POST("/notifications/mark-all-read", s.MarkAllNotificationsRead)
	api.GET("/notifications/:id", s.GetNotification)
	api.DELETE("/notifications/:id", s.DeleteNotification)
	api.POST("/notifications/:id/mark-read", s.MarkNotificationRead)
	api.POST("/notifications/:id/mark-unread", s.MarkNotificationUnread)

	// -------- Dashboard --------
	api.GET("/dashboard", s.DashboardSummary)
	api.GET("/dashboard/alerts", s.DashboardAlerts)
	api.GET("/dashboard/calendar", s.DashboardCalendar)
	api.GET("/dashboard/statistics", s.DashboardStatistics)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
