package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/quoteflow/internal/audit"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"github.com/smallbiznis/quoteflow/internal/auth"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	"github.com/smallbiznis/quoteflow/internal/auth/session"
	"github.com/smallbiznis/quoteflow/internal/authorization"
	"github.com/smallbiznis/quoteflow/internal/budget"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	"github.com/smallbiznis/quoteflow/internal/budget/render"
	"github.com/smallbiznis/quoteflow/internal/client"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/quoteflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/quoteflow/internal/observability/tracing"
	"github.com/smallbiznis/quoteflow/internal/profile"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
	"github.com/smallbiznis/quoteflow/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	client.Module,
	profile.Module,
	budget.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

// corsHandler wraps the engine so preflight requests never reach gin.
func corsHandler(cfg config.Config, next http.Handler) http.Handler {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			allowCredentials = false
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Correlation-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Correlation-Id", "Retry-After", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})(next)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           corsHandler(cfg, r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	clientSvc    clientdomain.Service
	profileSvc   profiledomain.Service
	budgetSvc    budgetdomain.Service
	renderer     *render.Renderer
	loginLimiter *ratelimit.LoginLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	ClientSvc    clientdomain.Service
	ProfileSvc   profiledomain.Service
	BudgetSvc    budgetdomain.Service
	Renderer     *render.Renderer
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.handler"),
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		clientSvc:    p.ClientSvc,
		profileSvc:   p.ProfileSvc,
		budgetSvc:    p.BudgetSvc,
		renderer:     p.Renderer,
		loginLimiter: p.LoginLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Profile --------
	api.GET("/profile", s.authorize(authorization.ObjectProfile, authorization.ActionProfileView), s.GetProfile)
	api.PUT("/profile", s.authorize(authorization.ObjectProfile, authorization.ActionProfileUpdate), s.UpsertProfile)
	api.DELETE("/profile", s.authorize(authorization.ObjectProfile, authorization.ActionProfileDelete), s.DeleteProfile)

	// -------- Clients --------
	api.GET("/clients", s.authorize(authorization.ObjectClient, authorization.ActionClientView), s.ListClients)
	api.POST("/clients", s.authorize(authorization.ObjectClient, authorization.ActionClientCreate), s.CreateClient)
	api.GET("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionClientView), s.GetClientByID)
	api.PATCH("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionClientUpdate), s.UpdateClient)
	api.DELETE("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionClientDelete), s.DeleteClient)

	// -------- Budgets --------
	api.GET("/budgets", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.ListBudgets)
	api.POST("/budgets", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetCreate), s.CreateBudget)
	api.GET("/budgets/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.GetBudgetByID)
	api.PATCH("/budgets/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetUpdate), s.UpdateBudget)
	api.DELETE("/budgets/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetDelete), s.DeleteBudget)
	api.GET("/budgets/:id/pdf", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetExport), s.ExportBudgetPDF)

	// -------- Budget items --------
	api.GET("/budgets/:id/items", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.ListBudgetItems)
	api.POST("/budgets/:id/items", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetUpdate), s.AddBudgetItem)
	api.GET("/items/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.GetBudgetItem)
	api.PATCH("/items/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetUpdate), s.UpdateBudgetItem)
	api.DELETE("/items/:id", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetUpdate), s.DeleteBudgetItem)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/budgets/:public_id", s.GetPublicBudget)
}
