package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/form"
	"infrasalama/backend/internal/health"
	"infrasalama/backend/internal/mailer"
	"infrasalama/backend/internal/middleware"
	"infrasalama/backend/internal/monitoring"
	"infrasalama/backend/internal/security"
	"infrasalama/backend/internal/storage/filesystem"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config   *config.Config
	Mailer   *mailer.Service
	Composer *mailer.Composer
	Guard    *security.UploadGuard
	Uploads  *filesystem.Store
	Metrics  *monitoring.Metrics
	Health   *health.HealthChecker // 可为空
	Logger   *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
//
// 表单端点只接受 POST，其它方法返回 405 JSON 且不做任何投递。
// 每个端点同时挂在 /api/<name>.php 下，兼容现有前端的表单 action。
func NewRouter(deps RouterDependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(gincors.New(corsConfig(deps.Config.CORS.AllowedOrigins)))
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(monitor.HTTPMetrics())

	router.NoMethod(func(c *gin.Context) {
		Error(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	})
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, MsgNotFound)
	})

	forms := NewFormHandler(deps.Config, deps.Mailer, deps.Composer, deps.Guard, deps.Uploads, deps.Metrics, deps.Logger)
	healthMail := NewHealthMailHandler(deps.Config, deps.Mailer, deps.Composer, deps.Logger)

	endpoints := map[string]gin.HandlerFunc{
		"contact":     forms.Handle(form.Contact),
		"devis":       forms.Handle(form.Devis),
		"demo":        forms.Handle(form.Demo),
		"recrutement": forms.Handle(form.Recrutement),
	}
	for name, handler := range endpoints {
		router.POST("/"+name, handler)
		router.POST("/api/"+name+".php", handler)
	}

	for _, path := range []string{"/health-mail", "/api/health-mail.php"} {
		router.GET(path, healthMail.Send)
		router.POST(path, healthMail.Send)
	}

	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	return router
}

// corsConfig 站点表单跨域提交配置
func corsConfig(origins []string) gincors.Config {
	cfg := gincors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowOrigins = nil
			cfg.AllowAllOrigins = true
			break
		}
	}
	if cfg.AllowAllOrigins {
		cfg.AllowCredentials = false
	}
	return cfg
}
