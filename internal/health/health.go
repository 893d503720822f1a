package health

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
)

// maxGoroutines 存活检查的协程数上限
const maxGoroutines = 1000

// DirChecker 可写目录检查
type DirChecker interface {
	EnsureDir() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
//
// 存活检查只看进程本身；就绪检查覆盖简历目录、审计日志目录以及
// SMTP 服务器的可达性（仅 smtp 驱动）。reg 非空时检查结果同时导出为指标。
func NewHealthChecker(cfg *config.Config, uploads DirChecker, reg prometheus.Registerer, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}

	var handler healthcheck.Handler
	if reg != nil {
		handler = healthcheck.NewMetricsHandler(reg, "infrasalama")
	} else {
		handler = healthcheck.NewHandler()
	}

	hc := &HealthChecker{
		health: handler,
		logger: logger.Named("health"),
	}
	hc.addChecks(cfg, uploads)
	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks(cfg *config.Config, uploads DirChecker) {
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(maxGoroutines))

	if uploads != nil {
		hc.health.AddReadinessCheck("upload-dir", hc.logged("upload-dir", uploads.EnsureDir))
	}

	if cfg == nil {
		return
	}

	if cfg.Audit.File != "" {
		dir := filepath.Dir(cfg.Audit.File)
		hc.health.AddReadinessCheck("audit-dir", hc.logged("audit-dir", func() error {
			return WritableDir(dir)
		}))
	}

	if cfg.Mail.Driver == config.DriverSMTP && cfg.Mail.Host != "" {
		addr := net.JoinHostPort(cfg.Mail.Host, strconv.Itoa(cfg.Mail.Port))
		// 远端探测较慢，异步执行并缓存结果
		hc.health.AddReadinessCheck("smtp", healthcheck.Async(
			hc.logged("smtp", healthcheck.TCPDialCheck(addr, 3*time.Second)),
			time.Minute,
		))
	}
}

// logged 包装检查，失败时记录日志
func (hc *HealthChecker) logged(name string, check healthcheck.Check) healthcheck.Check {
	return func() error {
		err := check()
		if err != nil {
			hc.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		}
		return err
	}
}

// Handler 返回健康检查处理器
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活检查端点
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查端点
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// WritableDir 检查目录存在且可写
func WritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
