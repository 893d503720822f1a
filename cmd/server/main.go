package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/logger"
)

const version = "1.0.0"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "infrasalama",
	Short: "Infra Salama form-to-email backend",
	Long: `Receives the website forms (contact, devis, demo, recrutement), validates them
and forwards each submission to the company mailbox.

Example:
  infrasalama serve                  # start the HTTP server
  infrasalama test-mail --to me@x.dz # send a sample contact message
  infrasalama sink                   # local SMTP sink for development`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to the .env file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(testMailCmd)
	rootCmd.AddCommand(sinkCmd)
}

// main 启动命令行入口
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置并初始化日志，所有子命令共用
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 设置 Gin 模式（基于开发环境标志）
	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
