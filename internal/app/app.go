// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/SceneWeaverMCP/internal/api"
	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/di"
	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer"
	"github.com/Corphon/SceneWeaverMCP/internal/utils"
	"github.com/gin-gonic/gin"
)

// HTTPServer 抽象出服务器的启动与关闭，便于测试替换
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 聚合应用级状态：配置、路由与HTTP服务器
type App struct {
	config   *config.AppConfig
	router   *gin.Engine
	server   HTTPServer
	stopChan chan os.Signal
}

// 全局应用实例（单例模式）
var instance *App

// GetApp 获取全局应用实例
func GetApp() *App {
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// GetConfig 返回应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer 返回全局依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 检查应用是否运行在调试模式
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// Initialize 完成配置、日志、服务与路由的初始化
func Initialize() error {
	app := GetApp()

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化配置系统（含数据目录下的配置文件合并）
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		return fmt.Errorf("初始化配置系统失败: %w", err)
	}
	app.config = config.GetCurrentConfig()

	// 3. 初始化日志系统
	if err := initLogger(app.config.LogDir); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	// 4. 初始化所有服务（按依赖顺序）
	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	// 5. 设置路由
	router, err := api.SetupRouter()
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}
	app.router = router

	return nil
}

// InitServices 按依赖顺序创建并注册全部服务
//
// 分词器构造失败视为致命错误：核心分析器不做任何兜底分词。
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 基础协作方：分词器与词表
	tok, err := tokenizer.NewGse(cfg.TokenizerDict)
	if err != nil {
		return fmt.Errorf("初始化分词器失败: %w", err)
	}
	container.Register("tokenizer", tok)

	lex := lexicon.New()
	container.Register("lexicon", lex)

	// 进度跟踪
	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	// 核心分析服务
	analyzerService := services.NewAnalyzerService(lex, tok)
	container.Register("analyzer", analyzerService)

	// 工程存储
	projectService := services.NewProjectService(filepath.Join(cfg.DataDir, "projects"))
	container.Register("project", projectService)

	// 统计库
	statsService, err := services.NewStatsService(cfg.StatsDBPath)
	if err != nil {
		return fmt.Errorf("初始化统计库失败: %w", err)
	}
	container.Register("stats", statsService)

	// 导出
	exportService := services.NewExportService(projectService, cfg.OutputDir)
	container.Register("export", exportService)

	// 流水线
	pipelineService := services.NewPipelineService(
		analyzerService, projectService, exportService, statsService,
		cfg.MaxScenes, cfg.MinCharFreq)
	container.Register("pipeline", pipelineService)

	return nil
}

// initLogger 初始化结构化日志，按日期落盘
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	if err := utils.InitLogger(logFile); err != nil {
		return err
	}

	utils.GetLogger().SetLogLevel(utils.ParseLevel(os.Getenv("LOG_LEVEL")))
	return nil
}

// Run 启动HTTP服务器并等待退出信号，收到信号后优雅关闭
func Run() error {
	app := GetApp()
	logger := utils.GetLogger()

	if app.server == nil {
		if app.config == nil || app.router == nil {
			return fmt.Errorf("应用未初始化")
		}
		app.server = &http.Server{
			Addr:    ":" + app.config.Port,
			Handler: app.router,
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("启动服务器失败: %w", err)
	case <-app.stopChan:
	}

	logger.Infof("🛑 正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	app.cleanup()

	logger.Infof("✅ 服务器优雅关闭完成")
	return nil
}

// cleanup 释放服务持有的资源
func (a *App) cleanup() {
	container := di.GetContainer()
	logger := utils.GetLogger()

	if statsService, ok := di.Resolve[*services.StatsService](container, "stats"); ok {
		if err := statsService.Close(); err != nil {
			logger.Warnf("关闭统计库失败: %v", err)
		}
	}

	if progressService, ok := di.Resolve[*services.ProgressService](container, "progress"); ok {
		progressService.CleanupCompletedTasks(0)
	}
}
