// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/di"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// 只从容器获取服务，不再创建新实例
	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	analyzerService, ok := container.Get("analyzer").(*services.AnalyzerService)
	if !ok {
		return nil, fmt.Errorf("分析服务未正确初始化")
	}

	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("工程服务未正确初始化")
	}

	pipelineService, ok := container.Get("pipeline").(*services.PipelineService)
	if !ok {
		return nil, fmt.Errorf("流水线服务未正确初始化")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("导出服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	// 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		progressService,
		analyzerService,
		projectService,
		pipelineService,
		exportService,
		statsService,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// ===============================
	// 健康检查与 WebSocket
	// ===============================
	r.GET("/health", handler.Health)
	r.GET("/ws", handler.ProgressWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// 分析相关路由
		// ===============================
		api.POST("/analyze", AnalysisRateLimit(), handler.AnalyzeText)
		api.POST("/analyze/async", AnalysisRateLimit(), handler.AnalyzeTextAsync)
		api.POST("/chapters/parse", handler.ParseChapters)

		// ===============================
		// 进度相关路由
		// ===============================
		api.GET("/progress/:taskID", handler.SubscribeProgress)
		api.POST("/cancel/:taskID", handler.CancelAnalysisTask)

		// ===============================
		// 工程相关路由
		// ===============================
		projectsGroup := api.Group("/projects")
		{
			projectsGroup.GET("", handler.ListProjects)
			projectsGroup.POST("", handler.CreateProject)
			projectsGroup.GET("/:id", handler.GetProject)
			projectsGroup.DELETE("/:id", handler.DeleteProject)
			projectsGroup.POST("/:id/pipeline", PipelineRateLimit(), handler.RunPipeline)
			projectsGroup.GET("/:id/characters", handler.GetProjectCharacters)
			projectsGroup.PUT("/:id/characters/:name/appearance", handler.UpdateCharacterAppearance)
			projectsGroup.GET("/:id/export", handler.ExportProject)
		}

		// ===============================
		// 词表扩充
		// ===============================
		api.POST("/lexicon/words", handler.AddLexiconWords)

		// ===============================
		// 统计相关路由
		// ===============================
		statsGroup := api.Group("/stats")
		{
			statsGroup.GET("", handler.GetStats)
			statsGroup.GET("/:sessionID", handler.GetStatsSession)
		}

		// ===============================
		// 设置相关路由
		// ===============================
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.PUT("", handler.UpdateSettings)
		}

		// 调试路由
		api.GET("/metrics", handler.GetMetrics)

		// WebSocket 管理路由
		wsGroup := api.Group("/ws")
		{
			wsGroup.GET("/status", handler.GetWebSocketStatus)
			wsGroup.POST("/cleanup", handler.CleanupWebSocketConnections)
		}
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
