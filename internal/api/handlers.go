// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/Corphon/SceneWeaverMCP/internal/utils"
	"github.com/gin-gonic/gin"
)

// 上传手稿的大小上限（字节）
const maxUploadSize = 10 << 20

// Handler 处理API请求
type Handler struct {
	ProgressService  *services.ProgressService // 进度跟踪服务
	AnalyzerService  *services.AnalyzerService // 文本分析服务
	ProjectService   *services.ProjectService  // 工程服务
	PipelineService  *services.PipelineService // 流水线服务
	ExportService    *services.ExportService   // 导出服务
	StatsService     *services.StatsService    // 统计服务
	WebSocketHandler *WebSocketHandler         // WebSocket 处理器
	Response         *ResponseHelper           // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(
	progressService *services.ProgressService,
	analyzerService *services.AnalyzerService,
	projectService *services.ProjectService,
	pipelineService *services.PipelineService,
	exportService *services.ExportService,
	statsService *services.StatsService,
) *Handler {
	return &Handler{
		ProgressService:  progressService,
		AnalyzerService:  analyzerService,
		ProjectService:   projectService,
		PipelineService:  pipelineService,
		ExportService:    exportService,
		StatsService:     statsService,
		WebSocketHandler: NewWebSocketHandler(progressService),
		Response:         NewResponseHelper(),
	}
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ------------------------------------------------
// 健康与状态
// ------------------------------------------------

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetMetrics 返回运行指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, utils.GetMetricsCollector().GetMetrics())
}

// GetWebSocketStatus 获取 WebSocket 连接状态（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := wsManager.GetStatus()
	status["ping_timeout_seconds"] = int(wsManager.pingTimeout.Seconds())
	status["timestamp"] = time.Now().Format(time.RFC3339)

	c.JSON(http.StatusOK, status)
}

// CleanupWebSocketConnections 手动触发连接清理
func (h *Handler) CleanupWebSocketConnections(c *gin.Context) {
	wsManager.cleanupExpiredConnections()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "连接清理已执行",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ProgressWebSocket 处理进度订阅 WebSocket 连接
func (h *Handler) ProgressWebSocket(c *gin.Context) {
	h.WebSocketHandler.ProgressWebSocket(c)
}

// ------------------------------------------------
// 文本分析
// ------------------------------------------------

// AnalyzeText 同步分析一段手稿文本
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorTextEmpty, "文本内容为空")
		return
	}

	start := time.Now()
	analysis, err := h.AnalyzerService.AnalyzeNovel(req.Text)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorAnalysisFailed, "分析失败", err.Error())
		return
	}

	utils.GetAPIMetrics().RecordAnalysis(analysis.TextLength, analysis.SceneCount, analysis.DialogueCount, time.Since(start))

	h.Response.Success(c, analysis, "分析完成")
}

// AnalyzeTextAsync 异步分析，返回任务ID供进度订阅
func (h *Handler) AnalyzeTextAsync(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorTextEmpty, "文本内容为空")
		return
	}

	// 创建唯一任务ID
	taskID := fmt.Sprintf("analyze_%d", time.Now().UnixNano())
	tracker := h.ProgressService.CreateTracker(taskID)

	// 启动后台分析
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		analysis, err := h.AnalyzerService.AnalyzeNovelWithProgress(ctx, req.Text, tracker)
		if err != nil {
			tracker.Fail(err.Error())
			return
		}

		utils.GetAPIMetrics().RecordAnalysis(analysis.TextLength, analysis.SceneCount, analysis.DialogueCount, time.Since(start))
	}()

	h.Response.Accepted(c, gin.H{"task_id": taskID}, "文本分析已开始，请订阅进度更新")
}

// ParseChapters 只做章节切分，不做场景分析
func (h *Handler) ParseChapters(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	chapters := h.AnalyzerService.ChapterParser().Parse(req.Text)

	h.Response.Success(c, gin.H{
		"chapters":      chapters,
		"chapter_count": len(chapters),
	})
}

// CancelAnalysisTask 取消运行中的分析任务
func (h *Handler) CancelAnalysisTask(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}

	tracker.Fail("用户取消了任务")

	// 进度订阅者之外，直连的 WebSocket 客户端也补发一条取消通知
	wsManager.BroadcastToTask(taskID, map[string]interface{}{
		"type":      "cancelled",
		"task_id":   taskID,
		"timestamp": time.Now().Format(time.RFC3339),
	})

	h.Response.Success(c, gin.H{"task_id": taskID}, "任务已取消")
}

// SubscribeProgress 以 SSE 推送任务进度
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}

	// 设置SSE响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	// 心跳保活
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	// 发送初始事件保持连接打开
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"message\":\"连接已建立\"}\n\n")
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			// 客户端断开连接
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			// 任务结束后关闭连接
			if update.Status == "completed" || update.Status == "failed" {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// ------------------------------------------------
// 工程管理
// ------------------------------------------------

// CreateProject 上传手稿并创建分析工程
//
// 支持两种上传方式：multipart 文件（字段 file，.txt/.md），
// 或 JSON 请求体 {"name": ..., "text": ...}。
func (h *Handler) CreateProject(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	var name, sourceName, text string

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, err := c.FormFile("file")
		if err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "获取上传文件失败", err.Error())
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".txt" && ext != ".md" {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "只支持.txt或.md文件")
			return
		}
		if file.Size > maxUploadSize {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "文件过大")
			return
		}

		src, err := file.Open()
		if err != nil {
			h.Response.InternalError(c, "读取上传文件失败", err.Error())
			return
		}
		defer src.Close()

		content, err := io.ReadAll(src)
		if err != nil {
			h.Response.InternalError(c, "读取上传文件失败", err.Error())
			return
		}

		sourceName = file.Filename
		name = c.DefaultPostForm("name", strings.TrimSuffix(file.Filename, ext))
		text = string(content)
	} else {
		var req struct {
			Name string `json:"name"`
			Text string `json:"text" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			h.Response.BadRequest(c, "无效的请求参数", err.Error())
			return
		}
		name = req.Name
		text = req.Text
	}

	if strings.TrimSpace(text) == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorTextEmpty, "手稿内容为空")
		return
	}
	if name == "" {
		name = "未命名工程"
	}

	project, err := h.ProjectService.CreateProject(name, sourceName, text)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorProjectCreateFailed, "创建工程失败", err.Error())
		return
	}

	h.Response.Created(c, project, "工程创建成功")
}

// ListProjects 列出全部工程
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.ProjectService.ListProjects()
	if err != nil {
		h.Response.InternalError(c, "获取工程列表失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject 获取单个工程及其分析结果
func (h *Handler) GetProject(c *gin.Context) {
	projectID := c.Param("id")

	data, err := h.ProjectService.GetProject(projectID)
	if err != nil {
		h.Response.NotFound(c, "工程", err.Error())
		return
	}

	h.Response.Success(c, data)
}

// DeleteProject 删除工程及其所有产物
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	if err := h.ProjectService.DeleteProject(projectID); err != nil {
		h.Response.NotFound(c, "工程", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"project_id": projectID}, "工程已删除")
}

// RunPipeline 对工程异步执行完整生成流水线
func (h *Handler) RunPipeline(c *gin.Context) {
	projectID := c.Param("id")

	// 先确认工程存在，路径错误立即反馈而不是留在任务里
	if _, err := h.ProjectService.GetProject(projectID); err != nil {
		h.Response.NotFound(c, "工程", err.Error())
		return
	}

	taskID := fmt.Sprintf("pipeline_%d", time.Now().UnixNano())
	tracker := h.ProgressService.CreateTracker(taskID)
	clientAddress := c.ClientIP()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := h.PipelineService.Run(ctx, projectID, clientAddress, tracker); err != nil {
			utils.GetLogger().Errorf("流水线执行失败: %v", err)
		}
	}()

	h.Response.Accepted(c, gin.H{
		"task_id":    taskID,
		"project_id": projectID,
	}, "流水线已开始，请订阅进度更新")
}

// GetProjectCharacters 获取工程的角色档案
func (h *Handler) GetProjectCharacters(c *gin.Context) {
	projectID := c.Param("id")

	metadata, err := h.ProjectService.GetMetadata(projectID)
	if err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorProjectNotAnalyzed, "工程尚未生成元数据，请先执行流水线", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"characters": metadata.Profiles,
		"total":      len(metadata.Profiles),
	})
}

// UpdateCharacterAppearance 更新角色外貌要素并回存元数据
func (h *Handler) UpdateCharacterAppearance(c *gin.Context) {
	projectID := c.Param("id")
	name := c.Param("name")

	var req struct {
		Appearance map[string]string `json:"appearance" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	profile, err := h.PipelineService.UpdateCharacterAppearance(projectID, name, req.Appearance)
	if err != nil {
		h.Response.NotFound(c, "角色", err.Error())
		return
	}

	h.Response.Success(c, profile, "角色外貌已更新")
}

// ExportProject 导出工程分析产物
func (h *Handler) ExportProject(c *gin.Context) {
	projectID := c.Param("id")
	format := c.DefaultQuery("format", "json")

	result, err := h.ExportService.ExportProject(projectID, format)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorExportFailed, "导出失败", err.Error())
		return
	}

	h.Response.ExportResponse(c, result, format)
}

// ------------------------------------------------
// 词表扩充
// ------------------------------------------------

// AddLexiconWords 向指定词表追加词条，对后续分析立即生效
func (h *Handler) AddLexiconWords(c *gin.Context) {
	var req struct {
		Category string   `json:"category" binding:"required"`
		Words    []string `json:"words" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if !lexicon.ValidCategory(req.Category) {
		h.Response.Error(c, http.StatusBadRequest, ErrorLexiconInvalid,
			fmt.Sprintf("未知词表类别: %s", req.Category))
		return
	}

	cat := lexicon.Category(req.Category)
	lex := h.AnalyzerService.Processor().Lexicon()
	lex.Add(cat, req.Words...)

	h.Response.Success(c, gin.H{
		"category": req.Category,
		"size":     lex.Len(cat),
	}, "词表已扩充")
}

// ------------------------------------------------
// 统计
// ------------------------------------------------

// GetStats 返回最近的生成统计与汇总
func (h *Handler) GetStats(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	stats, err := h.StatsService.ListStatistics(limit)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorStatsUnavailable, "查询统计失败", err.Error())
		return
	}

	summary, err := h.StatsService.Summary()
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorStatsUnavailable, "汇总统计失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"summary": summary,
		"recent":  stats,
	})
}

// GetStatsSession 按会话ID查询单条统计
func (h *Handler) GetStatsSession(c *gin.Context) {
	sessionID := c.Param("sessionID")

	stat, err := h.StatsService.GetSession(sessionID)
	if err != nil {
		h.Response.NotFound(c, "会话统计", err.Error())
		return
	}

	h.Response.Success(c, stat)
}

// ------------------------------------------------
// 设置
// ------------------------------------------------

// GetSettings 获取当前设置
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()

	data := map[string]interface{}{
		"port":           cfg.Port,
		"debug_mode":     cfg.DebugMode,
		"max_scenes":     cfg.MaxScenes,
		"min_char_freq":  cfg.MinCharFreq,
		"tokenizer_dict": cfg.TokenizerDict,
	}

	h.Response.Success(c, data, "设置获取成功")
}

// UpdateSettings 更新分析相关设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req struct {
		MaxScenes     int    `json:"max_scenes"`
		MinCharFreq   int    `json:"min_char_freq"`
		TokenizerDict string `json:"tokenizer_dict"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if err := config.UpdateAnalysisConfig(req.MaxScenes, req.MinCharFreq, req.TokenizerDict); err != nil {
		h.Response.InternalError(c, "更新设置失败", err.Error())
		return
	}

	h.Response.Success(c, config.GetCurrentConfig(), "设置已更新")
}
