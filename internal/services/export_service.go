// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// ExportService 把分析结果渲染成对外交付的文件
type ExportService struct {
	Projects  *ProjectService
	OutputDir string
}

// NewExportService 创建导出服务
func NewExportService(projects *ProjectService, outputDir string) *ExportService {
	if outputDir == "" {
		outputDir = "data/exports"
	}
	return &ExportService{
		Projects:  projects,
		OutputDir: outputDir,
	}
}

// ExportProject 导出工程的分析结果
//
// format 支持 json 和 markdown。已跑过流水线的工程连同分镜元数据一并导出。
func (s *ExportService) ExportProject(projectID, format string) (*models.ExportResult, error) {
	// 1. 验证输入参数
	if projectID == "" {
		return nil, apperrors.NewValidationError("工程ID不能为空", nil)
	}

	format = strings.ToLower(format)
	supportedFormats := []string{"json", "markdown"}
	if !contains(supportedFormats, format) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("不支持的导出格式: %s，支持的格式: %v", format, supportedFormats), nil)
	}

	// 2. 获取工程与分析结果
	data, err := s.Projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if data.Analysis == nil {
		return nil, apperrors.NewValidationError("工程尚未分析，无可导出内容", nil)
	}

	// 3. 分镜元数据可选，没跑过流水线的工程允许缺席
	metadata, err := s.Projects.GetMetadata(projectID)
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			return nil, err
		}
		metadata = nil
	}

	// 4. 按格式渲染
	var content string
	switch format {
	case "json":
		content, err = s.formatProjectAsJSON(&data.Project, data.Analysis, metadata)
	case "markdown":
		content, err = s.formatProjectAsMarkdown(&data.Project, data.Analysis, metadata)
	}
	if err != nil {
		return nil, fmt.Errorf("格式化导出内容失败: %w", err)
	}

	// 5. 落盘并返回结果
	result := &models.ExportResult{
		ProjectID:   projectID,
		Title:       fmt.Sprintf("%s - 分析导出", data.Project.Name),
		Format:      format,
		Content:     content,
		ExportType:  "analysis",
		GeneratedAt: time.Now(),
	}

	filePath, fileSize, err := s.saveExportToOutputDir(result)
	if err != nil {
		return nil, err
	}
	result.FilePath = filePath
	result.FileSize = fileSize

	return result, nil
}

// WriteProjectMetadata 把分镜元数据写成 project_metadata.json
//
// 流水线完成后调用，文件放在 OUTPUT_DIR/<projectID>/ 下供下游生成器读取。
func (s *ExportService) WriteProjectMetadata(metadata *models.ProjectMetadata) (string, int64, error) {
	if metadata == nil || metadata.ProjectID == "" {
		return "", 0, apperrors.NewValidationError("分镜元数据不完整", nil)
	}

	projectDir := filepath.Join(s.OutputDir, metadata.ProjectID)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return "", 0, apperrors.NewStorageError("创建导出目录失败", err)
	}

	content, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("序列化元数据失败: %w", err)
	}

	filePath := filepath.Join(projectDir, "project_metadata.json")
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return "", 0, apperrors.NewStorageError("写入元数据文件失败", err)
	}

	return filePath, int64(len(content)), nil
}

// 导出内容的JSON渲染
func (s *ExportService) formatProjectAsJSON(
	project *models.Project,
	analysis *models.NovelAnalysis,
	metadata *models.ProjectMetadata) (string, error) {

	exportData := struct {
		Project  *models.Project         `json:"project"`
		Analysis *models.NovelAnalysis   `json:"analysis"`
		Metadata *models.ProjectMetadata `json:"metadata,omitempty"`
	}{
		Project:  project,
		Analysis: analysis,
		Metadata: metadata,
	}

	jsonData, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON序列化失败: %w", err)
	}

	return string(jsonData), nil
}

// 导出内容的Markdown渲染
func (s *ExportService) formatProjectAsMarkdown(
	project *models.Project,
	analysis *models.NovelAnalysis,
	metadata *models.ProjectMetadata) (string, error) {

	if project == nil || analysis == nil {
		return "", fmt.Errorf("工程数据不能为空")
	}

	var content strings.Builder

	// 标题
	content.WriteString(fmt.Sprintf("# %s - 分析报告\n\n", project.Name))
	content.WriteString(fmt.Sprintf("**工程ID**: %s\n\n", project.ID))

	// 基础信息
	content.WriteString("## 基础信息\n\n")
	content.WriteString(fmt.Sprintf("- **手稿字数**: %d\n", analysis.TextLength))
	content.WriteString(fmt.Sprintf("- **章节数**: %d\n", analysis.ChapterCount))
	content.WriteString(fmt.Sprintf("- **场景数**: %d\n", analysis.SceneCount))
	content.WriteString(fmt.Sprintf("- **对话数**: %d\n", analysis.DialogueCount))
	content.WriteString(fmt.Sprintf("- **生成时间**: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// 章节结构
	if len(analysis.Chapters) > 0 {
		content.WriteString("## 章节结构\n\n")
		for i, chapter := range analysis.Chapters {
			content.WriteString(fmt.Sprintf("%d. %s\n", i+1, chapter.Title))
		}
		content.WriteString("\n")
	}

	// 场景明细
	content.WriteString("## 场景明细\n\n")
	for _, scene := range analysis.Scenes {
		s.writeSceneMarkdown(&content, &scene)
	}

	// 分镜脚本
	if metadata != nil && len(metadata.Shots) > 0 {
		content.WriteString("## 分镜脚本\n\n")
		for _, shot := range metadata.Shots {
			content.WriteString(fmt.Sprintf("### 镜头 %d\n\n", shot.ShotIndex))
			if shot.ChapterTitle != "" {
				content.WriteString(fmt.Sprintf("- **章节**: %s\n", shot.ChapterTitle))
			}
			content.WriteString(fmt.Sprintf("- **氛围**: %s\n", shot.Mood))
			if len(shot.Characters) > 0 {
				content.WriteString(fmt.Sprintf("- **出场角色**: %s\n", strings.Join(shot.Characters, "、")))
			}
			content.WriteString(fmt.Sprintf("- **画面提示词**: %s\n", shot.ImagePrompt))
			if len(shot.TTSLines) > 0 {
				content.WriteString("- **台词**:\n")
				for _, line := range shot.TTSLines {
					content.WriteString(fmt.Sprintf("  - %s\n", line))
				}
			}
			content.WriteString("\n")
		}
	}

	// 角色档案
	if metadata != nil && len(metadata.Profiles) > 0 {
		content.WriteString("## 角色档案\n\n")
		for _, profile := range metadata.Profiles {
			content.WriteString(fmt.Sprintf("### %s\n\n", profile.Name))
			if profile.Description != "" {
				content.WriteString(fmt.Sprintf("- **描述**: %s\n", profile.Description))
			}
			content.WriteString(fmt.Sprintf("- **出现次数**: %d\n", profile.Frequency))
			content.WriteString(fmt.Sprintf("- **形象种子**: %d\n\n", profile.ImageSeed))
		}
	}

	return content.String(), nil
}

// writeSceneMarkdown 渲染单个场景的Markdown片段
func (s *ExportService) writeSceneMarkdown(content *strings.Builder, scene *models.SceneRecord) {
	content.WriteString(fmt.Sprintf("### 场景 %d\n\n", scene.SceneIndex))

	if scene.ChapterIndex > 0 {
		content.WriteString(fmt.Sprintf("- **所属章节**: 第 %d 章\n", scene.ChapterIndex))
	}
	content.WriteString(fmt.Sprintf("- **情感倾向**: %s（强度 %.2f）\n", scene.Emotion, scene.EmotionIntensity))
	if len(scene.Characters) > 0 {
		content.WriteString(fmt.Sprintf("- **出场角色**: %s\n", strings.Join(scene.Characters, "、")))
	}
	if scene.Description != "" {
		content.WriteString(fmt.Sprintf("- **场景描述**: %s\n", scene.Description))
	}
	if len(scene.Actions) > 0 {
		content.WriteString(fmt.Sprintf("- **动作**: %s\n", strings.Join(scene.Actions, "；")))
	}
	if len(scene.Dialogues) > 0 {
		content.WriteString("- **对话**:\n")
		for _, d := range scene.Dialogues {
			content.WriteString(fmt.Sprintf("  - %s：%s\n", d.Speaker, d.Text))
		}
	}
	content.WriteString("\n")
}

// saveExportToOutputDir 把渲染好的内容写入导出目录
func (s *ExportService) saveExportToOutputDir(result *models.ExportResult) (string, int64, error) {
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", 0, apperrors.NewStorageError("创建导出目录失败", err)
	}

	ext := result.Format
	if ext == "markdown" {
		ext = "md"
	}

	timestamp := result.GeneratedAt.Format("20060102_150405")
	fileName := fmt.Sprintf("%s_analysis_%s.%s", result.ProjectID, timestamp, ext)
	filePath := filepath.Join(s.OutputDir, fileName)

	if err := os.WriteFile(filePath, []byte(result.Content), 0644); err != nil {
		return "", 0, apperrors.NewStorageError("写入导出文件失败", err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", 0, apperrors.NewStorageError("获取文件信息失败", err)
	}

	return filePath, fileInfo.Size(), nil
}

// contains 判断字符串切片是否包含目标值
func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
