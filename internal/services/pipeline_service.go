// internal/services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/utils"
)

// 回退提取路径最多登记的角色数
const maxFallbackCharacters = 10

// 画面提示词中场景素材的最大截取长度
const promptExcerptRunes = 60

// PipelineService 串联整条生成流水线：
// 章节切分 → 场景分析 → 角色登记 → 分镜脚本 → 元数据落盘 → 统计回写。
// 实际的图像与语音合成由下游消费元数据完成，不在本服务范围内。
type PipelineService struct {
	Analyzer *AnalyzerService
	Projects *ProjectService
	Exports  *ExportService
	Stats    *StatsService

	maxScenes   int
	minCharFreq int
}

// NewPipelineService 创建流水线服务
func NewPipelineService(analyzer *AnalyzerService, projects *ProjectService,
	exports *ExportService, stats *StatsService, maxScenes, minCharFreq int) *PipelineService {
	return &PipelineService{
		Analyzer:    analyzer,
		Projects:    projects,
		Exports:     exports,
		Stats:       stats,
		maxScenes:   maxScenes,
		minCharFreq: minCharFreq,
	}
}

// Run 对指定工程执行完整流水线
//
// tracker 为 nil 时静默运行。失败会同时反馈到 tracker 并返回错误。
func (s *PipelineService) Run(ctx context.Context, projectID, clientAddress string, tracker *ProgressTracker) (*models.ProjectMetadata, error) {
	startTime := time.Now()
	logger := utils.GetLogger()

	if tracker != nil {
		tracker.UpdateProgress(5, "读取工程原文...")
	}

	data, err := s.Projects.GetProject(projectID)
	if err != nil {
		return nil, s.failRun(tracker, "读取工程失败", err)
	}

	text, err := s.Projects.GetSourceText(projectID)
	if err != nil {
		return nil, s.failRun(tracker, "读取工程原文失败", err)
	}

	// 开启统计会话。统计失败不阻断流水线，只记日志。
	sessionID, err := s.Stats.OpenSession(clientAddress, 1, len([]rune(text)), int64(len(text)))
	if err != nil {
		logger.Warnf("开启统计会话失败: %v", err)
		sessionID = ""
	}

	if ctx.Err() != nil {
		return nil, s.failRun(tracker, "任务已取消", ctx.Err())
	}

	if tracker != nil {
		tracker.UpdateProgress(10, "分析手稿文本...")
	}

	analysis, err := s.Analyzer.AnalyzeNovel(text)
	if err != nil {
		return nil, s.failRun(tracker, "分析手稿失败", err)
	}

	if err := s.Projects.SaveAnalysis(projectID, analysis); err != nil {
		return nil, s.failRun(tracker, "保存分析结果失败", err)
	}

	if ctx.Err() != nil {
		return nil, s.failRun(tracker, "任务已取消", ctx.Err())
	}

	if tracker != nil {
		tracker.UpdateProgress(60, "登记角色档案...")
	}

	registry := s.buildCharacterRegistry(text, analysis)

	if ctx.Err() != nil {
		return nil, s.failRun(tracker, "任务已取消", ctx.Err())
	}

	if tracker != nil {
		tracker.UpdateProgress(70, "生成分镜脚本...")
	}

	shots := s.buildShots(analysis)

	profilePtrs := registry.GetAllCharacters()
	profiles := make([]models.CharacterProfile, 0, len(profilePtrs))
	names := make([]string, 0, len(profilePtrs))
	for _, p := range profilePtrs {
		profiles = append(profiles, *p)
		names = append(names, p.Name)
	}

	metadata := &models.ProjectMetadata{
		ProjectID:   projectID,
		ProjectName: data.Project.Name,
		TotalScenes: len(shots),
		Characters:  names,
		Shots:       shots,
		Profiles:    profiles,
		GeneratedAt: time.Now(),
	}

	if tracker != nil {
		tracker.UpdateProgress(90, "写出项目元数据...")
	}

	if err := s.Projects.SaveMetadata(projectID, metadata); err != nil {
		return nil, s.failRun(tracker, "保存项目元数据失败", err)
	}

	metadataPath, metadataSize, err := s.Exports.WriteProjectMetadata(metadata)
	if err != nil {
		return nil, s.failRun(tracker, "导出项目元数据失败", err)
	}
	logger.Infof("项目元数据已写入: %s", metadataPath)

	// 回写统计
	if sessionID != "" {
		if err := s.Stats.RecordGeneration(sessionID, len(shots), metadataSize); err != nil {
			logger.Warnf("回写生成统计失败: %v", err)
		}
	}

	utils.GetAPIMetrics().RecordPipelineRun(analysis.ChapterCount, len(shots), time.Since(startTime))

	if tracker != nil {
		tracker.Complete(fmt.Sprintf("流水线完成，共 %d 个镜头", len(shots)))
	}

	return metadata, nil
}

// buildCharacterRegistry 从分析结果聚合角色档案。
// 场景记录里识别不出任何角色时退回正则提取。
func (s *PipelineService) buildCharacterRegistry(text string, analysis *models.NovelAnalysis) *CharacterService {
	registry := NewCharacterService(s.minCharFreq)
	registry.RegisterFromAnalysis(analysis)

	if len(registry.GetAllCharacters()) == 0 {
		names := registry.ExtractCharacters(text)
		if len(names) > maxFallbackCharacters {
			names = names[:maxFallbackCharacters]
		}
		for _, name := range names {
			registry.RegisterCharacter(name, "", nil, 0)
		}
	}

	return registry
}

// buildShots 把场景记录平铺成分镜镜头序列，受 maxScenes 上限约束
func (s *PipelineService) buildShots(analysis *models.NovelAnalysis) []models.StoryboardShot {
	shots := make([]models.StoryboardShot, 0, len(analysis.Scenes))

	for _, scene := range analysis.Scenes {
		if s.maxScenes > 0 && len(shots) >= s.maxScenes {
			utils.GetLogger().Infof("已达到最大场景数 %d，停止生成", s.maxScenes)
			break
		}

		chapterIndex := scene.ChapterIndex
		chapterTitle := ""
		if chapterIndex == 0 {
			// 无章节标题的手稿整体视为一个未命名章节
			chapterIndex = 1
		} else if chapterIndex-1 < len(analysis.Chapters) {
			chapterTitle = analysis.Chapters[chapterIndex-1].Title
		}

		mood := deriveMood(scene.Emotion, scene.EmotionIntensity)

		shots = append(shots, models.StoryboardShot{
			ShotIndex:    len(shots) + 1,
			ChapterIndex: chapterIndex,
			ChapterTitle: chapterTitle,
			SceneIndex:   scene.SceneIndex,
			ImagePrompt:  buildImagePrompt(&scene, mood),
			TTSLines:     buildTTSLines(scene.Dialogues),
			Mood:         mood,
			Characters:   scene.Characters,
		})
	}

	return shots
}

// UpdateCharacterAppearance 更新已生成元数据中的角色外貌并回存
func (s *PipelineService) UpdateCharacterAppearance(projectID, name string, attrs map[string]string) (*models.CharacterProfile, error) {
	metadata, err := s.Projects.GetMetadata(projectID)
	if err != nil {
		return nil, err
	}

	for i := range metadata.Profiles {
		if metadata.Profiles[i].Name != name {
			continue
		}

		if metadata.Profiles[i].Appearance == nil {
			metadata.Profiles[i].Appearance = make(map[string]string)
		}
		for k, v := range attrs {
			metadata.Profiles[i].Appearance[k] = v
		}
		metadata.Profiles[i].LastUpdated = time.Now()

		if err := s.Projects.SaveMetadata(projectID, metadata); err != nil {
			return nil, err
		}

		profile := metadata.Profiles[i]
		return &profile, nil
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", name), nil)
}

// failRun 统一的失败出口，错误同时反馈到进度跟踪器
func (s *PipelineService) failRun(tracker *ProgressTracker, message string, err error) error {
	wrapped := fmt.Errorf("%s: %w", message, err)
	if tracker != nil {
		tracker.Fail(wrapped.Error())
	}
	return wrapped
}

// deriveMood 由情感倾向与强度合成镜头氛围
func deriveMood(emotion string, intensity float64) string {
	switch emotion {
	case models.EmotionPositive:
		if intensity >= 0.6 {
			return "欢快"
		}
		return "温馨"
	case models.EmotionNegative:
		if intensity >= 0.6 {
			return "紧张"
		}
		return "低沉"
	default:
		return "平静"
	}
}

// buildImagePrompt 为镜头拼装图像生成提示词
func buildImagePrompt(scene *models.SceneRecord, mood string) string {
	parts := []string{"动漫风格插画"}

	desc := scene.Description
	if desc == "" {
		desc = excerpt(scene.Text, promptExcerptRunes)
	}
	parts = append(parts, fmt.Sprintf("场景：%s", desc))

	if len(scene.Characters) > 0 {
		parts = append(parts, fmt.Sprintf("出场角色：%s", strings.Join(scene.Characters, "、")))
	}

	parts = append(parts, fmt.Sprintf("氛围：%s", mood))
	return strings.Join(parts, "，")
}

// buildTTSLines 把对话整理成 说话人：内容 的台词列表
func buildTTSLines(dialogues []models.DialogueEntry) []string {
	lines := make([]string, 0, len(dialogues))
	for _, d := range dialogues {
		lines = append(lines, fmt.Sprintf("%s：%s", d.Speaker, d.Text))
	}
	return lines
}

// excerpt 截取文本开头若干字符作为提示词素材
func excerpt(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "……"
}
