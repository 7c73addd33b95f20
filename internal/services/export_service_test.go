// internal/services/export_service_test.go
package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func newTestExportService(t *testing.T) (*ExportService, *ProjectService) {
	t.Helper()
	base := t.TempDir()

	projects := NewProjectService(filepath.Join(base, "projects"))
	exports := NewExportService(projects, filepath.Join(base, "exports"))

	return exports, projects
}

func sampleAnalysis() *models.NovelAnalysis {
	return &models.NovelAnalysis{
		Chapters: []models.ChapterRecord{
			{Title: "第一章 初雪", Content: "李明推开了院门。", Paragraphs: []string{"李明推开了院门。"}},
		},
		Scenes: []models.SceneRecord{
			{
				Text:        "李明推开了院门。",
				Description: "院外落了一层新雪。",
				Characters:  []string{"李明"},
				Dialogues: []models.DialogueEntry{
					{Speaker: "李明", Text: "下雪了。"},
				},
				Actions:      []string{"李明推开了院门"},
				Emotion:      models.EmotionNeutral,
				ChapterIndex: 1,
				SceneIndex:   1,
			},
		},
		TextLength:    9,
		ChapterCount:  1,
		SceneCount:    1,
		DialogueCount: 1,
	}
}

func TestExportProjectJSON(t *testing.T) {
	exports, projects := newTestExportService(t)

	project, err := projects.CreateProject("试稿", "", "李明推开了院门。")
	require.NoError(t, err)
	require.NoError(t, projects.SaveAnalysis(project.ID, sampleAnalysis()))

	result, err := exports.ExportProject(project.ID, "json")
	require.NoError(t, err)

	assert.Equal(t, "json", result.Format)
	assert.Equal(t, "analysis", result.ExportType)
	assert.Greater(t, result.FileSize, int64(0))
	assert.True(t, strings.HasSuffix(result.FilePath, ".json"))

	written, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)

	var payload struct {
		Project  models.Project       `json:"project"`
		Analysis models.NovelAnalysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(written, &payload))
	assert.Equal(t, project.ID, payload.Project.ID)
	assert.Equal(t, 1, payload.Analysis.SceneCount)
}

func TestExportProjectMarkdown(t *testing.T) {
	exports, projects := newTestExportService(t)

	project, err := projects.CreateProject("试稿", "", "李明推开了院门。")
	require.NoError(t, err)
	require.NoError(t, projects.SaveAnalysis(project.ID, sampleAnalysis()))

	result, err := exports.ExportProject(project.ID, "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.FilePath, ".md"))
	assert.Contains(t, result.Content, "# 试稿 - 分析报告")
	assert.Contains(t, result.Content, "## 基础信息")
	assert.Contains(t, result.Content, "## 章节结构")
	assert.Contains(t, result.Content, "第一章 初雪")
	assert.Contains(t, result.Content, "## 场景明细")
	assert.Contains(t, result.Content, "李明：下雪了。")
}

func TestExportProjectMarkdownIncludesStoryboard(t *testing.T) {
	exports, projects := newTestExportService(t)

	project, err := projects.CreateProject("试稿", "", "李明推开了院门。")
	require.NoError(t, err)
	require.NoError(t, projects.SaveAnalysis(project.ID, sampleAnalysis()))

	metadata := &models.ProjectMetadata{
		ProjectID:   project.ID,
		ProjectName: "试稿",
		TotalScenes: 1,
		Characters:  []string{"李明"},
		Shots: []models.StoryboardShot{
			{
				ShotIndex:    1,
				ChapterIndex: 1,
				ChapterTitle: "第一章 初雪",
				SceneIndex:   1,
				ImagePrompt:  "动漫风格插画，场景：院外落了一层新雪。",
				TTSLines:     []string{"李明：下雪了。"},
				Mood:         "平静",
				Characters:   []string{"李明"},
			},
		},
		Profiles: []models.CharacterProfile{
			{Name: "李明", Description: "山村猎户", ImageSeed: 12345, Frequency: 1},
		},
		GeneratedAt: time.Now(),
	}
	require.NoError(t, projects.SaveMetadata(project.ID, metadata))

	result, err := exports.ExportProject(project.ID, "markdown")
	require.NoError(t, err)

	assert.Contains(t, result.Content, "## 分镜脚本")
	assert.Contains(t, result.Content, "### 镜头 1")
	assert.Contains(t, result.Content, "**氛围**: 平静")
	assert.Contains(t, result.Content, "## 角色档案")
	assert.Contains(t, result.Content, "**形象种子**: 12345")
}

func TestExportProjectUnsupportedFormat(t *testing.T) {
	exports, projects := newTestExportService(t)

	project, err := projects.CreateProject("试稿", "", "正文。")
	require.NoError(t, err)
	require.NoError(t, projects.SaveAnalysis(project.ID, sampleAnalysis()))

	_, err = exports.ExportProject(project.ID, "pdf")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestExportProjectNotAnalyzed(t *testing.T) {
	exports, projects := newTestExportService(t)

	project, err := projects.CreateProject("试稿", "", "正文。")
	require.NoError(t, err)

	_, err = exports.ExportProject(project.ID, "json")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestExportProjectNotFound(t *testing.T) {
	exports, _ := newTestExportService(t)

	_, err := exports.ExportProject("project_0", "json")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestWriteProjectMetadata(t *testing.T) {
	exports, _ := newTestExportService(t)

	metadata := &models.ProjectMetadata{
		ProjectID:   "project_42",
		ProjectName: "试稿",
		TotalScenes: 1,
		Characters:  []string{"李明"},
		Shots: []models.StoryboardShot{
			{ShotIndex: 1, ChapterIndex: 1, SceneIndex: 1, Mood: "平静"},
		},
		GeneratedAt: time.Now(),
	}

	path, size, err := exports.WriteProjectMetadata(metadata)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
	assert.Equal(t, filepath.Join(exports.OutputDir, "project_42", "project_metadata.json"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed models.ProjectMetadata
	require.NoError(t, json.Unmarshal(written, &parsed))
	assert.Equal(t, "project_42", parsed.ProjectID)
	require.Len(t, parsed.Shots, 1)
	assert.Equal(t, "平静", parsed.Shots[0].Mood)
}

func TestWriteProjectMetadataIncomplete(t *testing.T) {
	exports, _ := newTestExportService(t)

	_, _, err := exports.WriteProjectMetadata(nil)
	assert.Error(t, err)

	_, _, err = exports.WriteProjectMetadata(&models.ProjectMetadata{})
	assert.Error(t, err)
}
