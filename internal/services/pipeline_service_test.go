// internal/services/pipeline_service_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer/tokenizertest"
)

type pipelineFixture struct {
	pipeline *PipelineService
	projects *ProjectService
	exports  *ExportService
	stats    *StatsService
}

func newPipelineFixture(t *testing.T, maxScenes int) *pipelineFixture {
	t.Helper()
	base := t.TempDir()

	tok := tokenizertest.NewVocab(map[string]string{
		"李明": "nr",
		"王芳": "nr",
		"高兴": "a",
	})

	analyzer := NewAnalyzerService(lexicon.New(), tok)
	projects := NewProjectService(filepath.Join(base, "projects"))
	exports := NewExportService(projects, filepath.Join(base, "exports"))

	stats, err := NewStatsService(filepath.Join(base, "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stats.Close() })

	return &pipelineFixture{
		pipeline: NewPipelineService(analyzer, projects, exports, stats, maxScenes, 3),
		projects: projects,
		exports:  exports,
		stats:    stats,
	}
}

const pipelineSampleText = `第一章 初雪

李明推开了院门。雪花落在肩头。

李明说：“下雪了。”

第二章 进城

李明与王芳进了城。王芳很高兴。`

func TestPipelineRunEndToEnd(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "novel.txt", pipelineSampleText)
	require.NoError(t, err)

	metadata, err := fx.pipeline.Run(context.Background(), project.ID, "127.0.0.1", nil)
	require.NoError(t, err)

	assert.Equal(t, project.ID, metadata.ProjectID)
	assert.Equal(t, "测试手稿", metadata.ProjectName)
	assert.Equal(t, 3, metadata.TotalScenes)
	require.Len(t, metadata.Shots, 3)

	first := metadata.Shots[0]
	assert.Equal(t, 1, first.ShotIndex)
	assert.Equal(t, 1, first.ChapterIndex)
	assert.Equal(t, "第一章 初雪", first.ChapterTitle)
	assert.Equal(t, 1, first.SceneIndex)
	assert.Contains(t, first.ImagePrompt, "动漫风格插画")
	assert.Contains(t, first.ImagePrompt, "氛围：")

	second := metadata.Shots[1]
	assert.Equal(t, []string{"李明：下雪了。"}, second.TTSLines)

	third := metadata.Shots[2]
	assert.Equal(t, 3, third.ShotIndex)
	assert.Equal(t, 2, third.ChapterIndex)
	assert.Equal(t, "第二章 进城", third.ChapterTitle)
	assert.Equal(t, 1, third.SceneIndex)
	assert.Equal(t, "温馨", third.Mood)
	assert.Contains(t, third.Characters, "李明")
	assert.Contains(t, third.Characters, "王芳")

	assert.Equal(t, []string{"李明", "王芳"}, metadata.Characters)
	require.Len(t, metadata.Profiles, 2)
	assert.Equal(t, "李明", metadata.Profiles[0].Name)
	assert.Equal(t, 3, metadata.Profiles[0].Frequency)
	assert.Equal(t, 1, metadata.Profiles[0].FirstScene)
	assert.Equal(t, 1, metadata.Profiles[1].Frequency)
	assert.Equal(t, 3, metadata.Profiles[1].FirstScene)
}

func TestPipelineRunPersistsArtifacts(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	_, err = fx.pipeline.Run(context.Background(), project.ID, "10.0.0.1", nil)
	require.NoError(t, err)

	// 工程目录里有分析结果和元数据
	data, err := fx.projects.GetProject(project.ID)
	require.NoError(t, err)
	assert.True(t, data.Project.Analyzed)
	require.NotNil(t, data.Analysis)
	assert.Equal(t, 2, data.Analysis.ChapterCount)
	assert.Equal(t, 3, data.Analysis.SceneCount)

	stored, err := fx.projects.GetMetadata(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalScenes)

	// 导出目录里有下游消费的元数据文件
	metadataPath := filepath.Join(fx.exports.OutputDir, project.ID, "project_metadata.json")
	_, err = os.Stat(metadataPath)
	assert.NoError(t, err)

	// 统计表里有回填完成的会话
	rows, err := fx.stats.ListStatistics(0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10.0.0.1", rows[0].ClientAddress)
	assert.Equal(t, 3, rows[0].GeneratedSceneCount)
	assert.Greater(t, rows[0].GeneratedContentSize, int64(0))
}

func TestPipelineMaxScenesCap(t *testing.T) {
	fx := newPipelineFixture(t, 2)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	metadata, err := fx.pipeline.Run(context.Background(), project.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, metadata.TotalScenes)
	require.Len(t, metadata.Shots, 2)
	assert.Equal(t, 2, metadata.Shots[1].ShotIndex)
}

func TestPipelineHeadinglessManuscript(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("散稿", "", "李明推开了院门。\n\n王芳在院中扫雪。")
	require.NoError(t, err)

	metadata, err := fx.pipeline.Run(context.Background(), project.ID, "", nil)
	require.NoError(t, err)

	require.Len(t, metadata.Shots, 2)
	for _, shot := range metadata.Shots {
		assert.Equal(t, 1, shot.ChapterIndex)
		assert.Equal(t, "", shot.ChapterTitle)
	}
	assert.Equal(t, 1, metadata.Shots[0].SceneIndex)
	assert.Equal(t, 2, metadata.Shots[1].SceneIndex)
}

func TestPipelineRunUnknownProject(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	_, err := fx.pipeline.Run(context.Background(), "project_0", "", nil)
	assert.Error(t, err)
}

func TestPipelineRunCanceledContext(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fx.pipeline.Run(ctx, project.ID, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRunReportsProgress(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	progress := NewProgressService()
	tracker := progress.CreateTracker("pipeline_test")

	_, err = fx.pipeline.Run(context.Background(), project.ID, "", tracker)
	require.NoError(t, err)

	select {
	case <-tracker.Done:
	default:
		t.Fatal("任务完成后 Done 通道应当已关闭")
	}
	assert.Equal(t, "completed", tracker.Snapshot().Status)
}

func TestPipelineRunFailureMarksTracker(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	progress := NewProgressService()
	tracker := progress.CreateTracker("pipeline_fail")

	_, err := fx.pipeline.Run(context.Background(), "project_0", "", tracker)
	require.Error(t, err)

	assert.Equal(t, "failed", tracker.Snapshot().Status)
}

func TestPipelineUpdateCharacterAppearance(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	_, err = fx.pipeline.Run(context.Background(), project.ID, "", nil)
	require.NoError(t, err)

	profile, err := fx.pipeline.UpdateCharacterAppearance(project.ID, "李明", map[string]string{"发色": "黑"})
	require.NoError(t, err)
	assert.Equal(t, "黑", profile.Appearance["发色"])

	stored, err := fx.projects.GetMetadata(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "黑", stored.Profiles[0].Appearance["发色"])
}

func TestPipelineUpdateCharacterAppearanceUnknownName(t *testing.T) {
	fx := newPipelineFixture(t, 50)

	project, err := fx.projects.CreateProject("测试手稿", "", pipelineSampleText)
	require.NoError(t, err)

	_, err = fx.pipeline.Run(context.Background(), project.ID, "", nil)
	require.NoError(t, err)

	_, err = fx.pipeline.UpdateCharacterAppearance(project.ID, "不存在", map[string]string{"发色": "黑"})
	assert.Error(t, err)
}

func TestDeriveMood(t *testing.T) {
	tests := []struct {
		emotion   string
		intensity float64
		want      string
	}{
		{models.EmotionPositive, 0.8, "欢快"},
		{models.EmotionPositive, 0.3, "温馨"},
		{models.EmotionNegative, 0.9, "紧张"},
		{models.EmotionNegative, 0.2, "低沉"},
		{models.EmotionNeutral, 0.0, "平静"},
		{models.EmotionNeutral, 1.0, "平静"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveMood(tt.emotion, tt.intensity),
			"emotion=%s intensity=%.1f", tt.emotion, tt.intensity)
	}
}

func TestBuildTTSLines(t *testing.T) {
	lines := buildTTSLines([]models.DialogueEntry{
		{Speaker: "李明", Text: "下雪了。"},
		{Speaker: models.UnknownSpeaker, Text: "谁在外面？"},
	})

	assert.Equal(t, []string{"李明：下雪了。", "unknown：谁在外面？"}, lines)
}

func TestBuildImagePromptFallsBackToText(t *testing.T) {
	scene := &models.SceneRecord{
		Text:       "李明推开了院门。",
		Characters: []string{"李明"},
	}

	prompt := buildImagePrompt(scene, "平静")

	assert.Contains(t, prompt, "场景：李明推开了院门。")
	assert.Contains(t, prompt, "出场角色：李明")
	assert.Contains(t, prompt, "氛围：平静")
}

func TestExcerptTruncatesLongText(t *testing.T) {
	assert.Equal(t, "短句", excerpt("短句", 10))

	long := excerpt("这是一段远远超过限制长度的叙述文字", 5)
	assert.Equal(t, "这是一段远……", long)
}
