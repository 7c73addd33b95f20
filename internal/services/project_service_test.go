// internal/services/project_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func newTestProjectService(t *testing.T) *ProjectService {
	t.Helper()
	return NewProjectService(t.TempDir())
}

func TestCreateAndGetProject(t *testing.T) {
	svc := newTestProjectService(t)

	project, err := svc.CreateProject("山村手稿", "novel.txt", "第一章 初雪\n\n山村的清晨落了雪。")
	require.NoError(t, err)
	require.NotEmpty(t, project.ID)
	assert.Equal(t, "山村手稿", project.Name)
	assert.Equal(t, "novel.txt", project.SourceFile)
	assert.False(t, project.Analyzed)
	assert.Equal(t, len([]rune("第一章 初雪\n\n山村的清晨落了雪。")), project.TextLength)

	data, err := svc.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, data.Project.ID)
	assert.Nil(t, data.Analysis)
}

func TestCreateProjectValidation(t *testing.T) {
	svc := newTestProjectService(t)

	_, err := svc.CreateProject("", "a.txt", "正文")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.CreateProject("名字", "a.txt", "   ")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGetProjectNotFound(t *testing.T) {
	svc := newTestProjectService(t)

	_, err := svc.GetProject("project_0")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestGetSourceTextRoundTrip(t *testing.T) {
	svc := newTestProjectService(t)

	text := "猎户踏雪出门。\n\n“今天怕是有收成。”"
	project, err := svc.CreateProject("试稿", "", text)
	require.NoError(t, err)

	got, err := svc.GetSourceText(project.ID)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestSaveAnalysisMarksProjectAnalyzed(t *testing.T) {
	svc := newTestProjectService(t)

	project, err := svc.CreateProject("试稿", "", "山村的清晨落了雪。")
	require.NoError(t, err)

	analysis := &models.NovelAnalysis{
		Scenes:     []models.SceneRecord{{Text: "山村的清晨落了雪。", SceneIndex: 1}},
		TextLength: 9,
		SceneCount: 1,
	}
	require.NoError(t, svc.SaveAnalysis(project.ID, analysis))

	data, err := svc.GetProject(project.ID)
	require.NoError(t, err)
	assert.True(t, data.Project.Analyzed)
	require.NotNil(t, data.Analysis)
	assert.Equal(t, 1, data.Analysis.SceneCount)
	require.Len(t, data.Analysis.Scenes, 1)
	assert.Equal(t, "山村的清晨落了雪。", data.Analysis.Scenes[0].Text)
}

func TestSaveAnalysisUnknownProject(t *testing.T) {
	svc := newTestProjectService(t)

	err := svc.SaveAnalysis("project_0", &models.NovelAnalysis{})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestMetadataRoundTrip(t *testing.T) {
	svc := newTestProjectService(t)

	project, err := svc.CreateProject("试稿", "", "正文。")
	require.NoError(t, err)

	_, err = svc.GetMetadata(project.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	metadata := &models.ProjectMetadata{
		ProjectID:   project.ID,
		ProjectName: "试稿",
		TotalScenes: 2,
		Characters:  []string{"李明"},
		Shots: []models.StoryboardShot{
			{ShotIndex: 1, ChapterIndex: 1, SceneIndex: 1, Mood: "平静"},
			{ShotIndex: 2, ChapterIndex: 1, SceneIndex: 2, Mood: "紧张"},
		},
		GeneratedAt: time.Now(),
	}
	require.NoError(t, svc.SaveMetadata(project.ID, metadata))

	got, err := svc.GetMetadata(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalScenes)
	require.Len(t, got.Shots, 2)
	assert.Equal(t, "紧张", got.Shots[1].Mood)
}

func TestSaveAnalysisClearsStaleMetadata(t *testing.T) {
	svc := newTestProjectService(t)

	project, err := svc.CreateProject("试稿", "", "山村的清晨落了雪。")
	require.NoError(t, err)
	require.NoError(t, svc.SaveAnalysis(project.ID, &models.NovelAnalysis{SceneCount: 1}))

	metadata := &models.ProjectMetadata{
		ProjectID: project.ID,
		Shots:     []models.StoryboardShot{{ShotIndex: 1, SceneIndex: 1}},
	}
	require.NoError(t, svc.SaveMetadata(project.ID, metadata))

	// 重新分析后旧分镜引用的场景编号已失效，元数据应被清除
	require.NoError(t, svc.SaveAnalysis(project.ID, &models.NovelAnalysis{SceneCount: 3}))

	_, err = svc.GetMetadata(project.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestListProjectsNewestFirst(t *testing.T) {
	svc := newTestProjectService(t)

	first, err := svc.CreateProject("先到", "", "正文一。")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	second, err := svc.CreateProject("后到", "", "正文二。")
	require.NoError(t, err)

	projects, err := svc.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)
	assert.Equal(t, first.ID, projects[1].ID)
}

func TestListProjectsEmpty(t *testing.T) {
	svc := newTestProjectService(t)

	projects, err := svc.ListProjects()
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestDeleteProject(t *testing.T) {
	svc := newTestProjectService(t)

	project, err := svc.CreateProject("删除我", "", "正文。")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(project.ID))

	_, err = svc.GetProject(project.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	projects, err := svc.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDeleteProjectUnknown(t *testing.T) {
	svc := newTestProjectService(t)

	err := svc.DeleteProject("project_0")
	assert.True(t, apperrors.IsNotFoundError(err))
}
