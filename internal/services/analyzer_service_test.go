// internal/services/analyzer_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer/tokenizertest"
)

func newTestAnalyzerService() *AnalyzerService {
	tok := tokenizertest.NewVocab(map[string]string{
		"李明": "nr",
		"王芳": "nr",
		"高兴": "a",
	})
	return NewAnalyzerService(lexicon.New(), tok)
}

func TestAnalyzeNovelWithChapters(t *testing.T) {
	svc := newTestAnalyzerService()

	text := "第一章 初雪\n\n李明推开了院门。\n\n李明说：“下雪了。”\n\n第二章 进城\n\n李明与王芳进了城。"

	analysis, err := svc.AnalyzeNovel(text)
	require.NoError(t, err)

	assert.Equal(t, 2, analysis.ChapterCount)
	assert.Equal(t, 3, analysis.SceneCount)
	assert.Equal(t, 1, analysis.DialogueCount)
	assert.Equal(t, len([]rune(text)), analysis.TextLength)

	require.Len(t, analysis.Scenes, 3)
	assert.Equal(t, 1, analysis.Scenes[0].ChapterIndex)
	assert.Equal(t, 1, analysis.Scenes[0].SceneIndex)
	assert.Equal(t, 1, analysis.Scenes[1].ChapterIndex)
	assert.Equal(t, 2, analysis.Scenes[1].SceneIndex)
	assert.Equal(t, 2, analysis.Scenes[2].ChapterIndex)
	assert.Equal(t, 1, analysis.Scenes[2].SceneIndex)
}

func TestAnalyzeNovelHeadingless(t *testing.T) {
	svc := newTestAnalyzerService()

	analysis, err := svc.AnalyzeNovel("李明推开了院门。\n\n王芳在院中扫雪。")
	require.NoError(t, err)

	assert.Equal(t, 0, analysis.ChapterCount)
	assert.Equal(t, 2, analysis.SceneCount)

	require.Len(t, analysis.Scenes, 2)
	assert.Equal(t, 0, analysis.Scenes[0].ChapterIndex)
	assert.Equal(t, 1, analysis.Scenes[0].SceneIndex)
	assert.Equal(t, 2, analysis.Scenes[1].SceneIndex)
}

func TestAnalyzeNovelEmptyText(t *testing.T) {
	svc := newTestAnalyzerService()

	analysis, err := svc.AnalyzeNovel("   \n\n  ")
	require.NoError(t, err)

	assert.NotNil(t, analysis.Chapters)
	assert.NotNil(t, analysis.Scenes)
	assert.Empty(t, analysis.Scenes)
	assert.Equal(t, 0, analysis.TextLength)
}

func TestAnalyzeNovelCachesResult(t *testing.T) {
	svc := newTestAnalyzerService()

	text := "李明推开了院门。"

	first, err := svc.AnalyzeNovel(text)
	require.NoError(t, err)

	second, err := svc.AnalyzeNovel(text)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestAnalyzeNovelTokenizerFailure(t *testing.T) {
	tokenizerErr := errors.New("词典加载失败")
	svc := NewAnalyzerService(lexicon.New(), &tokenizertest.Scripted{Err: tokenizerErr})

	_, err := svc.AnalyzeNovel("李明推开了院门。")
	assert.ErrorIs(t, err, tokenizerErr)
}

func TestAnalyzeNovelWithProgressCompletes(t *testing.T) {
	svc := newTestAnalyzerService()

	progress := NewProgressService()
	tracker := progress.CreateTracker("analyze_test")

	_, err := svc.AnalyzeNovelWithProgress(context.Background(), "李明推开了院门。", tracker)
	require.NoError(t, err)

	select {
	case <-tracker.Done:
	default:
		t.Fatal("分析完成后 Done 通道应当已关闭")
	}
	assert.Equal(t, "completed", tracker.Snapshot().Status)
}

func TestAnalyzeNovelWithProgressCanceled(t *testing.T) {
	svc := newTestAnalyzerService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeNovelWithProgress(ctx, "李明推开了院门。", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeSceneTextSingle(t *testing.T) {
	svc := newTestAnalyzerService()

	record, err := svc.AnalyzeSceneText("李明推开了院门。")
	require.NoError(t, err)

	assert.Equal(t, "李明推开了院门。", record.Text)
	assert.Equal(t, []string{"李明"}, record.Characters)
}

func TestAnalyzeSceneTextMergesMultipleScenes(t *testing.T) {
	svc := newTestAnalyzerService()

	record, err := svc.AnalyzeSceneText("李明推开了院门。\n\n王芳在院中扫雪。")
	require.NoError(t, err)

	assert.Contains(t, record.Characters, "李明")
	assert.Contains(t, record.Characters, "王芳")
}

func TestAnalyzeSceneTextEmpty(t *testing.T) {
	svc := newTestAnalyzerService()

	_, err := svc.AnalyzeSceneText("   ")
	assert.Error(t, err)
}
