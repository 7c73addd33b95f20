package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChineseChapters(t *testing.T) {
	parser := NewChapterParser()
	text := "第一章 初雪\n山村的清晨落了雪。\n\n猎户踏雪出门。\n第二章 进城\n他在集市上遇见故人。"

	chapters := parser.Parse(text)
	require.Len(t, chapters, 2)

	first := chapters[0]
	assert.Equal(t, "第一章 初雪", first.Title)
	require.NotNil(t, first.Number)
	assert.Equal(t, 1, *first.Number)
	assert.Equal(t, "山村的清晨落了雪。\n\n猎户踏雪出门。", first.Content)
	assert.Equal(t, []string{"山村的清晨落了雪。", "猎户踏雪出门。"}, first.Paragraphs)

	second := chapters[1]
	assert.Equal(t, "第二章 进城", second.Title)
	require.NotNil(t, second.Number)
	assert.Equal(t, 2, *second.Number)
	assert.Equal(t, "他在集市上遇见故人。", second.Content)
}

func TestParseHeadingVariants(t *testing.T) {
	parser := NewChapterParser()
	text := "第一回 风雪夜\n正文一。\n第2节 灯下\n正文二。\n三、归途\n正文三。\nChapter 4\n正文四。\nPart Five\n正文五。"

	chapters := parser.Parse(text)
	require.Len(t, chapters, 5)

	wantNumbers := []int{1, 2, 3, 4, 5}
	for i, ch := range chapters {
		require.NotNil(t, ch.Number, "title=%q", ch.Title)
		assert.Equal(t, wantNumbers[i], *ch.Number, "title=%q", ch.Title)
	}
	assert.Equal(t, "三、归途", chapters[2].Title)
	assert.Equal(t, "正文五。", chapters[4].Content)
}

func TestParseDiscardsPreamble(t *testing.T) {
	parser := NewChapterParser()
	text := "这是一部旧稿的说明文字。\n\nChapter One\n开头的故事。\nChapter Two\n后来的故事。"

	chapters := parser.Parse(text)
	require.Len(t, chapters, 2)
	require.NotNil(t, chapters[0].Number)
	assert.Equal(t, 1, *chapters[0].Number)
	require.NotNil(t, chapters[1].Number)
	assert.Equal(t, 2, *chapters[1].Number)
	for _, ch := range chapters {
		assert.NotContains(t, ch.Content, "旧稿的说明文字")
	}
}

func TestParseNoHeadings(t *testing.T) {
	parser := NewChapterParser()

	assert.Empty(t, parser.Parse("全文没有任何章节标题。\n只有连续的正文。"))
	assert.Empty(t, parser.Parse(""))
	assert.Empty(t, parser.Parse("   \n\n  "))
}

func TestParseHeadingWithoutNumber(t *testing.T) {
	parser := NewChapterParser()

	// "Chapter Summary" 不是序数词标题，整体归入上一章正文
	chapters := parser.Parse("Chapter 1\n正文。\nChapter Summary\n附注。")
	require.Len(t, chapters, 1)
	assert.Contains(t, chapters[0].Content, "Chapter Summary")
}

func TestExtractChapterNumber(t *testing.T) {
	parser := NewChapterParser()

	tests := []struct {
		title string
		want  int
		ok    bool
	}{
		{"第1章 开始", 1, true},
		{"第100章", 100, true},
		{"第一章 初雪", 1, true},
		{"第十章", 10, true},
		{"第二十章", 20, true},
		{"第二十三回", 23, true},
		{"第一百零八回", 108, true},
		{"三、归途", 3, true},
		{"Chapter 5", 5, true},
		{"CHAPTER 10", 10, true},
		{"Chapter One", 1, true},
		{"Part Two", 2, true},
		{"chapter twelve", 12, true},
		{"序言", 0, false},
		{"楔子", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parser.ExtractChapterNumber(tt.title)
		assert.Equal(t, tt.ok, ok, "title=%q", tt.title)
		if tt.ok {
			assert.Equal(t, tt.want, got, "title=%q", tt.title)
		}
	}
}
