// internal/textproc/dialogue.go
package textproc

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// 四种引号样式，各自独立配对，不跨样式匹配。
// 直引号开闭同形，按出现次序交替配对。
var quoteStyles = []struct{ open, close rune }{
	{'“', '”'},
	{'‘', '’'},
	{'"', '"'},
	{'\'', '\''},
}

// quoteGlyphs 用于说话人回看窗口的截断判断
var quoteGlyphs = map[rune]bool{
	'“': true, '”': true, '‘': true, '’': true, '"': true, '\'': true,
}

// ExtractDialogues 提取对话并尝试归属说话人，按原文出现顺序返回
//
// 说话人识别：取开引号往前、到最近一个句末标点或引号为止的窗口，
// 在窗口里找 "姓名+归属动词" 模式；找不到时说话人记为 models.UnknownSpeaker。
// 连续两段引语共用一个归属从句时，第二段的窗口被第一段的闭引号截断，
// 各自独立解析。
func (p *Processor) ExtractDialogues(text string) []models.DialogueEntry {
	spans := findQuotedSpans(text)
	if len(spans) == 0 {
		return []models.DialogueEntry{}
	}

	entries := make([]models.DialogueEntry, 0, len(spans))
	for _, sp := range spans {
		speaker := p.speaker.match(p.lex, attributionWindow(text, sp.start))
		if speaker == "" {
			speaker = models.UnknownSpeaker
		}
		entries = append(entries, models.DialogueEntry{
			Speaker: speaker,
			Text:    strings.TrimSpace(text[sp.textStart:sp.textEnd]),
		})
	}
	return entries
}

// quotedSpan 记录一段引语的位置，start/end 含引号，textStart/textEnd 不含
type quotedSpan struct {
	start, end         int
	textStart, textEnd int
}

// findQuotedSpans 找出全部非空引语片段，跨样式合并后按起点排序
func findQuotedSpans(text string) []quotedSpan {
	var spans []quotedSpan
	for _, style := range quoteStyles {
		spans = append(spans, spansForStyle(text, style.open, style.close)...)
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func spansForStyle(text string, open, close rune) []quotedSpan {
	var spans []quotedSpan
	openAt := -1   // 开引号字节偏移，-1 表示未进入引语
	contentAt := 0 // 引语内容起始字节偏移
	for i, r := range text {
		if openAt < 0 {
			if r == open {
				openAt = i
				contentAt = i + utf8.RuneLen(r)
			}
			continue
		}
		if r == close {
			if i > contentAt { // 空引语不算
				spans = append(spans, quotedSpan{
					start:     openAt,
					end:       i + utf8.RuneLen(r),
					textStart: contentAt,
					textEnd:   i,
				})
			}
			openAt = -1
		}
	}
	return spans
}

// attributionWindow 取 pos 之前、到最近句末标点/换行/引号为止的文本
func attributionWindow(text string, pos int) string {
	stop := 0
	for i := pos; i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if isSentenceEnd(r) || r == '\n' || quoteGlyphs[r] {
			stop = i
			break
		}
		i -= size
	}
	return text[stop:pos]
}

// stripQuotedSpans 去掉文本中全部引语（含引号），供动作/描述抽取使用
//
// 不同样式的引语区间可能交叠，按区间并集删除。
func stripQuotedSpans(text string) string {
	spans := findQuotedSpans(text)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	cur := 0
	for _, sp := range spans {
		if sp.start > cur {
			b.WriteString(text[cur:sp.start])
		}
		if sp.end > cur {
			cur = sp.end
		}
	}
	if cur < len(text) {
		b.WriteString(text[cur:])
	}
	return b.String()
}

// speakerMatcher 缓存由归属动词词表拼出的说话人正则
type speakerMatcher struct {
	mu  sync.RWMutex
	rev uint64
	re  *regexp.Regexp
}

// match 在窗口内找 "姓名+归属动词"，返回姓名；找不到返回空串
func (s *speakerMatcher) match(lex *lexicon.Lexicon, window string) string {
	if window == "" {
		return ""
	}

	s.mu.RLock()
	re := s.re
	ok := re != nil && s.rev == lex.Rev()
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		if s.re == nil || s.rev != lex.Rev() {
			s.re = buildSpeakerRegexp(lex)
			s.rev = lex.Rev()
		}
		re = s.re
		s.mu.Unlock()
	}

	if re == nil {
		return ""
	}
	if m := re.FindStringSubmatch(window); m != nil {
		return m[1]
	}
	return ""
}

// buildSpeakerRegexp 生成 姓名(2-4字)+归属动词 的匹配正则
//
// 动词按长度降序排进选择分支，保证同一位置上长动词优先。
// 词表为空时返回 nil，所有对话都归为 unknown。
func buildSpeakerRegexp(lex *lexicon.Lexicon) *regexp.Regexp {
	verbs := lex.Words(lexicon.AttributionVerbs)
	if len(verbs) == 0 {
		return nil
	}
	sort.SliceStable(verbs, func(i, j int) bool { return len(verbs[i]) > len(verbs[j]) })

	quoted := make([]string, len(verbs))
	for i, v := range verbs {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return regexp.MustCompile(`([^，。！？；：\s　]{2,4})(` + strings.Join(quoted, "|") + `)`)
}
