// internal/textproc/actions.go
package textproc

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractActions 提取含动作动词的句子，按原文顺序
//
// 先去掉引语再切句，对话内容不会混进动作；动作判定按分词后的
// 词条是否落在动作词表里，返回的句子不带句末标点。
func (p *Processor) ExtractActions(text string) ([]string, error) {
	clean := stripQuotedSpans(text)

	actions := []string{}
	for _, sent := range splitSentences(clean) {
		core := sentenceCore(sent)
		if core == "" {
			continue
		}
		hit, err := p.hasActionVerb(core)
		if err != nil {
			return nil, err
		}
		if hit {
			actions = append(actions, core)
		}
	}
	return actions, nil
}

// ExtractSceneDescription 提取场景描述
//
// 去掉引语、切句之后，不含动作动词的句子按原顺序拼接（保留各自的
// 句末标点）。同一句既有对话残留又有动作动词时按动作处理，不进描述。
// 没有符合条件的句子时返回空串。
func (p *Processor) ExtractSceneDescription(text string) (string, error) {
	clean := stripQuotedSpans(text)

	var b strings.Builder
	for _, sent := range splitSentences(clean) {
		core := sentenceCore(sent)
		if core == "" {
			continue
		}
		hit, err := p.hasActionVerb(core)
		if err != nil {
			return "", err
		}
		if !hit {
			b.WriteString(strings.TrimSpace(sent))
		}
	}
	return b.String(), nil
}

func (p *Processor) hasActionVerb(sentence string) (bool, error) {
	toks, err := p.tok.Tag(sentence)
	if err != nil {
		return false, fmt.Errorf("分词失败: %w", err)
	}
	for _, t := range toks {
		if p.lex.IsActionVerb(t.Text) {
			return true, nil
		}
	}
	return false, nil
}

// sentenceCore 去掉句子的首尾空白和句末标点
func sentenceCore(sent string) string {
	s := strings.TrimSpace(sent)
	s = strings.TrimRight(s, "。！？；")
	return strings.TrimSpace(s)
}

// splitSentences 按句末标点切句，每句保留自己的结尾标点；
// 末尾不带标点的残句原样作为最后一句
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if isSentenceEnd(r) {
			end := i + utf8.RuneLen(r)
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '；':
		return true
	}
	return false
}
