// internal/tokenizer/tokenizertest/double.go
// Package tokenizertest 提供分词器的测试替身，让核心分析器的单元测试
// 不依赖任何真实分词实现及其词典。
package tokenizertest

import (
	"unicode"

	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer"
)

// Vocab 按给定词汇表做最长匹配切分
//
// 词汇表之外的字符逐字成词、词性记为 x；空白不产出词。
// 切分结果对测试而言完全可预测。
type Vocab struct {
	entries map[string]string
	maxLen  int // 词汇表中最长词条的 rune 数
}

// NewVocab 用 词->词性 表构造切分替身
func NewVocab(entries map[string]string) *Vocab {
	v := &Vocab{entries: make(map[string]string, len(entries))}
	for w, p := range entries {
		if w == "" {
			continue
		}
		v.entries[w] = p
		if n := len([]rune(w)); n > v.maxLen {
			v.maxLen = n
		}
	}
	if v.maxLen == 0 {
		v.maxLen = 1
	}
	return v
}

// Tag 实现 tokenizer.Tokenizer
func (v *Vocab) Tag(text string) ([]tokenizer.Token, error) {
	runes := []rune(text)
	var out []tokenizer.Token

	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		matched := false
		limit := v.maxLen
		if rest := len(runes) - i; rest < limit {
			limit = rest
		}
		for n := limit; n >= 1; n-- {
			cand := string(runes[i : i+n])
			if p, ok := v.entries[cand]; ok {
				out = append(out, tokenizer.Token{Text: cand, Pos: p})
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokenizer.Token{Text: string(runes[i]), Pos: "x"})
			i++
		}
	}
	return out, nil
}

// Scripted 按预置应答返回，用于精确控制输出或注入失败
type Scripted struct {
	Responses map[string][]tokenizer.Token // 输入文本 -> 输出
	Err       error                        // 非 nil 时任何调用都失败
	Calls     []string                     // 记录收到的输入
}

// Tag 实现 tokenizer.Tokenizer
func (s *Scripted) Tag(text string) ([]tokenizer.Token, error) {
	s.Calls = append(s.Calls, text)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Responses[text], nil
}
