// internal/tokenizer/gse.go
package tokenizer

import (
	"fmt"

	"github.com/go-ego/gse"
	"github.com/go-ego/gse/hmm/pos"
)

// GseTokenizer 是基于 gse 的生产实现
//
// 用 HMM 词性切分（hmm/pos），词典外的人名也能得到 nr 标注。
// 构造后可被并发只读使用。
type GseTokenizer struct {
	seg gse.Segmenter
	pos pos.Segmenter
}

// NewGse 加载词典并构造分词器
//
// dictPath 为空时加载默认中文词典；非空时按 gse 的词典路径格式加载。
// 词典加载失败直接返回错误，调用方据此中止启动。
func NewGse(dictPath string) (*GseTokenizer, error) {
	t := &GseTokenizer{}

	var err error
	if dictPath != "" {
		err = t.seg.LoadDict(dictPath)
	} else {
		err = t.seg.LoadDict()
	}
	if err != nil {
		return nil, fmt.Errorf("加载分词词典失败: %w", err)
	}

	t.pos.WithGse(t.seg)
	return t, nil
}

// Tag 实现 Tokenizer
func (t *GseTokenizer) Tag(text string) ([]Token, error) {
	if text == "" {
		return nil, nil
	}

	segs := t.pos.Cut(text, true)
	out := make([]Token, 0, len(segs))
	for _, s := range segs {
		out = append(out, Token{Text: s.Text, Pos: s.Pos})
	}
	return out, nil
}
