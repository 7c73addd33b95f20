// internal/tokenizer/tokenizer.go
// Package tokenizer 定义核心分析器对外部分词/词性标注能力的窄依赖。
//
// 核心只要求一件事：把文本确定性地切成 (词, 词性) 序列，并用一个约定标签
// 标出"疑似人名"。标签是信号而不是真值，角色识别把它当候选来源。
package tokenizer

// Token 是一个分词结果
type Token struct {
	Text string `json:"text"`
	Pos  string `json:"pos"`
}

// PersonTag 是词性标注中"人名"的标签值（沿用 jieba 词性体系）
const PersonTag = "nr"

// Tokenizer 供分析器调用的分词能力
//
// 同一输入与同一词典状态下输出必须确定。实现失败时返回 error，
// 上层按致命错误向调用方传播，核心不做任何兜底分词。
type Tokenizer interface {
	Tag(text string) ([]Token, error)
}
