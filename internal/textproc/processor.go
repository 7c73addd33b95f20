// internal/textproc/processor.go
// Package textproc 实现小说文本的场景/篇章分析核心：场景切分、角色识别、
// 对话提取与说话人归属、动作句与场景描述抽取、情感倾向与强度，以及章节解析。
//
// 所有分析都是对 (文本, 词表) 的确定性纯函数：无 I/O、无后台任务、
// 无跨调用的可变共享状态。同一 Processor 可被并发调用，前提是词表扩充
// 不与进行中的分析交错（见 lexicon 包的并发约定）。
package textproc

import (
	"github.com/Corphon/SceneWeaverMCP/internal/lexicon"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/tokenizer"
)

// Processor 是场景/篇章分析的入口
type Processor struct {
	lex     *lexicon.Lexicon
	tok     tokenizer.Tokenizer
	markers markerIndex
	speaker speakerMatcher
}

// NewProcessor 构造分析器。lex 为 nil 时使用默认词表。
func NewProcessor(lex *lexicon.Lexicon, tok tokenizer.Tokenizer) *Processor {
	if lex == nil {
		lex = lexicon.New()
	}
	return &Processor{lex: lex, tok: tok}
}

// Lexicon 返回分析器持有的词表，供调用方做扩充
func (p *Processor) Lexicon() *lexicon.Lexicon { return p.lex }

// ProcessNovel 处理整段小说文本，产出逐场景的结构化记录
//
// 仅分词失败会返回错误；空文本、无法归属的说话人、无标记可切分
// 之类的情形都落到各字段各自约定的空值/哨兵值上。
func (p *Processor) ProcessNovel(text string) ([]models.SceneRecord, error) {
	scenes := p.SplitIntoScenes(text)

	records := make([]models.SceneRecord, 0, len(scenes))
	for _, sceneText := range scenes {
		rec, err := p.AnalyzeScene(sceneText)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// AnalyzeScene 对一段场景文本做完整分析，返回结构化记录
func (p *Processor) AnalyzeScene(text string) (models.SceneRecord, error) {
	description, err := p.ExtractSceneDescription(text)
	if err != nil {
		return models.SceneRecord{}, err
	}
	characters, err := p.IdentifyCharacters(text)
	if err != nil {
		return models.SceneRecord{}, err
	}
	actions, err := p.ExtractActions(text)
	if err != nil {
		return models.SceneRecord{}, err
	}
	emotion, err := p.AnalyzeEmotion(text)
	if err != nil {
		return models.SceneRecord{}, err
	}
	intensity, err := p.GetEmotionIntensity(text)
	if err != nil {
		return models.SceneRecord{}, err
	}

	return models.SceneRecord{
		Text:             text,
		Description:      description,
		Characters:       characters,
		Dialogues:        p.ExtractDialogues(text),
		Actions:          actions,
		Emotion:          emotion,
		EmotionIntensity: intensity,
	}, nil
}
