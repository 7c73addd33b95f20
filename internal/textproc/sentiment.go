// internal/textproc/sentiment.go
package textproc

import (
	"fmt"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// intensityGain 是情感强度的放大系数。
// 叙事文本里情感词占比通常不超过 0.3，乘 3 把典型区间铺满 0-1。
// 校准参数，可调，不是推导出来的值；改动会整体改变所有强度读数。
const intensityGain = 3.0

// AnalyzeEmotion 判断文本的情感倾向
//
// 统计积极/消极词命中数：多者胜出，持平（含全无命中）为 neutral。
func (p *Processor) AnalyzeEmotion(text string) (string, error) {
	pos, neg, _, err := p.sentimentCounts(text)
	if err != nil {
		return "", err
	}
	switch {
	case pos > neg:
		return models.EmotionPositive, nil
	case neg > pos:
		return models.EmotionNegative, nil
	default:
		return models.EmotionNeutral, nil
	}
}

// GetEmotionIntensity 计算情感强度，区间 [0,1]
//
// 强度 = min(1, 情感词数/总词数 × intensityGain)；没有任何词时恰为 0。
func (p *Processor) GetEmotionIntensity(text string) (float64, error) {
	pos, neg, total, err := p.sentimentCounts(text)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0.0, nil
	}

	intensity := float64(pos+neg) / float64(total) * intensityGain
	if intensity > 1.0 {
		intensity = 1.0
	}
	return intensity, nil
}

func (p *Processor) sentimentCounts(text string) (pos, neg, total int, err error) {
	toks, err := p.tok.Tag(text)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("分词失败: %w", err)
	}
	for _, t := range toks {
		if p.lex.IsPositive(t.Text) {
			pos++
		} else if p.lex.IsNegative(t.Text) {
			neg++
		}
	}
	return pos, neg, len(toks), nil
}
