// internal/models/scene.go
package models

// SceneRecord 表示从小说文本中切分出的一个场景及其结构化分析结果
//
// text 保留场景原文，其余字段均由分析器派生。记录一旦生成即视为只读，
// 下游的分镜/图像/语音生成只消费，不回写。
type SceneRecord struct {
	Text             string          `json:"text"`                  // 场景原文
	Description      string          `json:"description"`           // 场景描述（去除对话与动作句后的剩余叙述）
	Characters       []string        `json:"characters"`            // 出场角色，按出现频率降序
	Dialogues        []DialogueEntry `json:"dialogues"`             // 对话，按原文顺序
	Actions          []string        `json:"actions"`               // 动作句，按原文顺序
	Emotion          string          `json:"emotion"`               // positive / negative / neutral
	EmotionIntensity float64         `json:"emotion_intensity"`     // 情感强度 0-1
	ChapterIndex     int             `json:"chapter_index,omitempty"` // 所属章节序号（流水线赋值）
	SceneIndex       int             `json:"scene_index,omitempty"`   // 全局场景序号（流水线赋值）
}

// 情感倾向的取值
const (
	EmotionPositive = "positive"
	EmotionNegative = "negative"
	EmotionNeutral  = "neutral"
)

// UnknownSpeaker 是无法归属说话人时使用的哨兵值。
// 该字面量是对外契约的一部分，调用方依赖它做渲染判断，不要改成空串或 nil。
const UnknownSpeaker = "unknown"

// DialogueEntry 表示一条带说话人归属的对话
type DialogueEntry struct {
	Speaker string `json:"speaker"` // 说话人，无法识别时为 UnknownSpeaker
	Text    string `json:"text"`    // 对话内容，已去除引号定界符
}
