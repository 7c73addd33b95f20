// internal/models/analyzer.go
package models

// NovelAnalysis 表示对一部手稿的完整分析结果
type NovelAnalysis struct {
	Chapters      []ChapterRecord `json:"chapters"`       // 章节结构，手稿无章节标记时为空
	Scenes        []SceneRecord   `json:"scenes"`         // 全部场景，跨章节平铺
	TextLength    int             `json:"text_length"`    // 手稿字符数（按 rune 计）
	ChapterCount  int             `json:"chapter_count"`  // 章节数
	SceneCount    int             `json:"scene_count"`    // 场景数
	DialogueCount int             `json:"dialogue_count"` // 对话总数
}

// StoryboardShot 表示分镜脚本中的一个镜头，由场景记录派生
type StoryboardShot struct {
	ShotIndex    int      `json:"shot_index"`            // 全局镜头序号
	ChapterIndex int      `json:"chapter_index"`         // 所属章节序号
	ChapterTitle string   `json:"chapter_title"`         // 所属章节标题
	SceneIndex   int      `json:"scene_index"`           // 场景序号
	ImagePrompt  string   `json:"image_prompt"`          // 提供给图像生成器的提示词
	TTSLines     []string `json:"tts_lines"`             // 提供给语音合成的台词，格式 说话人：内容
	Mood         string   `json:"mood"`                  // 镜头氛围，由情感倾向与强度合成
	Characters   []string `json:"characters,omitempty"`  // 镜头中出现的角色
}
