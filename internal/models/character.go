// internal/models/character.go
package models

import "time"

// CharacterProfile 表示登记在册的一个角色档案
//
// ImageSeed 由角色名哈希派生，保证同名角色在多次生成之间使用同一随机种子，
// 下游图像生成器据此保持角色形象稳定。
type CharacterProfile struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Appearance  map[string]string `json:"appearance,omitempty"` // 外貌要素，如 发色: 黑
	ImageSeed   int               `json:"image_seed"`           // 0-999999，由名字确定
	Frequency   int               `json:"frequency"`            // 在文本中出现的次数
	FirstScene  int               `json:"first_scene"`          // 首次出场的场景序号
	CreatedAt   time.Time         `json:"created_at"`
	LastUpdated time.Time         `json:"last_updated"`
}
