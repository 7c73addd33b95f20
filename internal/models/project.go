// internal/models/project.go
package models

import "time"

// Project 表示一次手稿上传形成的项目
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceFile   string    `json:"source_file,omitempty"` // 上传时的原始文件名
	TextLength   int       `json:"text_length"`           // 手稿字符数（按 rune 计）
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Analyzed     bool      `json:"analyzed"` // 是否已跑过完整流水线
}

// ProjectMetadata 是流水线完成后写盘的项目元数据
type ProjectMetadata struct {
	ProjectID   string             `json:"project_id"`
	ProjectName string             `json:"project_name"`
	TotalScenes int                `json:"total_scenes"`
	Characters  []string           `json:"characters"` // 登记角色名
	Shots       []StoryboardShot   `json:"scenes"`     // 分镜列表，沿用下游消费方约定的键名
	Profiles    []CharacterProfile `json:"profiles,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}
