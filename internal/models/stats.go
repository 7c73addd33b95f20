// internal/models/stats.go
package models

import "time"

// GenerationStat 对应数据库中 generation_statistics 表的一行
type GenerationStat struct {
	ID                   int64     `json:"id"`
	SessionID            string    `json:"session_id"`
	ClientAddress        string    `json:"client_address"`
	UploadFileCount      int       `json:"upload_file_count"`
	UploadTextChars      int       `json:"upload_text_chars"`
	UploadContentSize    int64     `json:"upload_content_size"`
	GeneratedSceneCount  int       `json:"generated_scene_count"`
	GeneratedContentSize int64     `json:"generated_content_size"`
	CreatedAt            time.Time `json:"created_at"`
}

// StatsSummary 是统计查询的聚合结果
type StatsSummary struct {
	TotalSessions   int64 `json:"total_sessions"`
	TotalUploads    int64 `json:"total_uploads"`
	TotalTextChars  int64 `json:"total_text_chars"`
	TotalScenes     int64 `json:"total_scenes"`
	TotalContentOut int64 `json:"total_content_out"`
}
