// internal/services/stats_service.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// StatsService 把每次上传与生成的统计落入 SQLite
type StatsService struct {
	db *sql.DB
}

const statsSchema = `
CREATE TABLE IF NOT EXISTS generation_statistics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    client_address TEXT NOT NULL,
    upload_file_count INTEGER NOT NULL,
    upload_text_chars INTEGER NOT NULL,
    upload_content_size INTEGER NOT NULL,
    generated_scene_count INTEGER DEFAULT 0,
    generated_content_size INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_generation_statistics_session
    ON generation_statistics(session_id);
`

// NewStatsService 打开（必要时创建）统计数据库
func NewStatsService(dbPath string) (*StatsService, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "statistics.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建统计数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开统计数据库失败: %w", err)
	}

	// SQLite 单写者，串行化连接以避免 database is locked
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(statsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化统计表失败: %w", err)
	}

	return &StatsService{db: db}, nil
}

// Close 关闭数据库连接
func (s *StatsService) Close() error {
	return s.db.Close()
}

// OpenSession 登记一次上传并返回新会话ID
func (s *StatsService) OpenSession(clientAddress string, fileCount, textChars int, contentSize int64) (string, error) {
	sessionID := uuid.NewString()

	_, err := s.db.Exec(`
        INSERT INTO generation_statistics
        (session_id, client_address, upload_file_count, upload_text_chars, upload_content_size, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, clientAddress, fileCount, textChars, contentSize, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("写入上传统计失败: %w", err)
	}

	return sessionID, nil
}

// RecordGeneration 回填某次会话的生成结果
func (s *StatsService) RecordGeneration(sessionID string, sceneCount int, contentSize int64) error {
	result, err := s.db.Exec(`
        UPDATE generation_statistics
        SET generated_scene_count = ?, generated_content_size = ?
        WHERE session_id = ?`,
		sceneCount, contentSize, sessionID)
	if err != nil {
		return fmt.Errorf("更新生成统计失败: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("会话不存在: %s", sessionID)
	}

	return nil
}

// GetSession 查询单个会话的统计
func (s *StatsService) GetSession(sessionID string) (*models.GenerationStat, error) {
	row := s.db.QueryRow(`
        SELECT id, session_id, client_address, upload_file_count, upload_text_chars,
               upload_content_size, generated_scene_count, generated_content_size, created_at
        FROM generation_statistics
        WHERE session_id = ?`,
		sessionID)

	stat, err := scanStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("会话不存在: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询会话统计失败: %w", err)
	}

	return stat, nil
}

// ListStatistics 按时间倒序返回统计记录，limit <= 0 表示不限制
func (s *StatsService) ListStatistics(limit int) ([]models.GenerationStat, error) {
	query := `
        SELECT id, session_id, client_address, upload_file_count, upload_text_chars,
               upload_content_size, generated_scene_count, generated_content_size, created_at
        FROM generation_statistics
        ORDER BY created_at DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("查询统计记录失败: %w", err)
	}
	defer rows.Close()

	stats := []models.GenerationStat{}
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, fmt.Errorf("读取统计记录失败: %w", err)
		}
		stats = append(stats, *stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历统计记录失败: %w", err)
	}

	return stats, nil
}

// Summary 返回全库聚合统计
func (s *StatsService) Summary() (*models.StatsSummary, error) {
	row := s.db.QueryRow(`
        SELECT COUNT(DISTINCT session_id),
               COALESCE(SUM(upload_file_count), 0),
               COALESCE(SUM(upload_text_chars), 0),
               COALESCE(SUM(generated_scene_count), 0),
               COALESCE(SUM(generated_content_size), 0)
        FROM generation_statistics`)

	summary := &models.StatsSummary{}
	err := row.Scan(
		&summary.TotalSessions,
		&summary.TotalUploads,
		&summary.TotalTextChars,
		&summary.TotalScenes,
		&summary.TotalContentOut,
	)
	if err != nil {
		return nil, fmt.Errorf("查询聚合统计失败: %w", err)
	}

	return summary, nil
}

// rowScanner 同时覆盖 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStat(row rowScanner) (*models.GenerationStat, error) {
	stat := &models.GenerationStat{}
	err := row.Scan(
		&stat.ID,
		&stat.SessionID,
		&stat.ClientAddress,
		&stat.UploadFileCount,
		&stat.UploadTextChars,
		&stat.UploadContentSize,
		&stat.GeneratedSceneCount,
		&stat.GeneratedContentSize,
		&stat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return stat, nil
}
