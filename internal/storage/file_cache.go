// internal/storage/file_cache.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// JSONFileCache 带修改时间校验的 JSON 文件读写缓存
//
// 与 FileStorage 的字节缓存不同，这里缓存的是文件的原始 JSON 内容：
// 命中时跳过磁盘读取，只做一次反序列化。文件在缓存期内被外部改动
// （修改时间或大小变化）时自动失效并重读。
type JSONFileCache struct {
	mu      sync.RWMutex
	entries map[string]*jsonCacheEntry
	maxSize int
	ttl     time.Duration
}

type jsonCacheEntry struct {
	raw      json.RawMessage
	cachedAt time.Time
	lastRead time.Time
	modTime  time.Time
	size     int64
}

// NewJSONFileCache 创建 JSON 文件缓存
func NewJSONFileCache(maxSize int, ttl time.Duration) *JSONFileCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JSONFileCache{
		entries: make(map[string]*jsonCacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Read 读取并解析 JSON 文件，命中有效缓存时不访问磁盘内容
func (c *JSONFileCache) Read(path string, target interface{}) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("获取文件绝对路径失败: %w", err)
	}

	c.mu.RLock()
	entry, exists := c.entries[absPath]
	c.mu.RUnlock()

	if exists {
		if info, statErr := os.Stat(absPath); statErr == nil {
			modified := info.ModTime().After(entry.modTime) || info.Size() != entry.size
			expired := time.Since(entry.cachedAt) > c.ttl
			if !modified && !expired {
				c.mu.Lock()
				entry.lastRead = time.Now()
				c.mu.Unlock()
				return json.Unmarshal(entry.raw, target)
			}
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}

	if info, statErr := os.Stat(absPath); statErr == nil {
		c.store(absPath, data, info)
	}
	return nil
}

// Write 原子写入 JSON 文件并更新缓存
func (c *JSONFileCache) Write(path string, data interface{}) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("获取文件绝对路径失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	// 先写临时文件再改名，避免读方看到半截文件
	tempPath := absPath + ".tmp"
	if err := os.WriteFile(tempPath, raw, 0644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("写入文件失败: %w", err)
	}

	if info, statErr := os.Stat(absPath); statErr == nil {
		c.store(absPath, raw, info)
	}
	return nil
}

// Forget 丢弃指定路径的缓存条目
func (c *JSONFileCache) Forget(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	c.mu.Lock()
	delete(c.entries, absPath)
	c.mu.Unlock()
}

// Len 返回当前缓存条目数
func (c *JSONFileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *JSONFileCache) store(absPath string, raw []byte, info os.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[absPath] = &jsonCacheEntry{
		raw:      raw,
		cachedAt: now,
		lastRead: now,
		modTime:  info.ModTime(),
		size:     info.Size(),
	}

	if len(c.entries) > c.maxSize {
		c.evictLRU(max(1, c.maxSize/5))
	}
}

// evictLRU 淘汰最久未读取的条目，调用方需持有写锁
func (c *JSONFileCache) evictLRU(count int) {
	type keyAge struct {
		key  string
		time time.Time
	}

	aged := make([]keyAge, 0, len(c.entries))
	for k, v := range c.entries {
		aged = append(aged, keyAge{k, v.lastRead})
	}

	sort.Slice(aged, func(i, j int) bool {
		return aged[i].time.Before(aged[j].time)
	})

	for i := 0; i < min(count, len(aged)); i++ {
		delete(c.entries, aged[i].key)
	}
}
