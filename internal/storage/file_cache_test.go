// internal/storage/file_cache_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedDoc struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestJSONFileCacheWriteRead(t *testing.T) {
	cache := NewJSONFileCache(16, time.Minute)
	path := filepath.Join(t.TempDir(), "sub", "doc.json")

	require.NoError(t, cache.Write(path, &cachedDoc{Title: "手稿", Count: 3}))

	var got cachedDoc
	require.NoError(t, cache.Read(path, &got))
	assert.Equal(t, "手稿", got.Title)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 1, cache.Len())
}

func TestJSONFileCacheReadMissingFile(t *testing.T) {
	cache := NewJSONFileCache(16, time.Minute)

	var got cachedDoc
	err := cache.Read(filepath.Join(t.TempDir(), "absent.json"), &got)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestJSONFileCacheDetectsExternalChange(t *testing.T) {
	cache := NewJSONFileCache(16, time.Minute)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, cache.Write(path, &cachedDoc{Title: "初稿", Count: 1}))

	// 绕过缓存直接改写文件（内容长度不同，保证失效判定命中）
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"title":"外部改写后的第二稿","count":2}`), 0644))

	var got cachedDoc
	require.NoError(t, cache.Read(path, &got))
	assert.Equal(t, "外部改写后的第二稿", got.Title)
	assert.Equal(t, 2, got.Count)
}

func TestJSONFileCacheForget(t *testing.T) {
	cache := NewJSONFileCache(16, time.Minute)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, cache.Write(path, &cachedDoc{Title: "手稿"}))
	require.Equal(t, 1, cache.Len())

	cache.Forget(path)
	assert.Equal(t, 0, cache.Len())
}

func TestJSONFileCacheEvictsOldEntries(t *testing.T) {
	cache := NewJSONFileCache(4, time.Minute)
	dir := t.TempDir()

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, string(rune('a'+i))+".json")
		require.NoError(t, cache.Write(path, &cachedDoc{Count: i}))
	}

	assert.LessOrEqual(t, cache.Len(), 4)
}
