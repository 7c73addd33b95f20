// internal/services/stats_service_test.go
package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStatsService(t *testing.T) *StatsService {
	t.Helper()

	svc, err := NewStatsService(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return svc
}

func TestStatsSessionLifecycle(t *testing.T) {
	svc := newTestStatsService(t)

	sessionID, err := svc.OpenSession("127.0.0.1", 1, 5000, 12000)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	stat, err := svc.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, stat.SessionID)
	assert.Equal(t, "127.0.0.1", stat.ClientAddress)
	assert.Equal(t, 1, stat.UploadFileCount)
	assert.Equal(t, 5000, stat.UploadTextChars)
	assert.Equal(t, int64(12000), stat.UploadContentSize)
	assert.Equal(t, 0, stat.GeneratedSceneCount)
	assert.Equal(t, int64(0), stat.GeneratedContentSize)
	assert.False(t, stat.CreatedAt.IsZero())

	require.NoError(t, svc.RecordGeneration(sessionID, 8, 34567))

	stat, err = svc.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 8, stat.GeneratedSceneCount)
	assert.Equal(t, int64(34567), stat.GeneratedContentSize)
}

func TestStatsRecordGenerationUnknownSession(t *testing.T) {
	svc := newTestStatsService(t)

	err := svc.RecordGeneration("不存在的会话", 1, 100)
	assert.Error(t, err)
}

func TestStatsGetSessionNotFound(t *testing.T) {
	svc := newTestStatsService(t)

	stat, err := svc.GetSession("不存在的会话")
	assert.Error(t, err)
	assert.Nil(t, stat)
}

func TestStatsListStatisticsOrder(t *testing.T) {
	svc := newTestStatsService(t)

	var sessionIDs []string
	for i := 0; i < 3; i++ {
		id, err := svc.OpenSession("10.0.0.1", 1, 100, 200)
		require.NoError(t, err)
		sessionIDs = append(sessionIDs, id)
		time.Sleep(5 * time.Millisecond)
	}

	all, err := svc.ListStatistics(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, sessionIDs[2], all[0].SessionID)
	assert.Equal(t, sessionIDs[0], all[2].SessionID)

	limited, err := svc.ListStatistics(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, sessionIDs[2], limited[0].SessionID)
}

func TestStatsListStatisticsEmpty(t *testing.T) {
	svc := newTestStatsService(t)

	all, err := svc.ListStatistics(10)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestStatsSummary(t *testing.T) {
	svc := newTestStatsService(t)

	first, err := svc.OpenSession("10.0.0.1", 1, 100, 200)
	require.NoError(t, err)
	require.NoError(t, svc.RecordGeneration(first, 3, 400))

	second, err := svc.OpenSession("10.0.0.2", 2, 50, 80)
	require.NoError(t, err)
	require.NoError(t, svc.RecordGeneration(second, 2, 100))

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalSessions)
	assert.Equal(t, int64(3), summary.TotalUploads)
	assert.Equal(t, int64(150), summary.TotalTextChars)
	assert.Equal(t, int64(5), summary.TotalScenes)
	assert.Equal(t, int64(500), summary.TotalContentOut)
}

func TestStatsSummaryEmptyDatabase(t *testing.T) {
	svc := newTestStatsService(t)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalSessions)
	assert.Equal(t, int64(0), summary.TotalScenes)
}

func TestStatsReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.db")

	svc, err := NewStatsService(dbPath)
	require.NoError(t, err)

	sessionID, err := svc.OpenSession("192.168.1.5", 1, 42, 84)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	reopened, err := NewStatsService(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	stat, err := reopened.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5", stat.ClientAddress)
}
