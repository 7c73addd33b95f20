// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager 统一的工程锁管理器
type LockManager struct {
	projectLocks  map[string]*LockInfo
	globalLock    sync.RWMutex
	lockTTL       time.Duration
	cleanupTicker *time.Ticker
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	lm := &LockManager{
		projectLocks: make(map[string]*LockInfo),
		lockTTL:      10 * time.Minute,
	}

	// 启动清理器
	lm.startCleanup()
	return lm
}

// GetProjectLock 获取工程锁（线程安全）
func (lm *LockManager) GetProjectLock(projectID string) *sync.RWMutex {
	lm.globalLock.RLock()
	if lockInfo, exists := lm.projectLocks[projectID]; exists {
		lm.globalLock.RUnlock()
		// 更新最后使用时间
		lockInfo.LastUsed = time.Now()
		return lockInfo.Mutex
	}
	lm.globalLock.RUnlock()

	// 升级为写锁
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 双重检查（在写锁保护下是安全的）
	if lockInfo, exists := lm.projectLocks[projectID]; exists {
		// 更新最后使用时间
		lockInfo.LastUsed = time.Now()
		return lockInfo.Mutex
	}

	// 创建新锁
	lock := &sync.RWMutex{}
	lockInfo := &LockInfo{
		Mutex:    lock,
		LastUsed: time.Now(),
	}
	lm.projectLocks[projectID] = lockInfo
	return lock
}

// ExecuteWithProjectLock 在工程锁保护下执行操作
func (lm *LockManager) ExecuteWithProjectLock(projectID string, fn func() error) error {
	lock := lm.GetProjectLock(projectID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ExecuteWithProjectReadLock 在工程读锁保护下执行操作
func (lm *LockManager) ExecuteWithProjectReadLock(projectID string, fn func() error) error {
	lock := lm.GetProjectLock(projectID)
	lock.RLock()
	defer lock.RUnlock()
	return fn()
}

// 定期清理未使用的锁
func (lm *LockManager) startCleanup() {
	lm.cleanupTicker = time.NewTicker(5 * time.Minute)
	go func() {
		for range lm.cleanupTicker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	// 只有在锁数量过多时才清理
	if len(lm.projectLocks) > maxLocks {
		// 只清理长时间未使用的锁，而不是全部清理
		now := time.Now()
		for projectID, lockInfo := range lm.projectLocks {
			if now.Sub(lockInfo.LastUsed) > lockTimeout {
				delete(lm.projectLocks, projectID)
			}
		}
	}
}
