// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager serializes mutations per entity id. Auto-evolution writes
// for the same character or plot thread must never interleave, or the
// audit trail would lose intermediate reasons.
type LockManager struct {
	entityLocks map[string]*lockInfo
	globalLock  sync.RWMutex
}

type lockInfo struct {
	mutex    *sync.Mutex
	lastUsed time.Time
	refCount int
}

// NewLockManager creates the manager and starts its cleanup loop.
func NewLockManager() *LockManager {
	lm := &LockManager{
		entityLocks: make(map[string]*lockInfo),
	}
	lm.startCleanup()
	return lm
}

// acquire registers a waiter on the entity's lock. The refCount keeps the
// entry pinned in the map until every waiter has released it.
func (lm *LockManager) acquire(entityID string) *lockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.entityLocks[entityID]
	if !exists {
		info = &lockInfo{mutex: &sync.Mutex{}}
		lm.entityLocks[entityID] = info
	}
	info.refCount++
	info.lastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *lockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info.refCount--
	info.lastUsed = time.Now()
}

// WithEntityLock runs fn while holding the entity's mutation lock.
func (lm *LockManager) WithEntityLock(entityID string, fn func() error) error {
	info := lm.acquire(entityID)
	info.mutex.Lock()
	defer func() {
		info.mutex.Unlock()
		lm.release(info)
	}()
	return fn()
}

func (lm *LockManager) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.entityLocks) <= maxLocks {
		return
	}

	now := time.Now()
	for entityID, info := range lm.entityLocks {
		if info.refCount == 0 && now.Sub(info.lastUsed) > lockTimeout {
			delete(lm.entityLocks, entityID)
		}
	}
}
