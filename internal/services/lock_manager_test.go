// internal/services/lock_manager_test.go
package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWithEntityLockSerializesPerEntity(t *testing.T) {
	lm := NewLockManager()

	var active, overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lm.WithEntityLock("char-1", func() error {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if overlaps != 0 {
		t.Errorf("critical section entered concurrently %d time(s)", overlaps)
	}
}

func TestCleanupKeepsHeldLocks(t *testing.T) {
	lm := &LockManager{entityLocks: make(map[string]*lockInfo)}

	// Enough stale entries to cross the cleanup threshold.
	for i := 0; i < 250; i++ {
		_ = lm.WithEntityLock(fmt.Sprintf("entity-%d", i), func() error { return nil })
	}

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = lm.WithEntityLock("entity-0", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	lm.globalLock.Lock()
	for _, info := range lm.entityLocks {
		info.lastUsed = time.Now().Add(-time.Hour)
	}
	lm.globalLock.Unlock()

	lm.cleanupUnusedLocks()

	lm.globalLock.Lock()
	_, heldSurvives := lm.entityLocks["entity-0"]
	remaining := len(lm.entityLocks)
	lm.globalLock.Unlock()

	close(release)
	<-done

	if !heldSurvives {
		t.Fatal("cleanup evicted a lock that was still held")
	}
	if remaining != 1 {
		t.Errorf("stale unheld locks remaining = %d, want 1", remaining)
	}
}
