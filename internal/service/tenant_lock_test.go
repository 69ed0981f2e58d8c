package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantLocksSameTenantSameMutex(t *testing.T) {
	locks := NewTenantLocks()
	assert.Same(t, locks.Acquire("uni-1"), locks.Acquire("uni-1"))
	assert.NotSame(t, locks.Acquire("uni-1"), locks.Acquire("uni-2"))
}

func TestTenantLocksSerialisesRuns(t *testing.T) {
	locks := NewTenantLocks()
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := locks.Acquire("uni-1")
			lock.Lock()
			counter++
			lock.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)
}
