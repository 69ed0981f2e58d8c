package service

import "sync"

// TenantLocks serialises scheduling runs per university. Generators mutate a
// tenant's whole resource set, so two concurrent runs for the same tenant
// would interleave reads and writes; one lock instance is shared by every
// scheduler touching that tenant.
type TenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTenantLocks constructs an empty lock table.
func NewTenantLocks() *TenantLocks {
	return &TenantLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire returns the mutex for a tenant, creating it on first use. Entries
// are never evicted; the table grows with the number of tenants, which is small.
func (t *TenantLocks) Acquire(universityID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[universityID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[universityID] = lock
	}
	return lock
}
