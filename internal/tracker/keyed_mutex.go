package tracker

import (
	"fmt"
	"sync"
)

// keyedMutex serializes work per (monitor, region) key. Entries are never
// released; the map is bounded by the number of configured monitor/region
// pairs.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(monitorID uint, region string) func() {
	key := fmt.Sprintf("%d/%s", monitorID, region)

	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
