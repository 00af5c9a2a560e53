package biz

import "sync"

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLock 按 key 加锁，无人持有或等待时释放对应条目。
type keyLock struct {
	mu      sync.Mutex
	entries map[string]*keyLockEntry
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[string]*keyLockEntry)}
}

// Lock 获取 key 对应的锁，返回解锁函数。
func (k *keyLock) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyLockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
