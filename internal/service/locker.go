package service

import "sync"

// ownerLocker serializes mutating operations per cart owner within this
// process. Cross-process races are caught by the cart version check at
// write time.
type ownerLocker struct {
	locks sync.Map // map[string]*sync.Mutex
}

// lock acquires the owner's mutex and returns the unlock func.
func (l *ownerLocker) lock(ownerID string) func() {
	if v, ok := l.locks.Load(ownerID); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}

	m := &sync.Mutex{}
	actual, _ := l.locks.LoadOrStore(ownerID, m)

	mtx := actual.(*sync.Mutex)
	mtx.Lock()
	return mtx.Unlock
}
