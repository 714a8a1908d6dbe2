package services

import "sync"

// machineLocks serializes passes over the same machine while letting
// different machines proceed in parallel
type machineLocks struct {
	mu    sync.Mutex
	locks map[uint]*machineLock
}

type machineLock struct {
	mu   sync.Mutex
	refs int
}

func newMachineLocks() *machineLocks {
	return &machineLocks{locks: make(map[uint]*machineLock)}
}

// Lock blocks until the machine is free and returns the matching unlock
func (l *machineLocks) Lock(machineID uint) func() {
	l.mu.Lock()
	entry, ok := l.locks[machineID]
	if !ok {
		entry = &machineLock{}
		l.locks[machineID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, machineID)
		}
		l.mu.Unlock()
	}
}
