package service

import (
	"sync"

	id "patientflow/pkg/domain"
)

// keyedMutex serializes saga operations per patient id. Two operations on
// different patients run concurrently; two on the same patient cannot
// interleave their state transitions.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[id.PatientID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[id.PatientID]*lockEntry)}
}

// Lock acquires the per-id lock and returns its unlock function. Entries are
// reference counted so the map does not grow with every patient ever seen.
func (k *keyedMutex) Lock(patientID id.PatientID) func() {
	k.mu.Lock()
	entry, ok := k.locks[patientID]
	if !ok {
		entry = &lockEntry{}
		k.locks[patientID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, patientID)
		}
		k.mu.Unlock()
	}
}
