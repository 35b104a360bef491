package services

import (
	"fmt"
	"sync"
)

// keyedMutex hands out one mutex per enrollment key so requests for
// different enrollments never contend while requests for the same
// (user, course) pair are serialized. Mutexes are kept for the process
// lifetime; the key space is bounded by active user-course pairs.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func enrollmentKey(userID, courseID uint) string {
	return fmt.Sprintf("%d:%d", userID, courseID)
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	lock := k.locks[key]
	k.mu.Unlock()

	lock.Unlock()
}
