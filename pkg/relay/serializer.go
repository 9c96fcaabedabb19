package relay

import (
	"sync"
)

// ChatLocks admits at most one in-flight handler per session key while
// leaving different chats free to interleave.
type ChatLocks struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

func NewChatLocks() *ChatLocks {
	return &ChatLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the chat's slot is free and returns its release
// function.
func (c *ChatLocks) Acquire(sessionKey string) func() {
	lock := c.lockFor(sessionKey)
	lock.Lock()
	return lock.Unlock
}

// lockFor returns an existing chat lock or lazily initializes a new one.
func (c *ChatLocks) lockFor(sessionKey string) *sync.Mutex {
	c.mu.RLock()
	lock, ok := c.locks[sessionKey]
	c.mu.RUnlock()
	if ok {
		return lock
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok = c.locks[sessionKey]
	if ok {
		return lock
	}

	lock = &sync.Mutex{}
	c.locks[sessionKey] = lock
	return lock
}
