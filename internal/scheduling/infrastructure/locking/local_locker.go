package locking

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalSlotLocker serialises callers inside a single process.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalSlotLocker creates an in-process locker.
func NewLocalSlotLocker(config Config) *LocalSlotLocker {
	config = config.withDefaults()
	return &LocalSlotLocker{
		slots: make(map[string]chan struct{}),
		wait:  config.Wait,
	}
}

func (l *LocalSlotLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Acquire blocks until every key is held, the wait elapses or ctx is done.
func (l *LocalSlotLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, key := range keys {
		ch := l.slot(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-timer.C:
			release()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
