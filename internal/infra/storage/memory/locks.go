package memory

import (
	"context"
	"sync"
)

// KeyedMutex hands out one lock per key. Acquire honours ctx cancellation.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]chan struct{})}
}

func (k *KeyedMutex) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) error {
	ch := k.slot(key)
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KeyedMutex) Release(key string) {
	ch := k.slot(key)
	select {
	case <-ch:
	default:
	}
}
