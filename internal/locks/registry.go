// Package locks — реестр блокировок по имени с подсчётом ссылок.
package locks

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// Registry выдаёт по одной блокировке на имя. Запись живёт, пока есть
// владелец или ожидающий, и удаляется, когда счётчик падает до нуля.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire блокирует name до освобождения или отмены ctx.
// Возвращённую функцию нужно вызвать ровно один раз; повторные вызовы ничего не делают.
func (r *Registry) Acquire(ctx context.Context, name string) (func(), error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		r.entries[name] = e
	}
	e.refs++
	r.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		r.unref(name, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			r.unref(name, e)
		})
	}, nil
}

func (r *Registry) unref(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.entries, name)
	}
}

// Len — число живых записей.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
