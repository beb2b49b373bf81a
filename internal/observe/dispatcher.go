// Package observe fans state snapshots out to subscribers.
package observe

import "sync"

// Subscriber registers interest in published values.
type Subscriber[T any] interface {
	// Subscribe calls onValue for each published value until cancel is called.
	Subscribe(onValue func(T)) (cancel func())
}

// Publisher pushes a value to every current subscriber.
type Publisher[T any] interface {
	Publish(v T)
}

// Dispatcher delivers values to its subscribers in publish order. A slow
// subscriber only ever sees the most recent value it has not consumed yet.
type Dispatcher[T any] struct {
	mu          sync.RWMutex
	subscribers []*subscriber[T]
}

type subscriber[T any] struct {
	ch chan T
}

func NewDispatcher[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{}
}

// Publish never blocks.
func (d *Dispatcher[T]) Publish(v T) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.subscribers {
		select {
		case s.ch <- v:
			continue
		default:
		}
		// replace the stale pending value
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- v:
		default:
		}
	}
}

// Subscribe starts a goroutine that calls onValue for each value.
func (d *Dispatcher[T]) Subscribe(onValue func(T)) (cancel func()) {
	s := &subscriber[T]{ch: make(chan T, 1)}

	d.mu.Lock()
	d.subscribers = append(d.subscribers, s)
	d.mu.Unlock()

	go func() {
		for v := range s.ch {
			onValue(v)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(s) })
	}
}

// Len returns the number of active subscribers.
func (d *Dispatcher[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *Dispatcher[T]) unsubscribe(s *subscriber[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.subscribers {
		if d.subscribers[i] == s {
			close(s.ch)
			last := len(d.subscribers) - 1
			d.subscribers[i] = d.subscribers[last]
			d.subscribers[last] = nil
			d.subscribers = d.subscribers[:last]
			return
		}
	}
}
