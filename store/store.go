package store

import (
	"slices"
	"sync"
)

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Store is a reactive value holder. Values are replaced, never mutated in
// place, so a value returned by Get stays valid after later writes.
type Store[T any] struct {
	mux    sync.Mutex
	value  T
	subs   []subscriber[T]
	nextID int
}

func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

func (s *Store[T]) Get() T {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.value
}

func (s *Store[T]) Set(v T) {
	s.mux.Lock()
	s.value = v
	subs := slices.Clone(s.subs)
	s.mux.Unlock()

	notify(subs, v)
}

// Update atomically replaces the value with fn's result and returns it.
func (s *Store[T]) Update(fn func(T) T) T {
	s.mux.Lock()
	v := fn(s.value)
	s.value = v
	subs := slices.Clone(s.subs)
	s.mux.Unlock()

	notify(subs, v)
	return v
}

func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mux.Lock()
	defer s.mux.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mux.Lock()
			defer s.mux.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(v subscriber[T]) bool { return v.id == id })
		})
	}
}

func notify[T any](subs []subscriber[T], v T) {
	for _, sub := range subs {
		sub.fn(v)
	}
}
