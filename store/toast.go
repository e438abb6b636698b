package store

import (
	"slices"
	"sync"
	"time"
)

const DefaultToastTTL = 4 * time.Second

type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastError   ToastKind = "error"
	ToastSuccess ToastKind = "success"
)

type Toast struct {
	ID      int
	Message string
	Kind    ToastKind
	TTL     time.Duration
}

// Toasts is a queue of transient messages, each removed once its TTL passes.
type Toasts struct {
	*Store[[]Toast]
	mux    sync.Mutex
	nextID int
	timers map[int]*time.Timer
	ttl    time.Duration
	closed bool
}

func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{
		Store:  New([]Toast{}),
		nextID: 1,
		timers: make(map[int]*time.Timer),
		ttl:    ttl,
	}
}

func (t *Toasts) Push(message string, kind ToastKind) Toast {
	t.mux.Lock()
	toast := Toast{ID: t.nextID, Message: message, Kind: kind, TTL: t.ttl}
	t.nextID++
	t.mux.Unlock()

	t.Update(func(toasts []Toast) []Toast {
		return append(slices.Clone(toasts), toast)
	})

	// Expiry is scheduled only once the toast is visible.
	t.mux.Lock()
	if !t.closed {
		t.timers[toast.ID] = time.AfterFunc(toast.TTL, func() { t.Remove(toast.ID) })
	}
	t.mux.Unlock()
	return toast
}

func (t *Toasts) Info(message string) Toast {
	return t.Push(message, ToastInfo)
}

func (t *Toasts) Error(message string) Toast {
	return t.Push(message, ToastError)
}

func (t *Toasts) Success(message string) Toast {
	return t.Push(message, ToastSuccess)
}

func (t *Toasts) Remove(id int) {
	t.mux.Lock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	t.mux.Unlock()

	t.Update(func(toasts []Toast) []Toast {
		return slices.DeleteFunc(slices.Clone(toasts), func(v Toast) bool { return v.ID == id })
	})
}

// Close cancels pending expiries. Toasts pushed afterwards never expire.
func (t *Toasts) Close() {
	t.mux.Lock()
	defer t.mux.Unlock()

	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
