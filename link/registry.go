package link

import (
	"sync"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/logger"
)

// Handler receives the messages addressed to a device.
//
// Handlers are called on the receive loop. The message is owned by the
// handler once delivered, but it is shared by all handlers of the same
// device, so handlers must not modify it.
type Handler func(msg *frame.Message)

type handlerEntry struct {
	handlerID uint8
	fn        Handler
}

// HandlerRegistry maps device ids to ordered handler lists.
//
// It is safe for concurrent use. Handlers may add or remove handlers
// while being dispatched; the change applies to the next message.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[uint8][]handlerEntry
	logger   logger.Logger
	onPanic  func()
}

// NewHandlerRegistry creates an empty registry. Handler panics are logged to l.
func NewHandlerRegistry(l logger.Logger) *HandlerRegistry {
	if l == nil {
		l = logger.GetLogger()
	}

	return &HandlerRegistry{
		handlers: make(map[uint8][]handlerEntry),
		logger:   l,
	}
}

// Add appends fn to the handlers of deviceID.
//
// handlerID identifies the handler for Remove and Has; it does not have to
// be unique, duplicates are all called.
func (r *HandlerRegistry) Add(deviceID, handlerID uint8, fn Handler) error {
	if fn == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	r.handlers[deviceID] = append(r.handlers[deviceID], handlerEntry{handlerID: handlerID, fn: fn})
	r.mu.Unlock()

	return nil
}

// Remove deletes the first handler of deviceID registered with handlerID.
// It is a no-op when there is none.
func (r *HandlerRegistry) Remove(deviceID, handlerID uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[deviceID]
	for i, e := range entries {
		if e.handlerID != handlerID {
			continue
		}

		// copy so that snapshots taken by Dispatch stay intact
		next := make([]handlerEntry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)

		if len(next) == 0 {
			delete(r.handlers, deviceID)
		} else {
			r.handlers[deviceID] = next
		}

		return
	}
}

// Has reports whether deviceID has a handler registered with handlerID.
func (r *HandlerRegistry) Has(deviceID, handlerID uint8) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.handlers[deviceID] {
		if e.handlerID == handlerID {
			return true
		}
	}

	return false
}

// Len returns the number of registered handlers over all devices.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entries := range r.handlers {
		n += len(entries)
	}

	return n
}

// Clear removes every handler.
func (r *HandlerRegistry) Clear() {
	r.mu.Lock()
	r.handlers = make(map[uint8][]handlerEntry)
	r.mu.Unlock()
}

// Dispatch calls the handlers of msg.DeviceID in registration order and
// returns how many were called. Messages for devices without handlers are dropped.
func (r *HandlerRegistry) Dispatch(msg *frame.Message) int {
	r.mu.RLock()
	entries := r.handlers[msg.DeviceID]
	r.mu.RUnlock()

	for _, e := range entries {
		r.call(e, msg)
	}

	return len(entries)
}

func (r *HandlerRegistry) call(e handlerEntry, msg *frame.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("link: handler panic",
				"deviceID", msg.DeviceID,
				"handlerID", e.handlerID,
				"panic", rec)

			if r.onPanic != nil {
				r.onPanic()
			}
		}
	}()

	e.fn(msg)
}
