package interaction

import "sync"

type EventType uint8

const (
	EventPointerMove EventType = iota
	EventPointerUp
)

type pointerHandler struct {
	id uint32
	fn func(PointerEvent)
}

// PointerBus carries window-level pointer move/up events to whoever is
// listening. Events with no listener are dropped.
type PointerBus struct {
	mu     sync.Mutex
	move   []pointerHandler
	up     []pointerHandler
	nextID uint32
}

// CallbackHandle removes a registered listener.
type CallbackHandle struct {
	id    uint32
	bus   *PointerBus
	event EventType
}

// Remove unregisters the listener. Calling it twice is harmless.
func (h CallbackHandle) Remove() {
	if h.bus == nil {
		return
	}
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	switch h.event {
	case EventPointerMove:
		h.bus.move = removePointerHandler(h.bus.move, h.id)
	case EventPointerUp:
		h.bus.up = removePointerHandler(h.bus.up, h.id)
	}
}

func removePointerHandler(s []pointerHandler, id uint32) []pointerHandler {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = pointerHandler{}
			return s[:len(s)-1]
		}
	}
	return s
}

func (b *PointerBus) OnPointerMove(fn func(PointerEvent)) CallbackHandle {
	return b.register(EventPointerMove, fn)
}

func (b *PointerBus) OnPointerUp(fn func(PointerEvent)) CallbackHandle {
	return b.register(EventPointerUp, fn)
}

func (b *PointerBus) register(event EventType, fn func(PointerEvent)) CallbackHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	h := pointerHandler{id: b.nextID, fn: fn}
	switch event {
	case EventPointerMove:
		b.move = append(b.move, h)
	case EventPointerUp:
		b.up = append(b.up, h)
	}
	return CallbackHandle{id: h.id, bus: b, event: event}
}

// DispatchMove delivers ev to every move listener and reports whether
// there was one.
func (b *PointerBus) DispatchMove(ev PointerEvent) bool {
	return dispatch(b, EventPointerMove, ev)
}

func (b *PointerBus) DispatchUp(ev PointerEvent) bool {
	return dispatch(b, EventPointerUp, ev)
}

func dispatch(b *PointerBus, event EventType, ev PointerEvent) bool {
	b.mu.Lock()
	var src []pointerHandler
	if event == EventPointerMove {
		src = b.move
	} else {
		src = b.up
	}
	handlers := append([]pointerHandler(nil), src...)
	b.mu.Unlock()

	for _, h := range handlers {
		h.fn(ev)
	}
	return len(handlers) > 0
}

// Listeners returns the number of registered move and up listeners.
func (b *PointerBus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.move) + len(b.up)
}

// ActiveGesture owns the bus registrations of one gesture. Release drops
// them and is safe to call from every exit path.
type ActiveGesture struct {
	mu       sync.Mutex
	handles  []CallbackHandle
	released bool
}

func acquireGesture(bus *PointerBus, onMove, onUp func(PointerEvent)) *ActiveGesture {
	return &ActiveGesture{handles: []CallbackHandle{
		bus.OnPointerMove(onMove),
		bus.OnPointerUp(onUp),
	}}
}

func (g *ActiveGesture) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	for _, h := range g.handles {
		h.Remove()
	}
	g.handles = nil
}

func (g *ActiveGesture) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}
