package common

import (
	"vk_triangle/renderer"
)

// arena maps renderer handles onto native Vulkan objects of one kind. All arenas of a device share one
// counter, so a handle is unique across kinds and never reused.
type arena[T any] struct {
	next  *renderer.Handle
	items map[renderer.Handle]T
}

func newArena[T any](next *renderer.Handle) *arena[T] {
	return &arena[T]{
		next:  next,
		items: make(map[renderer.Handle]T),
	}
}

func (a *arena[T]) put(v T) renderer.Handle {
	*a.next++
	h := *a.next
	a.items[h] = v
	return h
}

func (a *arena[T]) get(h renderer.Handle) (T, bool) {
	v, ok := a.items[h]
	return v, ok
}

// take removes h and returns the object it referred to.
func (a *arena[T]) take(h renderer.Handle) (T, bool) {
	v, ok := a.items[h]
	if ok {
		delete(a.items, h)
	}
	return v, ok
}

func (a *arena[T]) len() int {
	return len(a.items)
}
