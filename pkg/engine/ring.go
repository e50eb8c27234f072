package engine

// HistoryCapacity is the number of readings the engine retains.
const HistoryCapacity = 50

// Ring is a fixed capacity FIFO. Appending to a full ring evicts the oldest item.
type Ring[T any] struct {
	items  []T
	start  int
	length int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

func (r *Ring[T]) Append(item T) {
	end := (r.start + r.length) % len(r.items)
	r.items[end] = item
	if r.length < len(r.items) {
		r.length++
		return
	}
	r.start = (r.start + 1) % len(r.items)
}

func (r *Ring[T]) Len() int { return r.length }

func (r *Ring[T]) Cap() int { return len(r.items) }

// Items returns a copy of the retained items, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.length)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}
