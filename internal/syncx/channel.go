package syncx

import "sync"

// Queue 无界队列，Push 永不阻塞
//
// Values pushed before Close are all delivered on C, which is closed once
// the backlog is drained.
type Queue[T any] struct {
	in  chan T
	out chan T

	mu     sync.RWMutex
	closed bool
}

func NewQueue[T any](capacity int) *Queue[T] {
	q := &Queue[T]{
		in:  make(chan T, capacity),
		out: make(chan T, capacity),
	}
	go q.forward(capacity)
	return q
}

func (q *Queue[T]) forward(capacity int) {
	defer close(q.out)
	backlog := make([]T, 0, capacity)

	for {
		if len(backlog) == 0 {
			v, ok := <-q.in
			if !ok {
				return
			}
			select {
			case q.out <- v:
			default:
				backlog = append(backlog, v)
			}
			continue
		}

		select {
		case v, ok := <-q.in:
			if !ok {
				for _, v := range backlog {
					q.out <- v
				}
				return
			}
			backlog = append(backlog, v)
		case q.out <- backlog[0]:
			var zero T
			backlog[0] = zero
			backlog = backlog[1:]
			if len(backlog) == 0 {
				backlog = make([]T, 0, capacity) // release the old array
			}
		}
	}
}

// Push 入队，队列已关闭时返回 false
func (q *Queue[T]) Push(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	q.in <- v
	return true
}

func (q *Queue[T]) C() <-chan T {
	return q.out
}

// Close 关闭队列，可重复调用
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.in)
	}
}
