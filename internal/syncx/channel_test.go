package syncx

import (
	"sync"
	"testing"
	"time"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int](1)
	const n = 1000
	for i := 0; i < n; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) = false", i)
		}
	}
	q.Close()

	want := 0
	for v := range q.C() {
		if v != want {
			t.Fatalf("got %d, want %d", v, want)
		}
		want++
	}
	if want != n {
		t.Errorf("received %d values, want %d", want, n)
	}
}

func TestQueuePushDoesNotBlock(t *testing.T) {
	q := NewQueue[string](0)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Push("x")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked without a reader")
	}
	q.Close()
}

func TestQueueClose(t *testing.T) {
	q := NewQueue[int](4)
	q.Close()
	q.Close()
	if q.Push(1) {
		t.Error("Push after Close should return false")
	}
	if _, ok := <-q.C(); ok {
		t.Error("C should be closed")
	}
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue[int](2)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}

	count := make(chan int)
	go func() {
		n := 0
		for range q.C() {
			n++
		}
		count <- n
	}()
	wg.Wait()
	q.Close()
	if n := <-count; n != 800 {
		t.Errorf("received %d values, want 800", n)
	}
}
