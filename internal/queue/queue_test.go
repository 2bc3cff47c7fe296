package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int](4)

	for i := 0; i < 3; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}

	for i := 0; i < 3; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowPreservesOrder(t *testing.T) {
	q := New[int](2)

	// Wrap the ring before growing.
	q.Push(-1)
	q.TryPop()

	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Len != 100 {
		t.Errorf("Len = %d, want 100", stats.Len)
	}
	if stats.Resizes < 5 {
		t.Errorf("Resizes = %d, expected at least 5", stats.Resizes)
	}

	for i := 0; i < 100; i++ {
		val, _ := q.TryPop()
		if val != i {
			t.Fatalf("popped %d, want %d", val, i)
		}
	}
}

func TestQueue_BlockingPop(t *testing.T) {
	q := New[int](1)
	received := make(chan int, 1)

	go func() {
		if val, ok := q.Pop(); ok {
			received <- val
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("received %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := New[string](4)
	q.Push("a")
	q.Push("b")
	q.Close()

	if q.Push("c") {
		t.Error("Push after Close returned true")
	}

	for _, want := range []string{"a", "b"} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %q, %v, want %q, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned true")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := New[int](1)
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not released by Close")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int](8)
	var wg sync.WaitGroup

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	stats := q.Stats()
	if stats.Pushed != 1000 || stats.Len != 1000 {
		t.Errorf("Stats = %+v, want 1000 pushed and queued", stats)
	}
}
