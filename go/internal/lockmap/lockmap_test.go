package lockmap

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	key := uuid.New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(key)
			v := counter
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d", counter)
	}
	if m.Len() != 0 {
		t.Fatalf("entries leaked: %d", m.Len())
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	m := New()
	unlockA := m.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock(uuid.New())
		unlock()
		close(done)
	}()
	<-done
}
