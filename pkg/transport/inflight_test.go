package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInFlightRegistry(t *testing.T) {
	r := NewInFlightRegistry()
	var stopped []string
	stop := func(id string) func() { return func() { stopped = append(stopped, id) } }

	r.Register("resp_a", stop("resp_a"))
	r.Register("resp_b", stop("resp_b"))
	r.Remove("resp_b")
	r.Remove("resp_never_registered")

	if !r.Cancel("resp_a") {
		t.Error("Cancel(resp_a) = false for a registered id")
	}
	if r.Cancel("resp_a") {
		t.Error("second Cancel(resp_a) = true")
	}
	if r.Cancel("resp_b") {
		t.Error("Cancel after Remove = true")
	}
	if fmt.Sprint(stopped) != "[resp_a]" {
		t.Errorf("stopped = %v, want only resp_a", stopped)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestInFlightRegistryReplace(t *testing.T) {
	r := NewInFlightRegistry()
	var first, second bool
	r.Register("resp_x", func() { first = true })
	r.Register("resp_x", func() { second = true })
	r.Cancel("resp_x")
	if first || !second {
		t.Errorf("first=%v second=%v, want only the replacement called", first, second)
	}
}

func TestInFlightRegistryConcurrent(t *testing.T) {
	r := NewInFlightRegistry()
	var calls atomic.Int64
	const n = 64

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() { r.Register(fmt.Sprintf("resp_%03d", i), func() { calls.Add(1) }) })
	}
	wg.Wait()

	for i := range n {
		wg.Go(func() {
			id := fmt.Sprintf("resp_%03d", i)
			if i%2 == 0 {
				r.Cancel(id)
			} else {
				r.Remove(id)
			}
		})
	}
	wg.Wait()

	if calls.Load() != n/2 {
		t.Errorf("cancel funcs called %d times, want %d", calls.Load(), n/2)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after draining", r.Len())
	}
}
