package opt

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheLineSize(t *testing.T) {
	if CacheLineSize_ == 0 || CacheLineSize_&(CacheLineSize_-1) != 0 {
		t.Fatalf("CacheLineSize_ = %d, want a power of two", CacheLineSize_)
	}
}

func TestWaitModeString(t *testing.T) {
	cases := []struct {
		m    WaitMode
		want string
	}{
		{WaitKernel, "kernel"},
		{WaitTable, "table"},
		{WaitSpin, "spin"},
		{WaitMode(42), "unknown"},
	}
	for _, c := range cases {
		if got := c.m.String(); got != c.want {
			t.Errorf("WaitMode(%d).String() = %q, want %q", int(c.m), got, c.want)
		}
	}
	if WaitMode_.String() == "unknown" {
		t.Errorf("WaitMode_ = %d is not a known mode", int(WaitMode_))
	}
}

func TestSema(t *testing.T) {
	var s Sema
	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Acquire returned before Release")
	case <-time.After(20 * time.Millisecond):
	}
	s.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}

	// A Release ahead of the Acquire is not lost.
	s.Release()
	s.Acquire()

	const n = 8
	var woken atomic.Int32
	for range n {
		go func() {
			s.Acquire()
			woken.Add(1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	for range n {
		s.Release()
	}
	deadline := time.Now().Add(time.Second)
	for woken.Load() != n {
		if time.Now().After(deadline) {
			t.Fatalf("%d of %d waiters woke up", woken.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}
