package atomsem

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/sync/semaphore"
)

// ------------------------------------------------------
// Uncontended

func BenchmarkUncontended_BinarySemaphore(b *testing.B) {
	b.ReportAllocs()
	s := NewBinarySemaphore(true)
	for b.Loop() {
		s.Acquire()
		s.Release()
	}
}

func BenchmarkUncontended_CountingSemaphore(b *testing.B) {
	b.ReportAllocs()
	s := NewCountingSemaphore(1)
	for b.Loop() {
		s.Acquire()
		s.Release(1, NotifyOne)
	}
}

func BenchmarkUncontended_Weighted(b *testing.B) {
	b.ReportAllocs()
	s := semaphore.NewWeighted(1)
	ctx := context.Background()
	for b.Loop() {
		_ = s.Acquire(ctx, 1)
		s.Release(1)
	}
}

func BenchmarkUncontended_Mutex(b *testing.B) {
	b.ReportAllocs()
	var mu sync.Mutex
	for b.Loop() {
		mu.Lock()
		mu.Unlock()
	}
}

// ------------------------------------------------------
// Contended

func BenchmarkContended_BinarySemaphore(b *testing.B) {
	for _, tw := range testWaiters {
		b.Run(tw.name, func(b *testing.B) {
			b.ReportAllocs()
			s := NewBinarySemaphore(true, WithWaiter(tw.w))
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					s.Acquire()
					s.Release()
				}
			})
		})
	}
}

func BenchmarkContended_CountingSemaphore(b *testing.B) {
	for _, tw := range testWaiters {
		b.Run(tw.name, func(b *testing.B) {
			b.ReportAllocs()
			s := NewCountingSemaphore(4, WithWaiter(tw.w))
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					s.Acquire()
					s.Release(1, NotifyOne)
				}
			})
		})
	}
}

func BenchmarkContended_Weighted(b *testing.B) {
	b.ReportAllocs()
	s := semaphore.NewWeighted(4)
	ctx := context.Background()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.Acquire(ctx, 1)
			s.Release(1)
		}
	})
}

func BenchmarkContended_Mutex(b *testing.B) {
	b.ReportAllocs()
	var mu sync.Mutex
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			mu.Lock()
			mu.Unlock()
		}
	})
}

// ------------------------------------------------------
// Wait table

func BenchmarkWaitTable_NotifyNoWaiters(b *testing.B) {
	var table AddressWaitTable
	var word uint32
	for b.Loop() {
		table.NotifyAll(&word)
	}
}

func BenchmarkWaitTable_PingPong(b *testing.B) {
	b.ReportAllocs()
	ping := NewBinarySemaphore(false, WithWaiter(TableWaiter{}), WithSpinThreshold(1))
	pong := NewBinarySemaphore(false, WithWaiter(TableWaiter{}), WithSpinThreshold(1))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range b.N {
			ping.Acquire()
			pong.Release()
		}
	}()
	for range b.N {
		ping.Release()
		pong.Acquire()
	}
	<-done
}
