package helpers

import (
	"fmt"
	"runtime"
	"time"
)

// GoroutineSnapshot captures the state of goroutines at a point in time
type GoroutineSnapshot struct {
	Count     int
	Timestamp time.Time
}

// TakeGoroutineSnapshot captures current goroutine count
func TakeGoroutineSnapshot() *GoroutineSnapshot {
	return &GoroutineSnapshot{
		Count:     runtime.NumGoroutine(),
		Timestamp: time.Now(),
	}
}

// WaitForGoroutineCleanup waits until no more than tolerance goroutines remain
// above the snapshot, retrying with GC
func WaitForGoroutineCleanup(before *GoroutineSnapshot, maxWait time.Duration, tolerance int) error {
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		if runtime.NumGoroutine()-before.Count <= tolerance {
			return nil
		}
		runtime.GC()
		time.Sleep(50 * time.Millisecond)
	}

	final := runtime.NumGoroutine()
	return fmt.Errorf("goroutine leak detected: started with %d, ended with %d (tolerance %d)",
		before.Count, final, tolerance)
}

// RunConcurrently starts n goroutines running fn and waits for them. The errors
// are returned in goroutine order.
func RunConcurrently(n int, fn func(id int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			<-start
			errs[id] = fn(id)
			done <- id
		}(i)
	}
	close(start)
	for i := 0; i < n; i++ {
		<-done
	}
	return errs
}
