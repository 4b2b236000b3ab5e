package tunping

import "sync"

var globalWaitGroup = sync.WaitGroup{}

// WithWaitGroup runs f in a goroutine tracked by AllSettled.
func WithWaitGroup(f func()) {
	globalWaitGroup.Add(1)

	go func() {
		defer globalWaitGroup.Done()
		f()
	}()
}

// AllSettled blocks until every function started with WithWaitGroup returned.
func AllSettled() {
	globalWaitGroup.Wait()
}
