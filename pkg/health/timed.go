package health

import "time"

// Outcome is the result of one timed call.
type Outcome[T any] struct {
	Elapsed time.Duration
	Value   T
	Err     error
}

func (o Outcome[T]) Succeeded() bool {
	return o.Err == nil
}

func (o Outcome[T]) ElapsedMs() int64 {
	if o.Elapsed < 0 {
		return 0
	}
	return o.Elapsed.Milliseconds()
}

// TimeValue runs fn exactly once and measures how long it took. It does not
// retry and imposes no timeout of its own.
func TimeValue[T any](fn func() (T, error)) Outcome[T] {
	start := time.Now()
	v, err := fn()
	return Outcome[T]{Elapsed: time.Since(start), Value: v, Err: err}
}

func Time(fn func() error) Outcome[struct{}] {
	return TimeValue(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
