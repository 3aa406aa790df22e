package service

import (
	"context"
	"strings"
	"sync"
)

// BatchError aggregates per-record failures of one batch.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "multiple errors: " + strings.Join(msgs, "; ")
}

func (e *BatchError) Unwrap() []error { return e.Errors }

func asBatchError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &BatchError{Errors: errs}
}

// runIndexed calls fn for 0..total-1 on a bounded pool. Indexes not yet
// handed out when ctx is done are never run.
func runIndexed(ctx context.Context, workers, total int, fn func(idx int)) {
	if total == 0 {
		return
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > total {
		workers = total
	}
	indexCh := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				fn(idx)
			}
		}()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
}
