package runner

import (
	"fmt"
	"sync"
)

type Task func() error

// RunPool executes tasks with at most maxWorkers concurrently and waits for
// all of them. Returns all errors; a panicking task counts as an error.
func RunPool(maxWorkers int, tasks []Task) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, maxWorkers)

	for _, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(t Task) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := safeRun(t); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(task)
	}
	wg.Wait()
	return errs
}

func safeRun(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t()
}
