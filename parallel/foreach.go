package parallel

import (
	"sync"
	"sync/atomic"
)

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each index from 0 to length is passed to body exactly once. With limit 1
// the loop runs on the calling goroutine.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1 // Default to 1 if limit is zero or negative
	}
	if length <= 0 {
		return // No iterations to perform
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}
	if limit > length {
		limit = length
	}

	var (
		next int64          // Atomic counter for the next index.
		wg   sync.WaitGroup // WaitGroup to wait for all goroutines.
	)
	wg.Add(limit)
	for n := 0; n < limit; n++ {
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&next, 1) - 1)
				if i >= length {
					return
				}
				body(i)
			}
		}()
	}

	wg.Wait() // Wait for all goroutines to finish
}
