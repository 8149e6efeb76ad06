package stream

import (
	"runtime"
	"sync"
)

// parallelRange executes fn for each i in [start,end). The range is split among
// available CPUs.
func parallelRange(start, end int, fn func(i int)) {
	total := end - start
	if total <= 0 {
		return
	}
	workers := min(runtime.GOMAXPROCS(0), total)
	chunk := (total + workers - 1) / workers

	var wg sync.WaitGroup
	for s := start; s < end; s += chunk {
		e := min(s+chunk, end)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}(s, e)
	}
	wg.Wait()
}
