// stress.go implements the 'stmdiag stress' command.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/kolkov/gostm/stm"
)

// defaultStressDuration is how long the workload runs when no duration
// argument is given.
const defaultStressDuration = 1 * time.Second

// stressCommand implements 'stmdiag stress [duration]'. It runs
// GOMAXPROCS goroutines each repeatedly incrementing a shared counter
// through stm.Atomically until duration elapses, then reports the total
// commits observed and the achieved rate. This is a sanity check that the
// commit protocol makes forward progress under real contention, not a
// benchmark harness.
func stressCommand(args []string) {
	duration := defaultStressDuration
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid duration %q: %v\n", args[0], err)
			os.Exit(1)
		}
		duration = d
	}

	rt := stm.NewRuntime()
	counter := stm.NewVarIn(rt, 0)

	goroutines := runtime.GOMAXPROCS(0)
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					stm.AtomicallyIn(rt, func(tx *stm.Tx) any {
						stm.Store(tx, counter, stm.Load(tx, counter)+1)
						return nil
					})
				}
			}
		}()
	}

	fmt.Printf("running %d goroutines against one Var for %s...\n", goroutines, duration)
	time.Sleep(duration)
	close(stop)
	wg.Wait()

	total := stm.AtomicallyIn(rt, func(tx *stm.Tx) int {
		return stm.Load(tx, counter)
	})

	rate := float64(total) / duration.Seconds()
	fmt.Printf("committed %d increments (%.0f/sec)\n", total, rate)
}
