package mr

import (
	"context"
	"sync"
	"time"
)

// RunJob builds a Coordinator and Store over inputs, starts workerCount
// Worker goroutines sharing them, waits for the job to finish, then shuts
// the coordinator down and waits for every worker to exit. It is the thin
// job-driver layer: its own interesting behavior is entirely delegated to
// the Coordinator and Worker it assembles.
func RunJob(root string, inputs []string, r, workerCount int, mapper Mapper, reducer Reducer, opts ...CoordinatorOption) error {
	store, err := NewStore(root)
	if err != nil {
		return err
	}

	coord, err := NewCoordinator(inputs, r, opts...)
	if err != nil {
		return err
	}

	conf := WorkerConfig{
		Coordinator: coord,
		Mapper:      mapper,
		Reducer:     reducer,
		Store:       store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		w, err := NewWorker(conf)
		if err != nil {
			cancel()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !coord.IsDone() {
		<-ticker.C
	}

	coord.Shutdown()
	wg.Wait()
	return nil
}
