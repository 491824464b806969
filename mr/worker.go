package mr

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
)

// Worker pulls tasks from a Coordinator, executes them against a Mapper
// or Reducer, publishes results through a Store, and reports completion
// back to the Coordinator. Workers are
// interchangeable; a job's concurrency is just the number of Workers
// running Run concurrently.
type Worker struct {
	conf WorkerConfig
	log  *log.Logger
}

// NewWorker validates conf and returns a Worker built from it.
func NewWorker(conf WorkerConfig, opts ...WorkerOption) (*Worker, error) {
	if err := validateWorkerConfig(conf); err != nil {
		return nil, err
	}
	w := &Worker{
		conf: conf,
		log:  log.New(os.Stderr, "[worker] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WorkerOption configures a Worker at construction time.
type WorkerOption func(*Worker)

// WithWorkerLogger overrides a Worker's logger.
func WithWorkerLogger(l *log.Logger) WorkerOption {
	return func(w *Worker) { w.log = l }
}

// Run fetches and executes tasks until a FINISH task arrives or ctx is
// cancelled between tasks. A task execution error is logged and does not
// stop the loop - the coordinator's timeout sweeper is what reclaims a
// task whose worker failed partway through.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task := w.conf.Coordinator.GetTask()
		if err := validateTask(task); err != nil {
			w.log.Printf("rejected malformed task: %v", err)
			return
		}
		if task.Kind == FinishTask {
			return
		}

		var err error
		switch task.Kind {
		case MapTask:
			err = w.handleMap(task)
		case ReduceTask:
			err = w.handleReduce(task)
		}
		if err != nil {
			w.log.Printf("task kind=%s id=%d failed: %v", task.Kind, task.ID, err)
		}
	}
}

// handleMap reads the task's single input file, maps it into intermediate
// entries, partitions them into R buckets by hash(key) mod R, publishes
// one shard per bucket, and reports the task. Every bucket's shard is
// written even when empty, so reducers can read uniformly.
func (w *Worker) handleMap(task *Task) error {
	content, err := w.conf.Store.ReadFile(task.Inputs[0], task.ID, MapTask)
	if err != nil {
		return err
	}

	entries := w.conf.Mapper(task.Inputs[0], content)

	buckets := make([][]Entry, task.R)
	for _, e := range entries {
		b := bucketFor(e.Key, task.R)
		buckets[b] = append(buckets[b], e)
	}

	outputs := make([]string, task.R)
	for b := 0; b < task.R; b++ {
		name := fmt.Sprintf("mr-%d-%d", task.ID, b)
		if err := w.conf.Store.Write(buckets[b], name, task.ID, MapTask); err != nil {
			return err
		}
		outputs[b] = name
	}

	task.registerOutputs(outputs)
	w.conf.Coordinator.ReportTask(task)
	return nil
}

// handleReduce reads every shard named in the task's inputs, groups
// values by key in lexicographic order, reduces each group, publishes
// the bucket's single output file, reports the task, and erases the
// shards it consumed.
func (w *Worker) handleReduce(task *Task) error {
	grouped := make(map[string][]string)
	var keys []string

	for _, name := range task.Inputs {
		entries, err := w.conf.Store.ReadEntries(name, task.ID, ReduceTask)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, seen := grouped[e.Key]; !seen {
				keys = append(keys, e.Key)
			}
			grouped[e.Key] = append(grouped[e.Key], e.Value)
		}
	}
	sort.Strings(keys)

	results := make([]Entry, 0, len(keys))
	for _, key := range keys {
		results = append(results, Entry{Key: key, Value: w.conf.Reducer(key, grouped[key])})
	}

	outName := fmt.Sprintf("mr-out-%d", task.Bucket)
	if err := w.conf.Store.Write(results, outName, task.ID, ReduceTask); err != nil {
		return err
	}

	task.registerOutputs([]string{outName})
	w.conf.Coordinator.ReportTask(task)

	return w.conf.Store.ClearFiles(task.Inputs, task.ID, ReduceTask)
}
