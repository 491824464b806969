package mr

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// CoordinatorStats is a point-in-time snapshot of the job's progress,
// useful for logging and tests; it takes the same locks reportTask does
// and never blocks a caller of getTask.
type CoordinatorStats struct {
	MapDone, MapTotal       int
	ReduceDone, ReduceTotal int
	Idle, Leased            int
}

// CoordinatorOption configures tunables on a Coordinator at construction
// time.
type CoordinatorOption func(*Coordinator)

// WithCheckInitialInterval sets the delay, in seconds, before the
// timeout sweeper's first pass.
func WithCheckInitialInterval(seconds int) CoordinatorOption {
	return func(c *Coordinator) { c.checkInitialInterval = seconds }
}

// WithCheckInterval sets the cadence, in seconds, between timeout sweeps.
func WithCheckInterval(seconds int) CoordinatorOption {
	return func(c *Coordinator) { c.checkInterval = seconds }
}

// WithTaskTimeout sets the maximum lease age, in milliseconds, before a
// task is considered abandoned and requeued.
func WithTaskTimeout(millis int) CoordinatorOption {
	return func(c *Coordinator) { c.taskTimeout = time.Duration(millis) * time.Millisecond }
}

// WithLogger overrides the coordinator's logger; by default it logs to
// stderr with a "[coordinator] " prefix.
func WithLogger(l *log.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator leases MAP and REDUCE tasks to workers, reclaims leases that
// time out, builds the reduce phase exactly once after every map task has
// been reported, and hands out a FINISH sentinel once the job is done.
//
// Coordinator is safe for concurrent use by any number of workers.
type Coordinator struct {
	log *log.Logger

	checkInitialInterval int // seconds
	checkInterval        int // seconds
	taskTimeout          time.Duration

	m, r int // total map tasks, total reduce tasks

	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*Task
	leased   map[int]*leasedTask // keyed by leaseKey(kind, id) below
	mapTasks []*Task

	mapDone, reduceDone int32 // atomic counters
	reducesBuilt        atomic.Bool
	done                atomic.Bool

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// leasedTask pairs a Task with its lease slot in the leased map, keyed by
// kind and id so map task 0 and reduce task 0 never collide.
type leasedTask struct {
	task *Task
}

func leaseKey(kind TaskKind, id int) int {
	// Map and reduce task ids both start at 0, but they never contend
	// for the same leased-map slot because kind is folded into the key.
	return int(kind)<<32 | id
}

// NewCoordinator builds a Coordinator over inputs (one MAP task per file)
// with r reduce buckets, starts its timeout sweeper, and returns it ready
// to hand out tasks. It rejects an empty input list or a non-positive r.
func NewCoordinator(inputs []string, r int, opts ...CoordinatorOption) (*Coordinator, error) {
	if err := validateCoordinatorInputs(inputs, r); err != nil {
		return nil, err
	}

	c := &Coordinator{
		log:                  log.New(os.Stderr, "[coordinator] ", log.LstdFlags),
		checkInitialInterval: 10,
		checkInterval:        10,
		taskTimeout:          10 * time.Second,
		m:                    len(inputs),
		r:                    r,
		leased:               make(map[int]*leasedTask),
		mapTasks:             make([]*Task, len(inputs)),
		stopSweep:            make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)

	for _, opt := range opts {
		opt(c)
	}

	for i, in := range inputs {
		t := newMapTask(i, in, r)
		c.mapTasks[i] = t
		c.idle = append(c.idle, t)
	}
	c.cond.Broadcast()

	go c.runSweeper()
	return c, nil
}

// getTask returns the next task for a worker to run, blocking while the
// idle queue is empty and the job is not yet done. If the job is already
// done it returns the FINISH sentinel immediately.
func (c *Coordinator) getTask() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.isDoneLocked() {
			return finishTask(c.r)
		}
		for len(c.idle) == 0 {
			if c.done.Load() {
				return finishTask(c.r)
			}
			c.cond.Wait()
			if c.isDoneLocked() {
				return finishTask(c.r)
			}
		}

		task := c.idle[0]
		c.idle = c.idle[1:]

		task.Status = InProgress
		task.LeaseStart = time.Now()
		key := leaseKey(task.Kind, task.ID)
		c.leased[key] = &leasedTask{task: task}
		return task.clone()
	}
}

// GetTask is the exported entry point workers call.
func (c *Coordinator) GetTask() *Task { return c.getTask() }

// reportTask accepts a completed task's result. A task id not currently
// present in the leased map (because it was never leased, its lease
// already timed out and was reassigned, or it was already reported by an
// earlier report racing this one) is silently discarded: that is the
// mechanism that keeps a late report from a superseded lease from
// double-counting completion.
func (c *Coordinator) reportTask(reported *Task) {
	c.mu.Lock()
	key := leaseKey(reported.Kind, reported.ID)
	lt, ok := c.leased[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.leased, key)

	task := lt.task
	task.registerOutputs(reported.Outputs())
	task.Status = Completed
	c.mu.Unlock()

	switch reported.Kind {
	case MapTask:
		if atomic.AddInt32(&c.mapDone, 1) == int32(c.m) {
			c.log.Printf("all %d map tasks completed", c.m)
			c.buildReduceTasks()
		}
	case ReduceTask:
		if atomic.AddInt32(&c.reduceDone, 1) == int32(c.r) {
			c.log.Printf("all %d reduce tasks completed", c.r)
			c.done.Store(true)
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		}
	}
}

// ReportTask is the exported entry point workers call.
func (c *Coordinator) ReportTask(t *Task) { c.reportTask(t) }

// buildReduceTasks materializes the R reduce tasks exactly once, each
// fed the i-th output of every map task. It runs under a one-shot latch
// so that a report racing an already-arrived late report cannot enqueue
// the reduce phase twice.
func (c *Coordinator) buildReduceTasks() {
	if !c.reducesBuilt.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	for b := 0; b < c.r; b++ {
		bucketInputs := make([]string, c.m)
		for j := 0; j < c.m; j++ {
			outs := c.mapTasks[j].Outputs()
			bucketInputs[j] = outs[b]
		}
		c.idle = append(c.idle, newReduceTask(b, bucketInputs, c.r))
	}
	c.cond.Broadcast()
	c.mu.Unlock()
}

// isDone reports whether every map and reduce task has been completed.
func (c *Coordinator) isDone() bool {
	return atomic.LoadInt32(&c.mapDone) == int32(c.m) && atomic.LoadInt32(&c.reduceDone) == int32(c.r)
}

func (c *Coordinator) isDoneLocked() bool { return c.isDone() }

// IsDone is the exported entry point workers and the driver call.
func (c *Coordinator) IsDone() bool { return c.isDone() }

// Stats returns a snapshot of the job's progress.
func (c *Coordinator) Stats() CoordinatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CoordinatorStats{
		MapDone:     int(atomic.LoadInt32(&c.mapDone)),
		MapTotal:    c.m,
		ReduceDone:  int(atomic.LoadInt32(&c.reduceDone)),
		ReduceTotal: c.r,
		Idle:        len(c.idle),
		Leased:      len(c.leased),
	}
}

// Shutdown clears the idle and leased queues, forces the completion
// counters to their targets, wakes every worker blocked in getTask (they
// will observe isDone and receive FINISH), and stops the sweeper. It is
// idempotent.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.idle = nil
	c.leased = make(map[int]*leasedTask)
	atomic.StoreInt32(&c.mapDone, int32(c.m))
	atomic.StoreInt32(&c.reduceDone, int32(c.r))
	c.done.Store(true)
	c.cond.Broadcast()
	c.mu.Unlock()

	c.sweepOnce.Do(func() { close(c.stopSweep) })
	c.log.Printf("coordinator shut down")
}

// runSweeper periodically reclaims leases that have outlived taskTimeout,
// returning each one to the idle queue. The atomic remove-if-present
// against the leased map ensures a timely reportTask from the original
// worker either wins (the sweeper finds nothing) or loses (the sweeper
// requeues, and the late report will then find the key absent).
func (c *Coordinator) runSweeper() {
	initial := time.Duration(c.checkInitialInterval) * time.Second
	interval := time.Duration(c.checkInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	timer := time.NewTimer(initial)
	defer timer.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-timer.C:
			c.sweepExpired()
			timer.Reset(interval)
		}
	}
}

func (c *Coordinator) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	var requeued []*Task
	for key, lt := range c.leased {
		if lt.task.Status == InProgress && now.Sub(lt.task.LeaseStart) > c.taskTimeout {
			delete(c.leased, key)
			lt.task.Status = Idle
			c.idle = append(c.idle, lt.task)
			requeued = append(requeued, lt.task)
		}
	}
	if len(requeued) > 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	for _, t := range requeued {
		c.log.Printf("task kind=%s id=%d lease expired, returned to idle queue", t.Kind, t.ID)
	}
}
