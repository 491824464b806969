package mr

import (
	"strconv"
	"testing"
	"time"
)

func TestCoordinatorRejectsEmptyInputs(t *testing.T) {
	if _, err := NewCoordinator(nil, 3); err == nil {
		t.Fatalf("expected ValidationError for empty inputs")
	}
	if _, err := NewCoordinator([]string{"a"}, 0); err == nil {
		t.Fatalf("expected ValidationError for r=0")
	}
}

func TestCoordinatorMapThenReducePhaseTransition(t *testing.T) {
	c, err := NewCoordinator([]string{"f0", "f1"}, 2, WithCheckInterval(1), WithTaskTimeout(60_000))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer c.Shutdown()

	for i := 0; i < 2; i++ {
		task := c.GetTask()
		if task.Kind != MapTask {
			t.Fatalf("expected MapTask, got %v", task.Kind)
		}
		task.registerOutputs([]string{taskOutputName(task.ID, 0), taskOutputName(task.ID, 1)})
		c.ReportTask(task)
	}

	if !c.reducesBuilt.Load() {
		t.Fatalf("expected reduce tasks to have been built after all maps reported")
	}

	seenBuckets := map[int]bool{}
	for i := 0; i < 2; i++ {
		task := c.GetTask()
		if task.Kind != ReduceTask {
			t.Fatalf("expected ReduceTask, got %v", task.Kind)
		}
		seenBuckets[task.Bucket] = true
		wantInputs := []string{taskOutputName(0, task.Bucket), taskOutputName(1, task.Bucket)}
		for j, in := range task.Inputs {
			if in != wantInputs[j] {
				t.Fatalf("reduce task %d input %d: got %q want %q", task.Bucket, j, in, wantInputs[j])
			}
		}
		task.registerOutputs([]string{"mr-out-" + strconv.Itoa(task.Bucket)})
		c.ReportTask(task)
	}
	if len(seenBuckets) != 2 {
		t.Fatalf("expected both buckets 0 and 1, got %v", seenBuckets)
	}

	if !c.IsDone() {
		t.Fatalf("expected coordinator to be done")
	}
	finish := c.GetTask()
	if finish.Kind != FinishTask {
		t.Fatalf("expected FinishTask once done, got %v", finish.Kind)
	}
}

func taskOutputName(taskID, bucket int) string {
	return "mr-" + strconv.Itoa(taskID) + "-" + strconv.Itoa(bucket)
}

func TestCoordinatorReportTaskTwiceCountsOnce(t *testing.T) {
	c, err := NewCoordinator([]string{"f0"}, 1, WithCheckInterval(3600), WithTaskTimeout(3_600_000))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer c.Shutdown()

	task := c.GetTask()
	task.registerOutputs([]string{"mr-0-0"})
	c.ReportTask(task)

	stats := c.Stats()
	if stats.MapDone != 1 {
		t.Fatalf("expected mapDone=1 after first report, got %d", stats.MapDone)
	}

	// A duplicate report for the same (already-removed) lease must be a
	// no-op: the leased map no longer contains it.
	c.ReportTask(task)
	stats = c.Stats()
	if stats.MapDone != 1 {
		t.Fatalf("expected mapDone to stay 1 after duplicate report, got %d", stats.MapDone)
	}
}

func TestCoordinatorLateReportAfterTimeoutDiscarded(t *testing.T) {
	c, err := NewCoordinator([]string{"f0"}, 1, WithCheckInitialInterval(1), WithCheckInterval(1), WithTaskTimeout(0))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer c.Shutdown()

	workerA := c.GetTask() // worker A leases task 0, well before the first sweep at 1s

	// Let the timeout sweep observe the expired lease (taskTimeout=0) and
	// requeue it.
	time.Sleep(1300 * time.Millisecond)

	workerB := c.GetTask() // worker B re-leases the requeued task
	if workerB.ID != workerA.ID || workerB.Kind != workerA.Kind {
		t.Fatalf("expected worker B to re-lease the same task, got %+v", workerB)
	}

	workerB.registerOutputs([]string{"mr-0-0"})
	c.ReportTask(workerB)
	if got := c.Stats().MapDone; got != 1 {
		t.Fatalf("expected mapDone=1 after B's report, got %d", got)
	}

	// A's late report must be discarded: it no longer holds the lease.
	workerA.registerOutputs([]string{"mr-0-0"})
	c.ReportTask(workerA)
	if got := c.Stats().MapDone; got != 1 {
		t.Fatalf("expected mapDone to remain 1 after A's late report, got %d", got)
	}
}

func TestCoordinatorShutdownUnblocksWaiters(t *testing.T) {
	c, err := NewCoordinator([]string{"f0"}, 1, WithCheckInterval(3600))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	// Drain the single map task so every further GetTask call blocks.
	_ = c.GetTask()

	type result struct{ kind TaskKind }
	results := make(chan result, 4)
	for i := 0; i < 4; i++ {
		go func() {
			task := c.GetTask()
			results <- result{kind: task.Kind}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	c.Shutdown()

	deadline := time.After(2 * time.Second)
	for i := 0; i < 4; i++ {
		select {
		case r := <-results:
			if r.kind != FinishTask {
				t.Fatalf("expected FinishTask after shutdown, got %v", r.kind)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for worker %d to unblock after shutdown", i)
		}
	}
}

func TestCoordinatorEmptyReduceGroupStillRequeuesAllBuckets(t *testing.T) {
	c, err := NewCoordinator([]string{"f0"}, 4, WithCheckInterval(3600))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer c.Shutdown()

	task := c.GetTask()
	task.registerOutputs([]string{"mr-0-0", "mr-0-1", "mr-0-2", "mr-0-3"})
	c.ReportTask(task)

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		rt := c.GetTask()
		if rt.Kind != ReduceTask {
			t.Fatalf("expected ReduceTask, got %v", rt.Kind)
		}
		seen[rt.Bucket] = true
		rt.registerOutputs([]string{"mr-out-" + strconv.Itoa(rt.Bucket)})
		c.ReportTask(rt)
	}
	for b := 0; b < 4; b++ {
		if !seen[b] {
			t.Fatalf("bucket %d was never scheduled", b)
		}
	}
}
