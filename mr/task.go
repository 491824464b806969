package mr

import "time"

// TaskKind identifies what a Task asks a worker to do.
type TaskKind int

const (
	MapTask TaskKind = iota
	ReduceTask
	FinishTask
)

func (k TaskKind) String() string {
	switch k {
	case MapTask:
		return "map"
	case ReduceTask:
		return "reduce"
	case FinishTask:
		return "finish"
	default:
		return "unknown"
	}
}

// TaskStatus tracks where a Task sits in its lease lifecycle.
type TaskStatus int

const (
	Idle TaskStatus = iota
	InProgress
	Completed
)

func (s TaskStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Task is the unit of work exchanged between the Coordinator and a Worker.
//
// For a MapTask, ID is the index of its single input file in [0, M).
// For a ReduceTask, ID is the bucket index in [0, R), same as Bucket.
// For the FinishTask sentinel, ID is -1 and Bucket is -1.
//
// Outputs is write-once: registerOutputs only takes effect the first time
// it is called for a given Task. A second writer racing after a timeout
// will have its outputs silently dropped, which is fine because every
// worker re-executing the same task id produces equivalent content.
type Task struct {
	ID     int
	Kind   TaskKind
	Inputs []string
	R      int
	Bucket int

	Status     TaskStatus
	LeaseStart time.Time

	outputs     []string
	outputsDone bool
}

func newMapTask(id int, input string, r int) *Task {
	return &Task{
		ID:     id,
		Kind:   MapTask,
		Inputs: []string{input},
		R:      r,
		Bucket: -1,
		Status: Idle,
	}
}

func newReduceTask(bucket int, inputs []string, r int) *Task {
	return &Task{
		ID:     bucket,
		Kind:   ReduceTask,
		Inputs: inputs,
		R:      r,
		Bucket: bucket,
		Status: Idle,
	}
}

// finishTask builds the sentinel that tells a worker there is nothing left
// to do. Its shape (id -1, a single empty input, bucket -1) matches the
// FINISH record described for external callers.
func finishTask(r int) *Task {
	return &Task{
		ID:     -1,
		Kind:   FinishTask,
		Inputs: []string{""},
		R:      r,
		Bucket: -1,
		Status: Idle,
	}
}

// registerOutputs sets the task's output file names, but only once. Later
// callers are silently ignored; the coordinator's discard-late-report rule
// is what actually protects counters from double-counting a task.
func (t *Task) registerOutputs(files []string) {
	if t.outputsDone {
		return
	}
	t.outputs = append([]string(nil), files...)
	t.outputsDone = true
}

// Outputs returns the files this task has published, or nil if none yet.
func (t *Task) Outputs() []string {
	return t.outputs
}

// clone returns a shallow copy safe to hand to a caller without exposing
// the coordinator's internal Task pointer for further mutation.
func (t *Task) clone() *Task {
	c := *t
	c.Inputs = append([]string(nil), t.Inputs...)
	c.outputs = append([]string(nil), t.outputs...)
	return &c
}
