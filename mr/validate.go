package mr

// rule is a single named validation check against a value of type T: a
// name, a predicate, and a message. Each call site runs a fixed list of
// rules rather than exposing add/remove-rule, since nothing here needs a
// mutable rule set at runtime.
type rule[T any] struct {
	name    string
	ok      func(T) bool
	message func(T) string
}

func runRules[T any](v T, rules []rule[T]) []string {
	var errs []string
	for _, r := range rules {
		if !r.ok(v) {
			errs = append(errs, r.message(v))
		}
	}
	return errs
}

func validateCoordinatorInputs(inputs []string, r int) error {
	var errs []string
	if len(inputs) == 0 {
		errs = append(errs, "input files cannot be empty")
	}
	if r <= 0 {
		errs = append(errs, "reduce task count must be greater than 0")
	}
	return newValidationError(errs)
}

var taskRules = []rule[*Task]{
	{
		name: "kind-not-unset",
		ok: func(t *Task) bool {
			return t.Kind == MapTask || t.Kind == ReduceTask || t.Kind == FinishTask
		},
		message: func(t *Task) string { return "task kind is invalid" },
	},
	{
		name: "id-non-negative",
		ok: func(t *Task) bool {
			return t.Kind == FinishTask || t.ID >= 0
		},
		message: func(t *Task) string { return "task id cannot be negative" },
	},
	{
		name: "status-leased",
		ok: func(t *Task) bool {
			return t.Kind == FinishTask || t.Status == InProgress
		},
		message: func(t *Task) string {
			return "leased task must arrive as in_progress, got " + t.Status.String()
		},
	},
	{
		name: "inputs-present",
		ok: func(t *Task) bool {
			return t.Kind == FinishTask || len(t.Inputs) > 0
		},
		message: func(t *Task) string { return "task has no input files" },
	},
}

// validateTask rejects malformed task records before a worker dispatches
// on their kind. FINISH bypasses every input-file and status check except
// the kind check itself.
func validateTask(t *Task) error {
	return newValidationError(runRules(t, taskRules))
}

// WorkerConfig groups the collaborators a Worker needs: coordinator,
// mapper, reducer, and storage, each validated before a worker can be
// built.
type WorkerConfig struct {
	Coordinator *Coordinator
	Mapper      Mapper
	Reducer     Reducer
	Store       FileStore
}

var workerConfigRules = []rule[WorkerConfig]{
	{"coordinator-not-nil", func(c WorkerConfig) bool { return c.Coordinator != nil }, func(WorkerConfig) string { return "coordinator cannot be nil" }},
	{"mapper-not-nil", func(c WorkerConfig) bool { return c.Mapper != nil }, func(WorkerConfig) string { return "mapper cannot be nil" }},
	{"reducer-not-nil", func(c WorkerConfig) bool { return c.Reducer != nil }, func(WorkerConfig) string { return "reducer cannot be nil" }},
	{"store-not-nil", func(c WorkerConfig) bool { return c.Store != nil }, func(WorkerConfig) string { return "store cannot be nil" }},
}

func validateWorkerConfig(c WorkerConfig) error {
	return newValidationError(runRules(c, workerConfigRules))
}
