package core

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

// TestCreateTask_DoesNotRun verifies that creating a task neither runs nor publishes it
// Given: A task created with CreateTask
// When: Nothing executes it
// Then: The task is Pending and its Future has no outcome
func TestCreateTask_DoesNotRun(t *testing.T) {
	ran := false
	task, f := CreateTask(func(ctx context.Context) (int, error) {
		ran = true
		return 1, nil
	})

	if ran {
		t.Error("callable ran during CreateTask")
	}
	if task.State() != TaskPending {
		t.Errorf("State() = %v, want %v", task.State(), TaskPending)
	}
	if _, ok, _ := f.TryGet(); ok {
		t.Error("TryGet reported an outcome before execution")
	}
	if f.State() != TaskPending {
		t.Errorf("Future.State() = %v, want %v", f.State(), TaskPending)
	}
}

// TestTask_Execute_Value verifies the success path
// Main test items:
// 1. The value reaches the Future
// 2. The state ends as Completed
// 3. Repeated Wait returns the same outcome
func TestTask_Execute_Value(t *testing.T) {
	task, f := CreateTask(func(ctx context.Context) (string, error) {
		return "done", nil
	})

	panicked, err := task.execute(context.Background())
	if panicked || err != nil {
		t.Fatalf("execute = (%v, %v), want (false, nil)", panicked, err)
	}

	for i := range 2 {
		v, err := f.Wait()
		if err != nil || v != "done" {
			t.Errorf("Wait #%d = (%q, %v), want (\"done\", nil)", i, v, err)
		}
	}
	if task.State() != TaskCompleted {
		t.Errorf("State() = %v, want %v", task.State(), TaskCompleted)
	}
}

// TestTask_Execute_Error verifies that a returned error is stored as-is
func TestTask_Execute_Error(t *testing.T) {
	sentinel := errors.New("boom")
	task, f := CreateTask(func(ctx context.Context) (int, error) {
		return 42, sentinel
	})

	task.execute(context.Background())

	v, err := f.Wait()
	if !errors.Is(err, sentinel) {
		t.Errorf("Wait error = %v, want %v", err, sentinel)
	}
	if v != 0 {
		t.Errorf("Wait value = %d, want zero value on failure", v)
	}
	if task.State() != TaskFailed {
		t.Errorf("State() = %v, want %v", task.State(), TaskFailed)
	}
}

// TestTask_Execute_Panic verifies that a panic becomes a PanicError
// Given: A task dividing by zero
// When: It is executed
// Then: execute reports panicked, the Future holds a *PanicError wrapping the runtime error
func TestTask_Execute_Panic(t *testing.T) {
	zero := 0
	task, f := CreateTask(func(ctx context.Context) (int, error) {
		return 1 / zero, nil
	})

	panicked, _ := task.execute(context.Background())
	if !panicked {
		t.Fatal("execute did not report the panic")
	}

	_, err := f.Wait()
	if !IsPanic(err) {
		t.Fatalf("Wait error = %v, want a PanicError", err)
	}
	var rerr runtime.Error
	if !errors.As(err, &rerr) {
		t.Errorf("PanicError does not unwrap to runtime.Error: %v", err)
	}
	var pe *PanicError
	errors.As(err, &pe)
	if len(pe.Stack) == 0 {
		t.Error("PanicError.Stack is empty")
	}
}

// TestTask_ExecutesAtMostOnce verifies the Pending -> Running transition is taken once
func TestTask_ExecutesAtMostOnce(t *testing.T) {
	calls := 0
	task, _ := CreateAction(func(ctx context.Context) error {
		calls++
		return nil
	})

	task.execute(context.Background())
	task.execute(context.Background())

	if calls != 1 {
		t.Errorf("callable ran %d times, want 1", calls)
	}
}

// TestTask_Discard verifies discarding a pending task
// Main test items:
// 1. The Future resolves with the given reason
// 2. A discarded task can no longer execute
// 3. A finished task cannot be discarded
func TestTask_Discard(t *testing.T) {
	task, f := CreateAction(func(ctx context.Context) error {
		t.Error("discarded task executed")
		return nil
	})

	if !task.discard(ErrTaskDiscarded) {
		t.Fatal("discard of a pending task = false")
	}
	if err := f.Err(); !errors.Is(err, ErrTaskDiscarded) {
		t.Errorf("Err() = %v, want %v", err, ErrTaskDiscarded)
	}
	if task.State() != TaskDiscarded {
		t.Errorf("State() = %v, want %v", task.State(), TaskDiscarded)
	}
	task.execute(context.Background())

	done, _ := CreateAction(func(ctx context.Context) error { return nil })
	done.execute(context.Background())
	if done.discard(ErrTaskDiscarded) {
		t.Error("discard of a completed task = true")
	}
}

// TestFuture_WaitBlocks verifies that Wait parks until the outcome is published
func TestFuture_WaitBlocks(t *testing.T) {
	release := make(chan struct{})
	task, f := CreateTask(func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	go task.execute(context.Background())

	select {
	case <-f.Done():
		t.Fatal("Done closed before the task finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	v, err := f.Wait()
	if v != 7 || err != nil {
		t.Errorf("Wait = (%d, %v), want (7, nil)", v, err)
	}
}

func TestTaskState_String(t *testing.T) {
	cases := map[TaskState]string{
		TaskPending:   "pending",
		TaskRunning:   "running",
		TaskCompleted: "completed",
		TaskFailed:    "failed",
		TaskDiscarded: "discarded",
		TaskState(99): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("TaskState(%d).String() = %q, want %q", int32(state), got, want)
		}
	}
	if TaskRunning.Terminal() || !TaskDiscarded.Terminal() {
		t.Error("Terminal() misclassifies states")
	}
}

func TestTaskID_Unique(t *testing.T) {
	a, b := newNoopTask(), newNoopTask()
	if a.ID() == b.ID() {
		t.Errorf("two tasks share ID %d", a.ID())
	}
}

// TestFuture_TryGet verifies the non-blocking poll
// Main test items:
// 1. ok is false while the task is still running
// 2. After completion TryGet returns the same value and error as Wait
// 3. A failed task reports its error through TryGet
func TestFuture_TryGet(t *testing.T) {
	gate := make(chan struct{})
	task, f := CreateTask(func(ctx context.Context) (int, error) {
		<-gate
		return 42, nil
	})
	executed := make(chan struct{})
	go func() {
		task.execute(context.Background())
		close(executed)
	}()

	if v, ok, err := f.TryGet(); ok || v != 0 || err != nil {
		t.Fatalf("TryGet while gated = (%d, %v, %v), want (0, false, nil)", v, ok, err)
	}

	close(gate)
	<-executed

	wantV, wantErr := f.Wait()
	v, ok, err := f.TryGet()
	if !ok || v != wantV || err != wantErr {
		t.Errorf("TryGet = (%d, %v, %v), want (%d, true, %v)", v, ok, err, wantV, wantErr)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}

	sentinel := errors.New("failed")
	failing, ff := CreateTask(func(ctx context.Context) (int, error) { return 0, sentinel })
	if _, ok, _ := ff.TryGet(); ok {
		t.Fatal("TryGet reported an outcome before execution")
	}
	failing.execute(context.Background())

	_, waitErr := ff.Wait()
	_, ok, err = ff.TryGet()
	if !ok || !errors.Is(err, sentinel) || err != waitErr {
		t.Errorf("TryGet on failed task = (%v, %v), want (true, %v)", ok, err, sentinel)
	}
}
