package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRun_StagesExecuteInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	stage := func(name string) Stage {
		return Stage{Name: name, Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
			order = append(order, name)
			return pc, nil
		}}
	}

	result := Run(context.Background(), []Stage{stage("a"), stage("b"), stage("c")}, ProcessingContext{})

	if result.Outcome != OutcomeCompleted {
		t.Fatalf("outcome: got %v, want OutcomeCompleted", result.Outcome)
	}
	if result.Err != nil {
		t.Errorf("err: got %v, want nil", result.Err)
	}
	if got, want := fmt.Sprint(order), "[a b c]"; got != want {
		t.Errorf("stage order: got %s, want %s", got, want)
	}
}

func TestRun_ContextFlowsBetweenStages(t *testing.T) {
	t.Parallel()

	first := Stage{Name: "set", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		pc.Recipients = []string{"a@x.com"}
		return pc, nil
	}}

	var seen []string
	second := Stage{Name: "read", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		seen = pc.Recipients
		return pc, nil
	}}

	Run(context.Background(), []Stage{first, second}, ProcessingContext{})

	if len(seen) != 1 || seen[0] != "a@x.com" {
		t.Errorf("second stage saw %v, want [a@x.com]", seen)
	}
}

func TestRun_ErrStopTerminatesSuccessfully(t *testing.T) {
	t.Parallel()

	stop := Stage{Name: "stop", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		return pc, fmt.Errorf("%w: nothing to do", ErrStop)
	}}

	ran := false
	after := Stage{Name: "after", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		ran = true
		return pc, nil
	}}

	result := Run(context.Background(), []Stage{stop, after}, ProcessingContext{})

	if result.Outcome != OutcomeStopped {
		t.Errorf("outcome: got %v, want OutcomeStopped", result.Outcome)
	}
	if result.Err != nil {
		t.Errorf("err: got %v, want nil", result.Err)
	}
	if ran {
		t.Error("stage after the stop must not run")
	}
}

func TestRun_FailureMapsToGenericError(t *testing.T) {
	t.Parallel()

	fail := Stage{Name: "fail", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		return pc, errors.New("detailed internal cause")
	}}

	ran := false
	after := Stage{Name: "after", Run: func(_ context.Context, pc ProcessingContext) (ProcessingContext, error) {
		ran = true
		return pc, nil
	}}

	result := Run(context.Background(), []Stage{fail, after}, ProcessingContext{})

	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome: got %v, want OutcomeFailed", result.Outcome)
	}
	if !errors.Is(result.Err, ErrStepFailed) {
		t.Errorf("err: got %v, want ErrStepFailed", result.Err)
	}
	// Internal cause is logged, never surfaced.
	if result.Err != nil && result.Err.Error() != ErrStepFailed.Error() {
		t.Errorf("err leaks internal detail: %v", result.Err)
	}
	if ran {
		t.Error("stage after a failure must not run")
	}
}

func TestRun_NoStages(t *testing.T) {
	t.Parallel()

	result := Run(context.Background(), nil, ProcessingContext{})
	if result.Outcome != OutcomeCompleted {
		t.Errorf("outcome: got %v, want OutcomeCompleted", result.Outcome)
	}
}
