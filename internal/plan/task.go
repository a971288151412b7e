package plan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// TaskError is the failure of a named plan task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// BuildTasks builds executor tasks in plan order. A task reports batch.None when
// it is declared empty or its command prints nothing.
func (p *Plan) BuildTasks() []batch.Task[batch.Optional[string]] {
	tasks := make([]batch.Task[batch.Optional[string]], len(p.Tasks))
	for i, spec := range p.Tasks {
		tasks[i] = spec.Task()
	}
	return tasks
}

// Task builds the executor task for s.
func (s TaskSpec) Task() batch.Task[batch.Optional[string]] {
	return func(ctx context.Context) (batch.Optional[string], error) {
		none := batch.None[string]()

		if err := sleep(ctx, s.Delay); err != nil {
			return none, &TaskError{Task: s.Name, Err: err}
		}

		kind, err := s.Kind()
		if err != nil {
			return none, &TaskError{Task: s.Name, Err: err}
		}

		switch kind {
		case KindValue:
			return batch.Some(*s.Value), nil
		case KindEmpty:
			return none, nil
		case KindFail:
			return none, &TaskError{Task: s.Name, Err: errors.New(s.Fail)}
		case KindCommand:
			out, cmdErr := s.runCommand(ctx)
			if cmdErr != nil {
				return none, &TaskError{Task: s.Name, Err: cmdErr}
			}
			if out == "" {
				return none, nil
			}
			return batch.Some(out), nil
		}
		return none, &TaskError{Task: s.Name, Err: fmt.Errorf("unknown kind %q", kind)}
	}
}

func (s TaskSpec) runCommand(ctx context.Context) (string, error) {
	//nolint:gosec // Running user-declared commands is the purpose of command tasks.
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range s.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
