package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/batchrun/internal/engine/batch"
)

const demoPlan = `
version: "1.2.0"
name: demo
batch_size: 2
tasks:
  - name: a
    value: "1"
    delay: 5ms
  - name: b
    empty: true
  - name: c
    value: ""
  - name: d
    value: "4"
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(demoPlan))
	require.NoError(t, err)

	assert.Equal(t, "demo", p.DisplayName())
	assert.Equal(t, 2, p.BatchSize)
	require.Len(t, p.Tasks, 4)
	assert.Equal(t, 5*time.Millisecond, p.Tasks[0].Delay)

	kind, err := p.Tasks[1].Kind()
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, kind)

	kind, err = p.Tasks[2].Kind()
	require.NoError(t, err)
	assert.Equal(t, KindValue, kind, "an explicit empty string is still a value")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing version",
			yaml:    "tasks:\n  - name: a\n    value: x\n",
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "not semver",
			yaml:    "version: latest\ntasks:\n  - name: a\n    value: x\n",
			wantErr: ErrUnsupportedVersion,
			wantMsg: "not a semantic version",
		},
		{
			name:    "major version too new",
			yaml:    "version: 2.0.0\ntasks:\n  - name: a\n    value: x\n",
			wantErr: ErrUnsupportedVersion,
			wantMsg: "does not satisfy",
		},
		{
			name:    "no tasks",
			yaml:    "version: 1.0.0\ntasks: []\n",
			wantErr: ErrNoTasks,
		},
		{
			name:    "task without name",
			yaml:    "version: 1.0.0\ntasks:\n  - value: x\n",
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "task without outcome",
			yaml:    "version: 1.0.0\ntasks:\n  - name: a\n",
			wantErr: ErrInvalidTask,
			wantMsg: "one of value, empty, fail or command is required",
		},
		{
			name:    "task with two outcomes",
			yaml:    "version: 1.0.0\ntasks:\n  - name: a\n    value: x\n    fail: boom\n",
			wantErr: ErrInvalidTask,
			wantMsg: "exclusive",
		},
		{
			name:    "duplicate names",
			yaml:    "version: 1.0.0\ntasks:\n  - name: a\n    value: x\n  - name: a\n    empty: true\n",
			wantErr: ErrInvalidTask,
			wantMsg: "reuses name",
		},
		{
			name:    "negative batch size",
			yaml:    "version: 1.0.0\nbatch_size: -1\ntasks:\n  - name: a\n    value: x\n",
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "unknown field",
			yaml:    "version: 1.0.0\nretries: 3\ntasks:\n  - name: a\n    value: x\n",
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "empty command argument",
			yaml:    "version: 1.0.0\ntasks:\n  - name: a\n    command: [\"\"]\n",
			wantErr: ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1.0.0\ntasks:\n  - name: only\n    value: x\n"), 0600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())
	assert.Equal(t, path, p.DisplayName())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWindows(t *testing.T) {
	p, err := Parse([]byte(demoPlan))
	require.NoError(t, err)

	windows := p.Windows(3)
	require.Len(t, windows, 2)
	assert.Equal(t, Window{Index: 0, Tasks: []string{"a", "b", "c"}}, windows[0])
	assert.Equal(t, Window{Index: 1, Tasks: []string{"d"}}, windows[1])

	assert.Empty(t, p.Windows(0))
}

func TestBuildTasks_RunThroughExecutor(t *testing.T) {
	p, err := Parse([]byte(demoPlan))
	require.NoError(t, err)

	var reports []batch.ProgressReport
	results, err := batch.RunOptional(context.Background(), p.BuildTasks(), 2, func(r batch.ProgressReport) {
		reports = append(reports, r)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", "4"}, results)
	assert.Len(t, reports, 3)
}

func TestTask_Fail(t *testing.T) {
	spec := TaskSpec{Name: "broken", Fail: "disk full"}
	out, err := spec.Task()(context.Background())

	require.Error(t, err)
	assert.False(t, out.IsPresent())
	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, "broken", taskErr.Task)
	assert.EqualError(t, err, `task "broken": disk full`)
}

func TestTask_DelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value := "never"
	spec := TaskSpec{Name: "slow", Value: &value, Delay: time.Hour}
	_, err := spec.Task()(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTask_Command(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command tests use a POSIX shell")
	}

	t.Run("stdout is the result", func(t *testing.T) {
		spec := TaskSpec{Name: "echo", Command: []string{"sh", "-c", "echo \"  $GREETING  \""}, Env: map[string]string{"GREETING": "hi"}}
		out, err := spec.Task()(context.Background())
		require.NoError(t, err)
		v, ok := out.Get()
		require.True(t, ok)
		assert.Equal(t, "hi", v)
	})

	t.Run("no output is no result", func(t *testing.T) {
		spec := TaskSpec{Name: "quiet", Command: []string{"true"}}
		out, err := spec.Task()(context.Background())
		require.NoError(t, err)
		assert.False(t, out.IsPresent())
	})

	t.Run("working directory", func(t *testing.T) {
		dir := t.TempDir()
		spec := TaskSpec{Name: "pwd", Command: []string{"sh", "-c", "basename \"$(pwd)\""}, Dir: dir}
		out, err := spec.Task()(context.Background())
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(dir), out.OrElse(""))
	})

	t.Run("non-zero exit fails with stderr", func(t *testing.T) {
		spec := TaskSpec{Name: "exit", Command: []string{"sh", "-c", "echo nope >&2; exit 3"}}
		_, err := spec.Task()(context.Background())
		require.Error(t, err)

		var taskErr *TaskError
		require.ErrorAs(t, err, &taskErr)
		assert.Equal(t, "exit", taskErr.Task)
		assert.Contains(t, err.Error(), "nope")
		assert.Contains(t, err.Error(), "exit status 3")
	})
}
