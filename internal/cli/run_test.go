package cli_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/batchrun/internal/cli"
	"github.com/rshade/batchrun/internal/engine/batch"
)

const runPlan = `
version: "1.0"
name: demo
tasks:
  - name: a
    value: alpha
  - name: b
    empty: true
  - name: c
    value: ""
  - name: d
    value: delta
  - name: e
    value: echo
`

// writePlan writes a plan file into a temp dir and returns its path.
func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type runJSON struct {
	Plan           string   `json:"plan"`
	RunID          string   `json:"runId"`
	BatchSize      int      `json:"batchSize"`
	TotalTasks     int      `json:"totalTasks"`
	CompletedTasks int      `json:"completedTasks"`
	Windows        int      `json:"windows"`
	Progress       float64  `json:"progress"`
	Results        []string `json:"results"`
}

func TestRun_JSON(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	out, _, err := execute(t, "run", path, "--batch-size", "2", "--output", "json", "--no-progress")
	require.NoError(t, err)

	var got runJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "demo", got.Plan)
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, 2, got.BatchSize)
	assert.Equal(t, 5, got.TotalTasks)
	assert.Equal(t, 5, got.CompletedTasks)
	assert.Equal(t, 3, got.Windows)
	assert.InDelta(t, 100.0, got.Progress, 0.001)
	assert.Equal(t, []string{"alpha", "", "delta", "echo"}, got.Results)
}

func TestRun_DropEmptyPolicy(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	out, _, err := execute(t, "run", path, "--result-policy", "drop_empty", "--output", "plain", "--no-progress")
	require.NoError(t, err)
	assert.Equal(t, "alpha\ndelta\necho\n", out)
}

func TestRun_PolicyFromEnv(t *testing.T) {
	setupCLITest(t)
	t.Setenv("BATCHRUN_RESULT_POLICY", "drop_empty")
	path := writePlan(t, runPlan)

	out, _, err := execute(t, "run", path, "--output", "plain", "--no-progress")
	require.NoError(t, err)
	assert.Equal(t, "alpha\ndelta\necho\n", out)
}

func TestRun_Table(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	out, stderr, err := execute(t, "run", path, "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Result")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "echo")
	assert.Contains(t, stderr, "demo")
}

func TestRun_ProgressLog(t *testing.T) {
	setupCLITest(t)
	t.Setenv("BATCHRUN_LOG_LEVEL", "info")
	t.Setenv("BATCHRUN_LOG_FORMAT", "json")
	path := writePlan(t, runPlan)

	_, stderr, err := execute(t, "run", path, "--batch-size", "2", "--output", "plain", "--no-progress")
	require.NoError(t, err)

	var progress []float64
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil || entry["message"] != "progress" {
			continue
		}
		assert.NotEmpty(t, entry["run_id"])
		progress = append(progress, entry["progress"].(float64))
	}
	assert.Equal(t, []float64{0, 40, 80, 100}, progress)
}

func TestRun_TaskFailure(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, `
version: "1.0"
tasks:
  - name: ok
    value: "1"
  - name: broken
    fail: disk full
  - name: never
    value: "3"
`)

	out, _, err := execute(t, "run", path, "--batch-size", "2", "--output", "json", "--no-progress")
	require.Error(t, err)
	assert.Empty(t, out, "no results are printed for a failed run")

	var exitErr *cli.RunExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "broken")
}

func TestRun_InvalidBatchSize(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	_, _, err := execute(t, "run", path, "--batch-size", "0", "--no-progress")
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrInvalidBatchSize)

	var exitErr *cli.RunExitError
	assert.False(t, errors.As(err, &exitErr), "argument errors keep the default exit code")
}

func TestRun_InvalidFlags(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	_, _, err := execute(t, "run", path, "--result-policy", "keep_some")
	require.Error(t, err)

	_, _, err = execute(t, "run", path, "--output", "xml")
	require.Error(t, err)

	_, _, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPlanValidate(t *testing.T) {
	setupCLITest(t)

	out, _, err := execute(t, "plan", "validate", writePlan(t, runPlan))
	require.NoError(t, err)
	assert.Contains(t, out, "Plan demo is valid (5 tasks)")

	_, _, err = execute(t, "plan", "validate", writePlan(t, "version: \"2.0\"\ntasks:\n  - name: a\n    value: x\n"))
	require.Error(t, err)
}

func TestPlanWindows(t *testing.T) {
	setupCLITest(t)
	path := writePlan(t, runPlan)

	out, _, err := execute(t, "plan", "windows", path, "--batch-size", "2", "--output", "json")
	require.NoError(t, err)

	var windows []struct {
		Index int      `json:"index"`
		Tasks []string `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &windows))
	require.Len(t, windows, 3)
	assert.Equal(t, []string{"a", "b"}, windows[0].Tasks)
	assert.Equal(t, []string{"c", "d"}, windows[1].Tasks)
	assert.Equal(t, []string{"e"}, windows[2].Tasks)

	_, _, err = execute(t, "plan", "windows", path, "--batch-size=-1")
	assert.ErrorIs(t, err, batch.ErrInvalidBatchSize)
}

func TestRootConfigOverlay(t *testing.T) {
	setupCLITest(t)
	overlay := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("executor:\n  batch_size: 2\n  result_policy: drop_empty\n"), 0o600))
	path := writePlan(t, runPlan)

	out, _, err := execute(t, "--config", overlay, "run", path, "--output", "plain", "--no-progress")
	require.NoError(t, err)
	assert.Equal(t, "alpha\ndelta\necho\n", out)
}
