package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// SupportedVersions is the semver constraint a plan's version must satisfy.
const SupportedVersions = "^1.0"

// Plan errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported plan version")
	ErrNoTasks            = errors.New("plan has no tasks")
	ErrInvalidTask        = errors.New("invalid task")
	ErrInvalidPlan        = errors.New("invalid plan")
)

// Kind identifies which outcome a task spec produces.
type Kind string

// Task kinds.
const (
	KindValue   Kind = "value"
	KindEmpty   Kind = "empty"
	KindFail    Kind = "fail"
	KindCommand Kind = "command"
)

// Plan is an ordered collection of task specs.
type Plan struct {
	Version   string     `yaml:"version"              validate:"required"`
	Name      string     `yaml:"name,omitempty"`
	BatchSize int        `yaml:"batch_size,omitempty" validate:"min=0"`
	Tasks     []TaskSpec `yaml:"tasks"                validate:"dive"`

	path string
}

// TaskSpec describes one task. Exactly one of Value, Empty, Fail or Command must be set.
type TaskSpec struct {
	Name    string            `yaml:"name"              validate:"required"`
	Value   *string           `yaml:"value,omitempty"`
	Empty   bool              `yaml:"empty,omitempty"`
	Fail    string            `yaml:"fail,omitempty"`
	Command []string          `yaml:"command,omitempty" validate:"omitempty,dive,required"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Delay   time.Duration     `yaml:"delay,omitempty"   validate:"min=0"`
}

//nolint:gochecknoglobals // validator caches struct metadata; one instance is shared.
var validate = validator.New()

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading plan %s: %w", path, err)
	}
	p.path = path
	return p, nil
}

// Parse decodes and validates a plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Path returns the file the plan was loaded from, if any.
func (p *Plan) Path() string {
	return p.path
}

// DisplayName returns Name, falling back to the file path.
func (p *Plan) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.path != "" {
		return p.path
	}
	return "plan"
}

// Validate checks the version constraint, struct constraints and per-task rules.
func (p *Plan) Validate() error {
	if err := checkVersion(p.Version); err != nil {
		return err
	}
	if len(p.Tasks) == 0 {
		return ErrNoTasks
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	seen := make(map[string]int, len(p.Tasks))
	for i, spec := range p.Tasks {
		if prev, ok := seen[spec.Name]; ok {
			return fmt.Errorf("%w: task %d reuses name %q from task %d", ErrInvalidTask, i, spec.Name, prev)
		}
		seen[spec.Name] = i

		if _, err := spec.Kind(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

func checkVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: version is required", ErrUnsupportedVersion)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version: %w", ErrUnsupportedVersion, version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("parsing version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, version, SupportedVersions)
	}
	return nil
}

// Kind returns the outcome kind, or an error unless exactly one is set.
func (s TaskSpec) Kind() (Kind, error) {
	var kinds []Kind
	if s.Value != nil {
		kinds = append(kinds, KindValue)
	}
	if s.Empty {
		kinds = append(kinds, KindEmpty)
	}
	if s.Fail != "" {
		kinds = append(kinds, KindFail)
	}
	if len(s.Command) > 0 {
		kinds = append(kinds, KindCommand)
	}

	switch len(kinds) {
	case 1:
		return kinds[0], nil
	case 0:
		return "", fmt.Errorf("%w %q: one of value, empty, fail or command is required", ErrInvalidTask, s.Name)
	default:
		return "", fmt.Errorf("%w %q: value, empty, fail and command are exclusive, got %v", ErrInvalidTask, s.Name, kinds)
	}
}

// Window names the tasks in one window of a run.
type Window struct {
	Index int      `json:"index"`
	Tasks []string `json:"tasks"`
}

// Windows partitions task names the way the executor will for batchSize.
func (p *Plan) Windows(batchSize int) []Window {
	bounds := batch.Windows(len(p.Tasks), batchSize)
	windows := make([]Window, len(bounds))
	for i, b := range bounds {
		names := make([]string, 0, b[1]-b[0])
		for _, spec := range p.Tasks[b[0]:b[1]] {
			names = append(names, spec.Name)
		}
		windows[i] = Window{Index: i, Tasks: names}
	}
	return windows
}
