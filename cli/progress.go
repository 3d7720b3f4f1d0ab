package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Success(...any)
	Fail(...any)
	Stop() error
}

type progressSpinnerFactory func(w io.Writer, text string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(w io.Writer, text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a startup step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error.
	StepFailed
)

// Step is one startup step, such as loading the model or opening the camera.
type Step struct {
	ID      string
	Message string
	Status  StepStatus
	started time.Time
}

// startupProgress shows a spinner per startup step on an interactive terminal. When
// disabled it only tracks status.
type startupProgress struct {
	mu       sync.Mutex
	out      io.Writer
	steps    map[string]*Step
	order    []string
	current  progressSpinner
	factory  progressSpinnerFactory
	disabled bool
}

func newStartupProgress(out io.Writer, enabled bool, steps ...*Step) *startupProgress {
	pterm.Success.Prefix = pterm.Prefix{Text: "✓", Style: pterm.NewStyle(pterm.FgGreen)}
	pterm.Error.Prefix = pterm.Prefix{Text: "✗", Style: pterm.NewStyle(pterm.FgRed)}

	sp := &startupProgress{
		out:      out,
		steps:    make(map[string]*Step, len(steps)),
		factory:  defaultSpinnerFactory,
		disabled: !enabled,
	}
	for _, s := range steps {
		sp.steps[s.ID] = s
		sp.order = append(sp.order, s.ID)
	}
	return sp
}

func (sp *startupProgress) step(id string) (*Step, error) {
	s, ok := sp.steps[id]
	if !ok {
		return nil, errors.Errorf("step %q not found", id)
	}
	return s, nil
}

// Start begins the spinner for a step, stopping any spinner still running.
func (sp *startupProgress) Start(id string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	s, err := sp.step(id)
	if err != nil {
		return err
	}
	s.Status = StepRunning
	s.started = time.Now()
	if sp.disabled {
		return nil
	}
	if sp.current != nil {
		_ = sp.current.Stop() //nolint:errcheck
	}
	spinner, err := sp.factory(sp.out, s.Message)
	if err != nil {
		return errors.Wrap(err, "failed to start spinner")
	}
	sp.current = spinner
	return nil
}

// Complete marks a step as done, with detail appended to its message when given.
func (sp *startupProgress) Complete(id, detail string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	s, err := sp.step(id)
	if err != nil {
		return err
	}
	s.Status = StepCompleted
	if sp.disabled || sp.current == nil {
		return nil
	}
	msg := s.Message
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	sp.current.Success(fmt.Sprintf("%s (%s)", msg, time.Since(s.started).Round(time.Millisecond)))
	sp.current = nil
	return nil
}

// Fail marks a step as failed.
func (sp *startupProgress) Fail(id string, cause error) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	s, err := sp.step(id)
	if err != nil {
		return err
	}
	s.Status = StepFailed
	if sp.disabled || sp.current == nil {
		return nil
	}
	sp.current.Fail(fmt.Sprintf("%s: %v", s.Message, cause))
	sp.current = nil
	return nil
}

// Stop stops any active spinner.
func (sp *startupProgress) Stop() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.current != nil {
		_ = sp.current.Stop() //nolint:errcheck
		sp.current = nil
	}
}

// Statuses returns each step's status in registration order.
func (sp *startupProgress) Statuses() []StepStatus {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]StepStatus, 0, len(sp.order))
	for _, id := range sp.order {
		out = append(out, sp.steps[id].Status)
	}
	return out
}
