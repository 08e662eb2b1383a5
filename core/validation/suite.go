// Package validation runs the startup checks printed before the server starts.
package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// StepStatus is the outcome of a check.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepWarning
	StepFailed
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepWarning:
		return "warning"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome is what a Check reports.
type Outcome struct {
	Status  StepStatus
	Message string
	Error   error
}

func Pass(message string) Outcome { return Outcome{Status: StepPassed, Message: message} }

func Skip(message string) Outcome { return Outcome{Status: StepSkipped, Message: message} }

func Warn(message string, err error) Outcome {
	return Outcome{Status: StepWarning, Message: message, Error: err}
}

func Fail(message string, err error) Outcome {
	return Outcome{Status: StepFailed, Message: message, Error: err}
}

// Check is a single startup check.
type Check func(ctx context.Context) Outcome

// Step is a check that has run.
type Step struct {
	Name string
	Outcome
	Latency time.Duration
}

// SuiteResult summarises a run. Warnings do not affect Success.
type SuiteResult struct {
	Steps    []Step
	Passed   int
	Failed   int
	Warnings int
	Duration time.Duration
	Success  bool
}

// Errors returns the errors of failed steps.
func (r SuiteResult) Errors() []error {
	var errs []error
	for _, s := range r.Steps {
		if s.Status == StepFailed && s.Error != nil {
			errs = append(errs, s.Error)
		}
	}
	return errs
}

func (r SuiteResult) Summary() string {
	verdict := "Passed"
	if !r.Success {
		verdict = "Failed"
	}
	return fmt.Sprintf("Validation %s: %d/%d checks passed, %d failed, %d warnings (took %v)",
		verdict, r.Passed, len(r.Steps), r.Failed, r.Warnings, r.Duration.Round(time.Millisecond))
}

type namedCheck struct {
	name  string
	check Check
}

// Suite runs checks in order and prints coloured progress.
type Suite struct {
	title        string
	output       io.Writer
	showProgress bool
	checks       []namedCheck
}

func NewSuite(title string) *Suite {
	return &Suite{title: title, output: os.Stdout, showProgress: true}
}

func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

func (s *Suite) WithShowProgress(show bool) *Suite {
	s.showProgress = show
	return s
}

// Add appends a check.
func (s *Suite) Add(name string, check Check) *Suite {
	s.checks = append(s.checks, namedCheck{name: name, check: check})
	return s
}

// Run executes every check.
func (s *Suite) Run(ctx context.Context) SuiteResult {
	start := time.Now()
	if s.showProgress {
		s.printHeader()
	}

	result := SuiteResult{Success: true}
	for _, c := range s.checks {
		begin := time.Now()
		step := Step{Name: c.name, Outcome: c.check(ctx)}
		step.Latency = time.Since(begin)

		switch step.Status {
		case StepPassed:
			result.Passed++
		case StepWarning:
			result.Warnings++
		case StepFailed:
			result.Failed++
			result.Success = false
		}
		result.Steps = append(result.Steps, step)
		if s.showProgress {
			s.printStep(step)
		}
	}
	result.Duration = time.Since(start)

	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *Suite) printHeader() {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", s.title)
	fmt.Fprintln(s.output)
}

func (s *Suite) printStep(step Step) {
	icon, clr := "?", color.New(color.FgWhite)
	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)
	if step.Error != nil && step.Status != StepPassed {
		clr.Fprintf(s.output, "    └─ %s\n", step.Error)
	}
}

func (s *Suite) printSummary(r SuiteResult) {
	fmt.Fprintln(s.output)
	dim := color.New(color.FgHiBlack)
	if r.Success {
		c := color.New(color.FgGreen, color.Bold)
		c.Fprint(s.output, "━━━ Validation Passed ")
		dim.Fprintf(s.output, "(%d/%d checks passed, %d warnings, %v)",
			r.Passed, len(r.Steps), r.Warnings, r.Duration.Round(time.Millisecond))
		c.Fprintln(s.output, " ━━━")
	} else {
		c := color.New(color.FgRed, color.Bold)
		c.Fprint(s.output, "━━━ Validation Failed ")
		dim.Fprintf(s.output, "(%d passed, %d failed)", r.Passed, r.Failed)
		c.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}
