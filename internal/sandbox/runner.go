// Package sandbox simulates running Lua code from the lesson editor.
//
// Nothing is executed. The runner validates exercise submissions, then looks
// for a single print("literal") call and echoes the literal back. Nested
// calls, variables, string concatenation and multiple print statements are
// not understood; code using them simply reports success without output.
package sandbox

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/exercise"
)

// DefaultDelay is the artificial latency of a run.
const DefaultDelay = 800 * time.Millisecond

// Status is the coarse outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Output strings shown to the learner.
const (
	OutputPrefix     = "Output: "
	OutputNoOutput   = "Executed successfully, no output"
	OutputExecuted   = "Executed successfully"
	OutputErrPrefix  = "Error: "
	validationFailed = "validation failed"
)

// ErrBusy is returned when Run is called while a previous run is pending.
var ErrBusy = apperrors.NewConflictError(apperrors.ErrCodeRunnerBusy, "a run is already in progress")

// Result is what the editor displays after a run.
type Result struct {
	Output  string            `json:"output"`
	Status  Status            `json:"status"`
	Verdict *exercise.Verdict `json:"verdict,omitempty"`
}

// Succeeded reports whether the run finished without a validation failure or error.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// printRE captures the argument of the first print("...") call. The match is
// lazy and stops at the first `")`, so escapes are not understood.
var printRE = regexp.MustCompile(`print\("(.*?)"\)`)

// Runner performs one simulated run at a time.
type Runner struct {
	delay    time.Duration
	busy     atomic.Bool
	lastUsed atomic.Int64
	simulate func(code, solution string) Result
}

// Option configures a Runner.
type Option func(*Runner)

// WithDelay overrides the artificial run latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// NewRunner creates a Runner with DefaultDelay unless overridden.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{delay: DefaultDelay, simulate: Simulate}
	for _, opt := range opts {
		opt(r)
	}
	r.touch()
	return r
}

// Busy reports whether a run is pending. The editor disables its run button
// while this is true.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Delay returns the configured run latency.
func (r *Runner) Delay() time.Duration {
	return r.delay
}

// Run waits for the configured delay and then simulates running code. When
// solution is non-empty the code is validated first and a failed verdict
// stops the run.
//
// A call made while another is pending returns ErrBusy immediately. If ctx
// is cancelled during the delay, ctx.Err() is returned. The busy flag is
// cleared on every path, including a panic during simulation, which is
// reported as a failure Result rather than propagated.
func (r *Runner) Run(ctx context.Context, code, solution string) (res Result, err error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer r.busy.Store(false)
	defer r.touch()

	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	defer func() {
		if p := recover(); p != nil {
			res = Result{Output: OutputErrPrefix + fmt.Sprint(p), Status: StatusFailure}
			err = nil
		}
	}()

	return r.simulate(code, solution), nil
}

// Simulate is the synchronous core of Run.
func Simulate(code, solution string) Result {
	var verdict *exercise.Verdict
	if exercise.Enabled(solution) {
		v := exercise.Validate(code, solution)
		if !v.Correct {
			msg := v.Message
			if msg == "" {
				msg = validationFailed
			}
			return Result{Output: msg, Status: StatusFailure, Verdict: &v}
		}
		verdict = &v
	}

	if !strings.Contains(code, "print") {
		return Result{Output: OutputExecuted, Status: StatusSuccess, Verdict: verdict}
	}

	m := printRE.FindStringSubmatch(code)
	if m == nil || m[1] == "" {
		return Result{Output: OutputNoOutput, Status: StatusSuccess, Verdict: verdict}
	}

	if verdict != nil {
		verdict = &exercise.Verdict{Correct: true, Message: exercise.MasteredMessage}
	}
	return Result{Output: OutputPrefix + m[1], Status: StatusSuccess, Verdict: verdict}
}

func (r *Runner) touch() {
	r.lastUsed.Store(time.Now().UnixNano())
}

func (r *Runner) idleSince() time.Time {
	return time.Unix(0, r.lastUsed.Load())
}
