package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/luatutor/internal/exercise"
)

func TestSimulatePrintLiteral(t *testing.T) {
	res := Simulate(`print("hi")`, "")
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Output: hi", res.Output)
	assert.Nil(t, res.Verdict)
}

func TestSimulateFirstPrintWins(t *testing.T) {
	res := Simulate("print(\"one\")\nprint(\"two\")", "")
	assert.Equal(t, "Output: one", res.Output)
}

func TestSimulatePrintWithoutLiteral(t *testing.T) {
	for _, code := range []string{
		"local x = 5\nprint(x)",
		`print("a" .. b)`,
		`print("")`,
		"-- printing is fun",
	} {
		t.Run(code, func(t *testing.T) {
			res := Simulate(code, "")
			assert.Equal(t, StatusSuccess, res.Status)
			assert.Equal(t, OutputNoOutput, res.Output)
		})
	}
}

func TestSimulateNoPrint(t *testing.T) {
	res := Simulate("local x = 5", "")
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, OutputExecuted, res.Output)
}

func TestSimulateValidationFailureStopsRun(t *testing.T) {
	res := Simulate(`local {{x}} = 5 print("hi")`, "local y = 5")
	assert.Equal(t, StatusFailure, res.Status)
	require.NotNil(t, res.Verdict)
	assert.False(t, res.Verdict.Correct)
	assert.Equal(t, res.Verdict.Message, res.Output)
	assert.NotContains(t, res.Output, "hi")
}

func TestSimulateCorrectExerciseWithPrint(t *testing.T) {
	code := "local msg = 1\nprint(\"done\")"
	res := Simulate(code, code)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Output: done", res.Output)
	require.NotNil(t, res.Verdict)
	assert.True(t, res.Verdict.Correct)
	assert.Equal(t, exercise.MasteredMessage, res.Verdict.Message)
}

func TestSimulateCorrectExerciseWithoutLiteral(t *testing.T) {
	code := "local x = 5\nprint(x)"
	res := Simulate(code, code)
	assert.Equal(t, OutputNoOutput, res.Output)
	require.NotNil(t, res.Verdict)
	assert.Equal(t, exercise.SuccessMessage, res.Verdict.Message)
}

func TestRunHonoursDelay(t *testing.T) {
	r := NewRunner(WithDelay(30 * time.Millisecond))
	start := time.Now()
	res, err := r.Run(context.Background(), `print("hi")`, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, "Output: hi", res.Output)
	assert.False(t, r.Busy())
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	r := NewRunner(WithDelay(100 * time.Millisecond))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.Run(context.Background(), "x", "")
	}()

	require.Eventually(t, r.Busy, time.Second, 5*time.Millisecond)
	_, err := r.Run(context.Background(), "y", "")
	assert.True(t, errors.Is(err, ErrBusy))

	wg.Wait()
	assert.False(t, r.Busy())
	_, err = r.Run(context.Background(), "y", "")
	assert.NoError(t, err)
}

func TestRunCancelledClearsBusy(t *testing.T) {
	r := NewRunner(WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Run(ctx, "x", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Busy())
}

func TestRunRecoversPanics(t *testing.T) {
	r := NewRunner(WithDelay(0))
	r.simulate = func(code, solution string) Result { panic("kaboom") }

	res, err := r.Run(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, "Error: kaboom", res.Output)
	assert.False(t, res.Succeeded())
	assert.False(t, r.Busy())
}

func TestPoolSessions(t *testing.T) {
	p := NewPool(2, WithDelay(0))

	a := p.Get("a")
	assert.Same(t, a, p.Get("a"))
	assert.Equal(t, time.Duration(0), a.Delay())

	time.Sleep(2 * time.Millisecond)
	b := p.Get("b")
	time.Sleep(2 * time.Millisecond)
	p.Get("c")

	assert.Equal(t, 2, p.Len())
	assert.Same(t, b, p.Get("b"), "most recent idle runner survives eviction")
	assert.NotSame(t, a, p.Get("a"), "oldest idle runner is evicted")
}

func TestPoolPrune(t *testing.T) {
	p := NewPool(10, WithDelay(0))
	p.Get("a")
	p.Get("b")
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 0, p.Prune(time.Hour))
	assert.Equal(t, 2, p.Prune(time.Millisecond))
	assert.Equal(t, 0, p.Len())
}

func TestSessionIDs(t *testing.T) {
	id := NewSessionID()
	assert.True(t, ValidSessionID(id))
	assert.NotEqual(t, id, NewSessionID())
	assert.False(t, ValidSessionID("not-a-session"))
}
