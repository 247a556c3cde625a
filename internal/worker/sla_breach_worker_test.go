package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/service"
)

type fakeScanner struct {
	calls  atomic.Int32
	result service.ScanResult
	err    error
	// panicCalls is the number of leading calls that panic.
	panicCalls int32
}

func (f *fakeScanner) ScanBreaches(ctx context.Context) (service.ScanResult, error) {
	n := f.calls.Add(1)
	if n <= f.panicCalls {
		panic("scanner exploded")
	}
	if _, ok := ctx.Deadline(); !ok {
		return service.ScanResult{}, errors.New("missing deadline")
	}
	return f.result, f.err
}

func TestRunOnceReturnsScanResult(t *testing.T) {
	scanner := &fakeScanner{result: service.ScanResult{Candidates: 2, Breached: 2}}
	w := NewSLABreachWorker(scanner, time.Minute, zap.NewNop())

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Breached)
	assert.EqualValues(t, 1, scanner.calls.Load())
}

func TestRunOncePropagatesError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db down")}
	w := NewSLABreachWorker(scanner, time.Minute, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestScheduledJobRecoversFromPanic(t *testing.T) {
	scanner := &fakeScanner{panicCalls: 2}
	w := NewSLABreachWorker(scanner, time.Minute, zap.NewNop())

	job := w.scheduledJob()
	assert.NotPanics(t, job.Run)
	assert.NotPanics(t, job.Run)
	assert.EqualValues(t, 2, scanner.calls.Load())
}

func TestScheduledJobKeepsRunningAfterPanic(t *testing.T) {
	scanner := &fakeScanner{panicCalls: 1, result: service.ScanResult{Breached: 1}}
	w := NewSLABreachWorker(scanner, time.Minute, zap.NewNop())

	job := w.scheduledJob()
	for i := 0; i < 3; i++ {
		assert.NotPanics(t, job.Run)
	}
	assert.EqualValues(t, 3, scanner.calls.Load())
}

func TestStartRunsOnScheduleAndStops(t *testing.T) {
	scanner := &fakeScanner{}
	w := NewSLABreachWorker(scanner, time.Second, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool { return scanner.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(stopCtx)

	calls := scanner.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, calls, scanner.calls.Load())
}

func TestStartRejectsNonPositiveDelay(t *testing.T) {
	w := NewSLABreachWorker(&fakeScanner{}, 0, zap.NewNop())
	assert.Error(t, w.Start(context.Background()))
}
