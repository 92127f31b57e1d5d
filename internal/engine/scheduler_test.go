package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogMocks "github.com/donaldgifford/wishlist-tracker/internal/catalog/mocks"
	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	notifyMocks "github.com/donaldgifford/wishlist-tracker/internal/notify/mocks"
	storeMocks "github.com/donaldgifford/wishlist-tracker/internal/store/mocks"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// newSchedulerTestEngine returns a test engine and a mock store for use in scheduler tests.
func newSchedulerTestEngine(t *testing.T) (*Engine, *storeMocks.MockStore) {
	t.Helper()
	ms := storeMocks.NewMockStore(t)
	return newTestEngine(t, ms, catalogMocks.NewMockFetcher(t), notifyMocks.NewMockNotifier(t)), ms
}

func TestNewScheduler_RegistersCronEntry(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, 24*time.Hour, quietLogger())
	require.NoError(t, err)

	assert.Len(t, sched.Entries(), 1)
	assert.NotZero(t, sched.refreshEntryID)
	assert.Equal(t, 24*time.Hour, sched.refreshTimeout)
}

func TestNewScheduler_RejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	_, err := NewScheduler(eng, ms, 0, quietLogger())
	require.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	sched.Start()
	ctx := sched.Stop()
	<-ctx.Done()
}

func TestScheduler_SyncNextRunTimestamps(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, 15*time.Minute, quietLogger())
	require.NoError(t, err)

	// Start so that cron populates Next times.
	sched.Start()
	defer sched.Stop()

	sched.SyncNextRunTimestamps()

	next := ptestutil.ToFloat64(metrics.SchedulerNextRefreshTimestamp)
	assert.Greater(t, next, float64(time.Now().Unix()), "next refresh timestamp should be in the future")
}

func TestScheduler_NextRun(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{RefreshJobName}, sched.JobNames())

	_, ok := sched.NextRun(RefreshJobName)
	assert.False(t, ok, "no next run before Start")

	sched.Start()
	defer sched.Stop()

	next, ok := sched.NextRun(RefreshJobName)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, 5*time.Second)

	_, ok = sched.NextRun("nightly_digest")
	assert.False(t, ok)
}

func TestScheduler_RunJob_Success(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	ms.EXPECT().InsertJobRun(mock.Anything, "test-job").Return("run-id-1", nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-1", domain.JobStatusSucceeded, "", 4).
		Return(nil).Once()

	called := false
	err = sched.runJob(context.Background(), "test-job", 5*time.Minute, func(_ context.Context) (int, error) {
		called = true
		return 4, nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestScheduler_RunJob_Failure(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	jobErr := errors.New("something went wrong")

	ms.EXPECT().InsertJobRun(mock.Anything, "fail-job").Return("run-id-2", nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-2", domain.JobStatusFailed, jobErr.Error(), 0).
		Return(nil).Once()

	err = sched.runJob(context.Background(), "fail-job", 5*time.Minute, func(_ context.Context) (int, error) {
		return 0, jobErr
	})

	require.ErrorIs(t, err, jobErr)
}

func TestScheduler_RunJob_InsertFailureStillRuns(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	ms.EXPECT().InsertJobRun(mock.Anything, "job").Return("", errors.New("db down")).Once()

	called := false
	err = sched.runJob(context.Background(), "job", time.Minute, func(_ context.Context) (int, error) {
		called = true
		return 0, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestScheduler_RunJob_TimeoutBoundsContext(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	ms.EXPECT().InsertJobRun(mock.Anything, "slow").Return("run-id-3", nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-3", domain.JobStatusFailed, context.DeadlineExceeded.Error(), 0).
		Return(nil).Once()

	err = sched.runJob(context.Background(), "slow", 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	ms.EXPECT().InsertJobRun(mock.Anything, RefreshJobName).Return("run-id-4", nil).Once()
	ms.EXPECT().ListUsers(mock.Anything).Return(nil, nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-4", domain.JobStatusSucceeded, "", 0).
		Return(nil).Once()

	drops, err := sched.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, drops)
}

func TestScheduler_RecoverStaleJobs(t *testing.T) {
	t.Parallel()

	eng, ms := newSchedulerTestEngine(t)

	sched, err := NewScheduler(eng, ms, time.Hour, quietLogger())
	require.NoError(t, err)

	ms.EXPECT().
		RecoverStaleJobRuns(mock.Anything, 2*time.Hour).
		Return(3, nil).Once()

	sched.RecoverStaleJobRuns(context.Background())
}
