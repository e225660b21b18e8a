package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
)

func newTestQueue(t *testing.T, cfg Config) (*Queue, *events.Broadcaster) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Job{}))

	broadcaster := events.NewBroadcaster(64)
	return New(repos.NewJobRepository(db), broadcaster, cfg), broadcaster
}

// fastRetry removes the backoff delay so retried jobs are immediately
// claimable again.
func fastRetry() Config {
	return Config{MaxAttempts: 3, BaseBackoff: time.Nanosecond, MaxBackoff: time.Nanosecond}
}

func drainEvents(sub *events.Subscriber) []events.Event {
	var out []events.Event
	for {
		select {
		case event := <-sub.C:
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestEnqueueCreatesQueuedJob(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())
	ctx := context.Background()

	job, err := q.Enqueue(ctx, EnqueueRequest{
		ProjectID: 1,
		Kind:      models.KindScaffold,
		Payload:   json.RawMessage(`{"template":"basic"}`),
	})
	require.NoError(t, err)
	require.NotZero(t, job.ID)
	require.Equal(t, models.JobStatusQueued, job.Status)
	require.Zero(t, job.Attempt)
}

func TestEnqueueAcceptsUnknownKind(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	// Kind validation happens at dispatch time, not here.
	job, err := q.Enqueue(context.Background(), EnqueueRequest{ProjectID: 1, Kind: "no-such-stage"})
	require.NoError(t, err)
	require.NotZero(t, job.ID)
}

func TestClaimNextFIFOWithinProject(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())
	ctx := context.Background()

	a, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindScaffold})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindBuild})
	require.NoError(t, err)

	claimed, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, a.ID, claimed.ID)
}

func TestClaimNextEmptyQueueIsNotAnError(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	claimed, err := q.ClaimNext(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, claimed)
}

func TestMarkDoneTwiceSignalsError(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindVerify})
	require.NoError(t, err)
	job, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.MarkDone(ctx, job, json.RawMessage(`{"ok":true}`)))
	err = q.MarkDone(ctx, job, nil)
	require.ErrorIs(t, err, ErrJobNotRunning)
}

func TestRetryBound(t *testing.T) {
	q, _ := newTestQueue(t, fastRetry())
	ctx := context.Background()
	handlerErr := errors.New("handler always fails")

	enqueued, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindBuild})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		job, err := q.ClaimNext(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, job, "iteration %d should find the job claimable", i)
		require.Equal(t, enqueued.ID, job.ID)
		require.Equal(t, i-1, job.Attempt)

		require.NoError(t, q.MarkErrorOrRetry(ctx, job, handlerErr))

		if i < 3 {
			require.Equal(t, models.JobStatusQueued, job.Status)
			require.Equal(t, i, job.Attempt)
		} else {
			require.Equal(t, models.JobStatusFailed, job.Status)
			require.Equal(t, 3, job.Attempt)
		}
	}

	// Terminal: nothing left to claim and the attempt count never exceeds
	// the bound.
	job, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestRetryBackoffDelaysReclaim(t *testing.T) {
	q, _ := newTestQueue(t, Config{MaxAttempts: 3, BaseBackoff: time.Hour, MaxBackoff: time.Hour})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindDeploy})
	require.NoError(t, err)
	job, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.MarkErrorOrRetry(ctx, job, errors.New("blip")))

	// Still queued, but inside its backoff window.
	reclaimed, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, reclaimed)
}

func TestFailNoRetrySkipsRetryBudget(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: "no-such-stage"})
	require.NoError(t, err)
	job, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.FailNoRetry(ctx, job, errors.New("unknown job kind")))
	require.Equal(t, models.JobStatusFailed, job.Status)

	reclaimed, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, reclaimed)
}

func TestTransitionsPublishEvents(t *testing.T) {
	q, broadcaster := newTestQueue(t, fastRetry())
	ctx := context.Background()

	sub := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(sub)

	_, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 7, Kind: models.KindVerify})
	require.NoError(t, err)

	job, err := q.ClaimNext(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, q.MarkErrorOrRetry(ctx, job, errors.New("flaky")))

	job, err = q.ClaimNext(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, q.MarkDone(ctx, job, nil))

	types := []events.EventType{}
	for _, event := range drainEvents(sub) {
		require.EqualValues(t, 7, event.ProjectID)
		require.NotNil(t, event.JobID)
		types = append(types, event.Type)
	}
	require.Equal(t, []events.EventType{
		events.EventJobClaimed,
		events.EventJobRetried,
		events.EventJobClaimed,
		events.EventJobCompleted,
	}, types)
}

func TestRequeueStaleRecoversAbandonedClaims(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, EnqueueRequest{ProjectID: 1, Kind: models.KindOpsTest})
	require.NoError(t, err)
	job, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, job)

	// A negative max age makes the fresh claim count as stale.
	count, err := q.RequeueStale(ctx, -time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	recovered, err := q.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, recovered)
	require.Equal(t, job.Attempt+1, recovered.Attempt)
}
