package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentActivity(t *testing.T) {
	f := newFixture(t)
	id := f.user(t, "feed@example.com", models.RoleSeller)
	_, err := f.progress.Start(f.ctx, id)
	require.NoError(t, err)
	_, err = f.progress.Advance(f.ctx, id, 3)
	require.NoError(t, err)

	feed, err := f.analytics.RecentActivity(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, ActivityStageChange, feed[0].Type)
	assert.Equal(t, 3, feed[0].StageID)
	assert.Equal(t, "Compliance", feed[0].StageName)
	require.NotNil(t, feed[0].FromStageID)
	assert.Equal(t, 1, *feed[0].FromStageID)
	assert.Equal(t, "Company Profile", feed[0].FromStageName)
	assert.Equal(t, "feed@example.com", feed[0].Email)

	assert.Equal(t, ActivityStatusChange, feed[1].Type)
	assert.Equal(t, 1, feed[1].StageID)
	assert.Equal(t, models.StageStatusCompleted, feed[1].Status)
	assert.True(t, feed[0].Timestamp.After(feed[1].Timestamp))
}

func TestRecentActivityRowWithoutChanges(t *testing.T) {
	f := newFixture(t)
	id := f.user(t, "quiet@example.com", models.RoleSeller)
	_, err := f.progress.Start(f.ctx, id)
	require.NoError(t, err)
	_, err = f.progress.RecordAnswer(f.ctx, id, 1, answers("company_name", `"Acme"`))
	require.NoError(t, err)

	feed, err := f.analytics.RecentActivity(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, feed, "a first row with no status write yields nothing")
}

func TestRecentActivityTruncates(t *testing.T) {
	f := newFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		id := f.user(t, email, models.RoleSeller)
		_, err := f.progress.Start(f.ctx, id)
		require.NoError(t, err)
		_, err = f.progress.Advance(f.ctx, id, 2)
		require.NoError(t, err)
	}

	feed, err := f.analytics.RecentActivity(f.ctx, 3)
	require.NoError(t, err)
	assert.Len(t, feed, 3)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}
}

func TestRecentActivityFallsBackToProfileEmail(t *testing.T) {
	f := newFixture(t)
	id := f.user(t, "gone@example.com", models.RoleSeller)
	_, err := f.progress.SetStatus(f.ctx, id, 1, models.StageStatusInProgress)
	require.NoError(t, err)
	_, err = f.progress.SetStatus(f.ctx, id, 1, models.StageStatusCompleted)
	require.NoError(t, err)
	require.NoError(t, f.store.Identities.Delete(f.ctx, id))

	feed, err := f.analytics.RecentActivity(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "gone@example.com", feed[0].Email)
}

func TestAnalyticsQueryRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := f.analytics.Query(f.ctx, repository.EventFilter{Start: &start, End: &end})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserJourney(t *testing.T) {
	f := newFixture(t)
	id := f.user(t, "journey@example.com", models.RoleSeller)
	_, err := f.progress.Start(f.ctx, id)
	require.NoError(t, err)

	recorder := NewAnalyticsRecorder(f.store.Events, 10, time.Hour)
	recorder.Record(&id, "first", nil)
	recorder.Record(&id, "second", nil)
	recorder.Stop()

	journey, err := f.analytics.UserJourney(f.ctx, "journey@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, journey.Profile.UUID)
	require.Len(t, journey.Events, 2)
	assert.Equal(t, "first", journey.Events[0].EventType)
	assert.Len(t, journey.Progress, 1)

	_, err = f.analytics.UserJourney(f.ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.analytics.UserJourney(f.ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "s@example.com", models.RoleSeller)
	f.user(t, "b@example.com", models.RoleBuyer)
	f.user(t, "admin@example.com", models.RoleAdmin)
	_, err := f.progress.Start(f.ctx, seller)
	require.NoError(t, err)

	m, err := f.analytics.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, m.TotalUsers)
	assert.EqualValues(t, 1, m.UsersByRole[models.RoleSeller])
	assert.EqualValues(t, 3, m.UsersByStatus[models.ProfileStatusNotStarted])
	assert.EqualValues(t, 1, m.ProgressByStatus[models.StageStatusNotStarted])
	assert.EqualValues(t, 3, m.Recent.NewUsers)
}

type failingEvents struct {
	repository.EventRepository
	calls atomic.Int32
}

func (e *failingEvents) CreateBatch(context.Context, []models.AnalyticsEvent) error {
	e.calls.Add(1)
	return errStoreDown
}

func TestRecorderNeverBlocksOnFailure(t *testing.T) {
	events := &failingEvents{}
	recorder := NewAnalyticsRecorder(events, 2, time.Hour)

	done := make(chan struct{})
	go func() {
		id := uuid.New()
		for i := 0; i < 50; i++ {
			recorder.Record(&id, "click", map[string]interface{}{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked")
	}
	recorder.Stop()
	assert.Positive(t, events.calls.Load())
}

func TestRecorderStampsAndFlushes(t *testing.T) {
	store, _ := memory.NewStore()
	recorder := NewAnalyticsRecorder(store.Events, 100, time.Hour)
	recorder.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	recorder.Record(nil, "signup", map[string]interface{}{"role": "seller"})
	stored, err := store.Events.Query(context.Background(), repository.EventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, stored, "buffered until flush")

	recorder.Flush()
	stored, err = store.Events.Query(context.Background(), repository.EventFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, stored, 1)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(stored[0].EventData, &payload))
	assert.Equal(t, "seller", payload["role"])
	assert.Equal(t, "2026-03-01T12:00:00Z", payload["timestamp"])
	recorder.Stop()
}

func TestRecorderStopIsIdempotent(t *testing.T) {
	store, _ := memory.NewStore()
	recorder := NewAnalyticsRecorder(store.Events, 10, time.Hour)
	recorder.Record(nil, "x", nil)
	recorder.Stop()
	recorder.Stop()

	stored, err := store.Events.Query(context.Background(), repository.EventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

// stalledEvents holds every batch write until release is closed.
type stalledEvents struct {
	repository.EventRepository
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (e *stalledEvents) CreateBatch(ctx context.Context, batch []models.AnalyticsEvent) error {
	if e.calls.Add(1) == 1 {
		close(e.entered)
	}
	<-e.release
	return e.EventRepository.CreateBatch(ctx, batch)
}

func TestRecorderBoundsBufferDuringSlowFlush(t *testing.T) {
	store, _ := memory.NewStore()
	events := &stalledEvents{
		EventRepository: store.Events,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	recorder := NewAnalyticsRecorder(events, 2, time.Hour)

	recorder.Record(nil, "a", nil)
	recorder.Record(nil, "b", nil)
	select {
	case <-events.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("flush never started")
	}

	for i := 0; i < 20; i++ {
		recorder.Record(nil, "burst", nil)
	}
	assert.EqualValues(t, 1, events.calls.Load(), "one flush in flight at a time")
	assert.EqualValues(t, 12, recorder.Dropped(), "buffer holds size*4 events")

	close(events.release)
	recorder.Stop()

	stored, err := store.Events.Query(context.Background(), repository.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 10)
	assert.EqualValues(t, 2, events.calls.Load())
}
