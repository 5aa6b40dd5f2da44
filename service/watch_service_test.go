package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ratwatch/config"
	"ratwatch/events"
	"ratwatch/models"
)

// fakeClock is a manually advanced Clock for deterministic deadline tests
type fakeClock struct {
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		DuplicateWindow:     5 * time.Minute,
		SchedulerInterval:   30 * time.Second,
		ModeratorDiscordIDs: []int64{999},
		Environment:         "test",
	}
}

func newTestWatchService(clock Clock) (WatchService, *MockUnitOfWork) {
	factory := NewMockUnitOfWorkFactory()
	svc := NewWatchService(factory, clock, testConfig())
	return svc, factory.UnitOfWork
}

func TestCreateWatch(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	scheduledAt := baseTime.Add(6 * time.Hour)

	params := CreateWatchParams{
		GuildID:         100,
		AccusedUserID:   200,
		InitiatorUserID: 300,
		DeadlineMinutes: 360,
		VotingMinutes:   10,
		ChannelID:       400,
	}

	t.Run("creates a pending watch and publishes the event", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("FindDuplicate", mock.Anything, int64(100), int64(200), scheduledAt, 5*time.Minute).Return(nil, nil)
		uow.WatchRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Watch")).Return(nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.WatchCreatedEvent")).Return()

		watch, err := svc.CreateWatch(context.Background(), params)

		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusPending, watch.Status)
		assert.Equal(t, scheduledAt, watch.ScheduledAt)
		assert.Equal(t, 10, watch.VotingDurationMinutes)
		assert.Equal(t, 1, uow.CommitCount)
		uow.AssertExpectations(t)
	})

	t.Run("falls back to the guild default voting window", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		defaultParams := params
		defaultParams.VotingMinutes = 0

		uow.WatchRepo.On("FindDuplicate", mock.Anything, int64(100), int64(200), scheduledAt, 5*time.Minute).Return(nil, nil)
		uow.GuildSettingsRepo.On("GetOrCreate", mock.Anything, int64(100)).Return(&models.GuildSettings{
			GuildID:              100,
			DefaultVotingMinutes: 15,
		}, nil)
		uow.WatchRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Watch")).Return(nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.WatchCreatedEvent")).Return()

		watch, err := svc.CreateWatch(context.Background(), defaultParams)

		require.NoError(t, err)
		assert.Equal(t, 15, watch.VotingDurationMinutes)
	})

	t.Run("rejects a duplicate within the tolerance window", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		existing := &models.Watch{ID: 42, AccusedUserID: 200, Status: models.WatchStatusPending}
		uow.WatchRepo.On("FindDuplicate", mock.Anything, int64(100), int64(200), scheduledAt, 5*time.Minute).Return(existing, nil)

		_, err := svc.CreateWatch(context.Background(), params)

		var dupErr *DuplicateWatchError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, int64(42), dupErr.ExistingWatchID)
		assert.Equal(t, 0, uow.CommitCount)
		uow.WatchRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a non-positive deadline", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		pastParams := params
		pastParams.DeadlineMinutes = 0

		_, err := svc.CreateWatch(context.Background(), pastParams)

		require.Error(t, err)
		assert.Equal(t, 0, uow.BeginCount)
	})
}

func TestCheckIn(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	newPendingWatch := func() *models.Watch {
		return &models.Watch{
			ID:              1,
			GuildID:         100,
			AccusedUserID:   200,
			InitiatorUserID: 300,
			ScheduledAt:     baseTime.Add(time.Hour),
			Status:          models.WatchStatusPending,
		}
	}

	t.Run("accused user clears the watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newPendingWatch()

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusPending).Return(true, nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.CheckedInEvent")).Return()

		result, err := svc.CheckIn(context.Background(), 1, 200)

		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusClearedEarly, result.Status)
		require.NotNil(t, result.ClearedAt)
		assert.Equal(t, baseTime, *result.ClearedAt)
		assert.Equal(t, 1, uow.CommitCount)
	})

	t.Run("rejects check-in by another user", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(newPendingWatch(), nil)

		_, err := svc.CheckIn(context.Background(), 1, 300)

		var wrongUser *WrongUserError
		require.ErrorAs(t, err, &wrongUser)
		assert.Equal(t, 0, uow.CommitCount)
	})

	t.Run("rejects check-in on a voting watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		watch := newPendingWatch()
		watch.Status = models.WatchStatusVoting
		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)

		_, err := svc.CheckIn(context.Background(), 1, 200)

		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
	})

	t.Run("reports invalid state when a concurrent actor got there first", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newPendingWatch()

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusPending).Return(false, nil)

		_, err := svc.CheckIn(context.Background(), 1, 200)

		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, models.WatchStatusPending, invalidState.Status)
		assert.Equal(t, 0, uow.CommitCount)
	})

	t.Run("returns not found for a missing watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

		_, err := svc.CheckIn(context.Background(), 99, 200)

		assert.ErrorIs(t, err, ErrWatchNotFound)
	})
}

func TestCastVote(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

	votingWatch := &models.Watch{
		ID:      1,
		GuildID: 100,
		Status:  models.WatchStatusVoting,
	}

	t.Run("records a vote and returns the running tally", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(votingWatch, nil)
		uow.WatchVoteRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(v *models.WatchVote) bool {
			return v.WatchID == 1 && v.VoterUserID == 500 && v.IsGuiltyVote
		})).Return(true, nil)
		uow.WatchVoteRepo.On("Tally", mock.Anything, int64(1)).Return(&models.VoteTally{GuiltyCount: 2, NotGuiltyCount: 1}, nil)

		tally, err := svc.CastVote(context.Background(), 1, 500, true)

		require.NoError(t, err)
		assert.Equal(t, 2, tally.GuiltyCount)
		assert.Equal(t, 1, tally.NotGuiltyCount)
		assert.Equal(t, 1, uow.CommitCount)
	})

	t.Run("rejects a vote after the ballot has closed", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		finalized := &models.Watch{ID: 1, Status: models.WatchStatusGuilty}
		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(finalized, nil)
		uow.WatchVoteRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.WatchVote")).Return(false, nil)

		_, err := svc.CastVote(context.Background(), 1, 500, true)

		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, models.WatchStatusGuilty, invalidState.Status)
		assert.Equal(t, 0, uow.CommitCount)
	})

	t.Run("returns not found for a missing watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

		_, err := svc.CastVote(context.Background(), 99, 500, false)

		assert.ErrorIs(t, err, ErrWatchNotFound)
	})
}

func TestCancel(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	newWatch := func(status models.WatchStatus) *models.Watch {
		return &models.Watch{
			ID:              1,
			GuildID:         100,
			AccusedUserID:   200,
			InitiatorUserID: 300,
			ScheduledAt:     baseTime.Add(time.Hour),
			Status:          status,
		}
	}

	t.Run("initiator cancels a pending watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newWatch(models.WatchStatusPending)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusPending).Return(true, nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.WatchCancelledEvent")).Return()

		result, err := svc.Cancel(context.Background(), 1, 300, false)

		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusCancelled, result.Status)
		assert.Equal(t, 1, uow.CommitCount)
	})

	t.Run("initiator cannot cancel once voting has opened", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(newWatch(models.WatchStatusVoting), nil)

		_, err := svc.Cancel(context.Background(), 1, 300, false)

		var wrongUser *WrongUserError
		require.ErrorAs(t, err, &wrongUser)
	})

	t.Run("moderator cancels a voting watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newWatch(models.WatchStatusVoting)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusVoting).Return(true, nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.WatchCancelledEvent")).Return()

		result, err := svc.Cancel(context.Background(), 1, 555, true)

		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusCancelled, result.Status)
	})

	t.Run("configured moderator ID counts as moderator", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newWatch(models.WatchStatusVoting)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusVoting).Return(true, nil)
		uow.Publisher.On("Publish", mock.AnythingOfType("events.WatchCancelledEvent")).Return()

		_, err := svc.Cancel(context.Background(), 1, 999, false)

		require.NoError(t, err)
	})

	t.Run("bystander cannot cancel", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(newWatch(models.WatchStatusPending), nil)

		_, err := svc.Cancel(context.Background(), 1, 777, false)

		var wrongUser *WrongUserError
		require.ErrorAs(t, err, &wrongUser)
	})

	t.Run("reports the stored status when a concurrent actor got there first", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)
		watch := newWatch(models.WatchStatusPending)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(watch, nil)
		uow.WatchRepo.On("ConditionalUpdateStatus", mock.Anything, watch, models.WatchStatusPending).Return(false, nil)

		_, err := svc.Cancel(context.Background(), 1, 300, false)

		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, models.WatchStatusPending, invalidState.Status)
		assert.Equal(t, 0, uow.CommitCount)
	})

	t.Run("rejects cancelling a finalized watch", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		uow.WatchRepo.On("GetByID", mock.Anything, int64(1)).Return(newWatch(models.WatchStatusGuilty), nil)

		_, err := svc.Cancel(context.Background(), 1, 999, true)

		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
	})
}

func TestListActive(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	laterStart := baseTime.Add(2 * time.Hour)

	t.Run("sorts by most recent activity", func(t *testing.T) {
		clock := newFakeClock(baseTime)
		svc, uow := newTestWatchService(clock)

		older := &models.Watch{ID: 1, Status: models.WatchStatusPending, CreatedAt: baseTime}
		newer := &models.Watch{ID: 2, Status: models.WatchStatusVoting, CreatedAt: baseTime.Add(-time.Hour), VotingStartedAt: &laterStart}

		uow.WatchRepo.On("GetActiveByGuild", mock.Anything, int64(100)).Return([]*models.Watch{older, newer}, nil)

		watches, err := svc.ListActive(context.Background(), 100)

		require.NoError(t, err)
		require.Len(t, watches, 2)
		assert.Equal(t, int64(2), watches[0].ID)
		assert.Equal(t, int64(1), watches[1].ID)
	})
}

func TestListRecent(t *testing.T) {
	clock := newFakeClock(time.Now())
	svc, uow := newTestWatchService(clock)

	recent := []*models.Watch{
		{ID: 3, Status: models.WatchStatusGuilty},
		{ID: 2, Status: models.WatchStatusCancelled},
	}
	uow.WatchRepo.On("GetByGuild", mock.Anything, int64(100), 10).Return(recent, nil)

	watches, err := svc.ListRecent(context.Background(), 100, 0)

	require.NoError(t, err)
	assert.Len(t, watches, 2)
}

func TestGetTally(t *testing.T) {
	clock := newFakeClock(time.Now())
	svc, uow := newTestWatchService(clock)

	uow.WatchVoteRepo.On("Tally", mock.Anything, int64(1)).Return(&models.VoteTally{GuiltyCount: 1, NotGuiltyCount: 4}, nil)

	tally, err := svc.GetTally(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, models.WatchStatusNotGuilty, tally.Verdict())
}

// Watch events are intentionally plain data; confirm what the bot layer
// receives carries the watch itself.
func TestWatchEventsCarryWatch(t *testing.T) {
	watch := &models.Watch{ID: 7}

	assert.Equal(t, events.EventTypeWatchCreated, events.WatchCreatedEvent{Watch: watch}.Type())
	assert.Equal(t, events.EventTypeVotingOpened, events.VotingOpenedEvent{Watch: watch}.Type())
	assert.Equal(t, events.EventTypeCheckedIn, events.CheckedInEvent{Watch: watch}.Type())
}
