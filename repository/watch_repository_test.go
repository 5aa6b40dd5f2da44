package repository

import (
	"context"
	"testing"
	"time"

	"ratwatch/models"
	"ratwatch/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)

	t.Run("create populates generated fields", func(t *testing.T) {
		watch := testutil.CreateTestWatch(100, 200, 300, scheduledAt)

		err := repo.Create(ctx, watch)
		require.NoError(t, err)
		assert.NotZero(t, watch.ID)
		assert.False(t, watch.CreatedAt.IsZero())
		assert.False(t, watch.UpdatedAt.IsZero())
	})

	t.Run("get by ID round-trips all fields", func(t *testing.T) {
		message := "no gym no mercy"
		watch := testutil.CreateTestWatch(101, 201, 301, scheduledAt)
		watch.CustomMessage = &message
		require.NoError(t, repo.Create(ctx, watch))

		found, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, watch.GuildID, found.GuildID)
		assert.Equal(t, watch.AccusedUserID, found.AccusedUserID)
		assert.Equal(t, watch.InitiatorUserID, found.InitiatorUserID)
		assert.Equal(t, models.WatchStatusPending, found.Status)
		assert.True(t, scheduledAt.Equal(found.ScheduledAt))
		require.NotNil(t, found.CustomMessage)
		assert.Equal(t, message, *found.CustomMessage)
	})

	t.Run("missing watch returns nil without error", func(t *testing.T) {
		found, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestWatchRepository_FindDuplicate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	existing := testutil.CreateTestWatch(100, 200, 300, scheduledAt)
	require.NoError(t, repo.Create(ctx, existing))

	t.Run("finds a watch within the window", func(t *testing.T) {
		found, err := repo.FindDuplicate(ctx, 100, 200, scheduledAt.Add(2*time.Minute), window)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, existing.ID, found.ID)
	})

	t.Run("finds a watch at the exact window boundary", func(t *testing.T) {
		found, err := repo.FindDuplicate(ctx, 100, 200, scheduledAt.Add(window), window)
		require.NoError(t, err)
		assert.NotNil(t, found)
	})

	t.Run("ignores a watch outside the window", func(t *testing.T) {
		found, err := repo.FindDuplicate(ctx, 100, 200, scheduledAt.Add(10*time.Minute), window)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ignores other accused users", func(t *testing.T) {
		found, err := repo.FindDuplicate(ctx, 100, 201, scheduledAt, window)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ignores other guilds", func(t *testing.T) {
		found, err := repo.FindDuplicate(ctx, 999, 200, scheduledAt, window)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ignores terminal watches", func(t *testing.T) {
		cancelled := testutil.CreateTestWatchWithStatus(102, 202, 302, scheduledAt, models.WatchStatusCancelled)
		require.NoError(t, repo.Create(ctx, cancelled))

		found, err := repo.FindDuplicate(ctx, 102, 202, scheduledAt, window)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestWatchRepository_DueQueries(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	now := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)

	duePending := testutil.CreateTestWatch(100, 200, 300, now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, duePending))

	futurePending := testutil.CreateTestWatch(100, 201, 300, now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, futurePending))

	expiredVoting := testutil.CreateTestWatchWithStatus(100, 202, 300, now.Add(-10*time.Minute), models.WatchStatusVoting)
	require.NoError(t, repo.Create(ctx, expiredVoting))

	openVoting := testutil.CreateTestWatchWithStatus(100, 203, 300, now.Add(-2*time.Minute), models.WatchStatusVoting)
	require.NoError(t, repo.Create(ctx, openVoting))

	t.Run("due for voting open returns only past-deadline pending", func(t *testing.T) {
		due, err := repo.GetDueForVotingOpen(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, duePending.ID, due[0].ID)
	})

	t.Run("due for finalization returns only expired voting", func(t *testing.T) {
		due, err := repo.GetDueForFinalization(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, expiredVoting.ID, due[0].ID)
	})
}

func TestWatchRepository_ConditionalUpdateStatus(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)

	t.Run("updates when the expected status matches", func(t *testing.T) {
		watch := testutil.CreateTestWatch(100, 200, 300, scheduledAt)
		require.NoError(t, repo.Create(ctx, watch))

		_, err := watch.Apply(models.Event{Kind: models.EventDeadlineReached}, scheduledAt)
		require.NoError(t, err)

		updated, err := repo.ConditionalUpdateStatus(ctx, watch, models.WatchStatusPending)
		require.NoError(t, err)
		assert.True(t, updated)

		stored, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusVoting, stored.Status)
		require.NotNil(t, stored.VotingStartedAt)
		require.NotNil(t, stored.VotingEndedAt)
	})

	t.Run("refuses when another writer advanced the watch first", func(t *testing.T) {
		watch := testutil.CreateTestWatch(101, 201, 301, scheduledAt)
		require.NoError(t, repo.Create(ctx, watch))

		// First writer wins
		first := *watch
		_, err := first.Apply(models.Event{Kind: models.EventCheckIn, ActorID: 201}, scheduledAt.Add(-time.Hour))
		require.NoError(t, err)
		updated, err := repo.ConditionalUpdateStatus(ctx, &first, models.WatchStatusPending)
		require.NoError(t, err)
		require.True(t, updated)

		// Second writer, still holding the stale pending copy, loses
		second := *watch
		_, err = second.Apply(models.Event{Kind: models.EventDeadlineReached}, scheduledAt)
		require.NoError(t, err)
		updated, err = repo.ConditionalUpdateStatus(ctx, &second, models.WatchStatusPending)
		require.NoError(t, err)
		assert.False(t, updated)

		stored, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusClearedEarly, stored.Status)
	})
}

func TestWatchRepository_GetActiveByGuild(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)

	pending := testutil.CreateTestWatch(100, 200, 300, scheduledAt)
	require.NoError(t, repo.Create(ctx, pending))

	voting := testutil.CreateTestWatchWithStatus(100, 201, 300, scheduledAt, models.WatchStatusVoting)
	require.NoError(t, repo.Create(ctx, voting))

	finished := testutil.CreateTestWatchWithStatus(100, 202, 300, scheduledAt, models.WatchStatusGuilty)
	require.NoError(t, repo.Create(ctx, finished))

	otherGuild := testutil.CreateTestWatch(999, 200, 300, scheduledAt)
	require.NoError(t, repo.Create(ctx, otherGuild))

	active, err := repo.GetActiveByGuild(ctx, 100)
	require.NoError(t, err)
	require.Len(t, active, 2)

	ids := []int64{active[0].ID, active[1].ID}
	assert.Contains(t, ids, pending.ID)
	assert.Contains(t, ids, voting.ID)
}

func TestWatchRepository_GetByGuild(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC)

	first := testutil.CreateTestWatch(100, 200, 300, scheduledAt)
	require.NoError(t, repo.Create(ctx, first))

	second := testutil.CreateTestWatchWithStatus(100, 201, 300, scheduledAt, models.WatchStatusGuilty)
	require.NoError(t, repo.Create(ctx, second))

	third := testutil.CreateTestWatchWithStatus(100, 202, 300, scheduledAt, models.WatchStatusCancelled)
	require.NoError(t, repo.Create(ctx, third))

	otherGuild := testutil.CreateTestWatch(999, 200, 300, scheduledAt)
	require.NoError(t, repo.Create(ctx, otherGuild))

	t.Run("returns newest first regardless of status", func(t *testing.T) {
		watches, err := repo.GetByGuild(ctx, 100, 10)
		require.NoError(t, err)
		require.Len(t, watches, 3)
		assert.Equal(t, third.ID, watches[0].ID)
		assert.Equal(t, second.ID, watches[1].ID)
		assert.Equal(t, first.ID, watches[2].ID)
	})

	t.Run("honors limit", func(t *testing.T) {
		watches, err := repo.GetByGuild(ctx, 100, 2)
		require.NoError(t, err)
		require.Len(t, watches, 2)
		assert.Equal(t, third.ID, watches[0].ID)
	})
}

func TestWatchRepository_UpdateMessageIDs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	watch := testutil.CreateTestWatch(100, 200, 300, time.Date(2030, 1, 15, 18, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, watch))

	err := repo.UpdateMessageIDs(ctx, watch.ID, 555, 666)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, watch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(555), stored.MessageID)
	assert.Equal(t, int64(666), stored.ChannelID)
}
