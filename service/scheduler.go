package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"ratwatch/events"
	"ratwatch/models"
)

// Scheduler drives time-based watch transitions: opening the voting window
// when a watch's scheduled time arrives, and finalizing the verdict when the
// window closes. Each due watch is processed in its own transaction so one
// failure cannot block the rest of the batch.
type Scheduler struct {
	uowFactory UnitOfWorkFactory
	clock      Clock
	interval   time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(uowFactory UnitOfWorkFactory, clock Clock, interval time.Duration) *Scheduler {
	return &Scheduler{
		uowFactory: uowFactory,
		clock:      clock,
		interval:   interval,
	}
}

// Start begins the periodic scan and returns a function to stop it
func (s *Scheduler) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Run once at startup to recover watches that came due while the
		// process was down
		s.Tick(ctx)

		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-stopChan:
				log.Info("Watch scheduler stopped")
				return
			case <-ctx.Done():
				log.Info("Watch scheduler stopped due to context cancellation")
				return
			}
		}
	}()

	log.WithField("interval", s.interval).Info("Watch scheduler started")

	return func() {
		close(stopChan)
	}
}

// Tick performs a single scan for due watches. Exported so callers with a
// controlled clock can drive the scheduler deterministically.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()
	s.openDueWatches(ctx, now)
	s.finalizeDueWatches(ctx, now)
}

func (s *Scheduler) openDueWatches(ctx context.Context, now time.Time) {
	due, err := s.listDue(ctx, now, true)
	if err != nil {
		log.Errorf("Failed to list watches due for voting: %v", err)
		return
	}

	for _, watch := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.openVoting(ctx, watch.ID, now); err != nil {
			log.WithFields(log.Fields{
				"watchID": watch.ID,
				"guildID": watch.GuildID,
			}).Errorf("Failed to open voting: %v", err)
		}
	}
}

func (s *Scheduler) finalizeDueWatches(ctx context.Context, now time.Time) {
	due, err := s.listDue(ctx, now, false)
	if err != nil {
		log.Errorf("Failed to list watches due for finalization: %v", err)
		return
	}

	for _, watch := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.finalize(ctx, watch.ID, now); err != nil {
			log.WithFields(log.Fields{
				"watchID": watch.ID,
				"guildID": watch.GuildID,
			}).Errorf("Failed to finalize watch: %v", err)
		}
	}
}

func (s *Scheduler) listDue(ctx context.Context, now time.Time, forVoting bool) ([]*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if forVoting {
		return uow.WatchRepository().GetDueForVotingOpen(ctx, now)
	}
	return uow.WatchRepository().GetDueForFinalization(ctx, now)
}

func (s *Scheduler) openVoting(ctx context.Context, watchID int64, now time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	// Re-read inside the transaction: the watch may have been checked in or
	// cancelled since the scan listed it
	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return err
	}
	if watch == nil || !watch.IsPending() {
		return nil
	}

	if _, err := watch.Apply(models.Event{Kind: models.EventDeadlineReached}, now); err != nil {
		return err
	}

	updated, err := uow.WatchRepository().ConditionalUpdateStatus(ctx, watch, models.WatchStatusPending)
	if err != nil {
		return err
	}
	if !updated {
		// Another actor advanced the watch first; nothing to do
		return nil
	}

	uow.EventBus().Publish(events.VotingOpenedEvent{Watch: watch})

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"watchID":     watch.ID,
		"guildID":     watch.GuildID,
		"votingEnds":  watch.VotingEndedAt,
		"accusedUser": watch.AccusedUserID,
	}).Info("Opened voting window")

	return nil
}

func (s *Scheduler) finalize(ctx context.Context, watchID int64, now time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	// Lock the watch row before tallying. Vote writes take the same lock,
	// so a ballot racing this finalizer either lands before the tally or
	// waits and is rejected against the committed terminal status.
	watch, err := uow.WatchRepository().GetByIDForUpdate(ctx, watchID)
	if err != nil {
		return err
	}
	if watch == nil || !watch.IsVoting() {
		return nil
	}

	tally, err := uow.WatchVoteRepository().Tally(ctx, watch.ID)
	if err != nil {
		return err
	}

	if _, err := watch.Apply(models.Event{Kind: models.EventVotingClosed, Tally: tally}, now); err != nil {
		return err
	}

	updated, err := uow.WatchRepository().ConditionalUpdateStatus(ctx, watch, models.WatchStatusVoting)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	uow.EventBus().Publish(events.VerdictAnnouncedEvent{Watch: watch, Tally: *tally})

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"watchID":        watch.ID,
		"guildID":        watch.GuildID,
		"verdict":        watch.Status,
		"guiltyVotes":    tally.GuiltyCount,
		"notGuiltyVotes": tally.NotGuiltyCount,
	}).Info("Finalized watch verdict")

	return nil
}
