package models

import (
	"fmt"
	"time"
)

// EventKind identifies an input to the watch state machine
type EventKind string

const (
	// EventDeadlineReached fires when a pending watch reaches its scheduled time
	EventDeadlineReached EventKind = "deadline_reached"
	// EventCheckIn is the accused user's self-clear during the pending phase
	EventCheckIn EventKind = "check_in"
	// EventVotingClosed fires when the voting window closes; carries the tally
	EventVotingClosed EventKind = "voting_closed"
	// EventCancel is an initiator or moderator cancellation
	EventCancel EventKind = "cancel"
)

// Event is one input to the watch state machine
type Event struct {
	Kind    EventKind
	ActorID int64
	Tally   *VoteTally
}

// SideEffect names an action the caller must execute after a successful
// persist. The state machine never performs them itself.
type SideEffect string

const (
	EffectAnnounceVotingOpen SideEffect = "announce_voting_open"
	EffectAnnounceVerdict    SideEffect = "announce_verdict"
	EffectNotifyCheckIn      SideEffect = "notify_check_in"
	EffectNotifyCancelled    SideEffect = "notify_cancelled"
)

// Transition records a state change and the side effects it requires
type Transition struct {
	From    WatchStatus
	To      WatchStatus
	Effects []SideEffect
}

// InvalidTransitionError reports an event rejected by the state machine
type InvalidTransitionError struct {
	WatchID int64
	Status  WatchStatus
	Event   EventKind
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("watch %d: cannot apply %s in status %s: %s", e.WatchID, e.Event, e.Status, e.Reason)
}

// Apply advances the watch per the transition table. On success the watch's
// status and phase timestamps are updated and the resulting transition is
// returned; rejected events leave the watch untouched and return
// *InvalidTransitionError. Terminal watches reject every event.
func (w *Watch) Apply(ev Event, now time.Time) (*Transition, error) {
	if w.IsTerminal() {
		return nil, &InvalidTransitionError{
			WatchID: w.ID,
			Status:  w.Status,
			Event:   ev.Kind,
			Reason:  "watch already finalized",
		}
	}

	from := w.Status

	switch {
	case w.Status == WatchStatusPending && ev.Kind == EventDeadlineReached:
		if now.Before(w.ScheduledAt) {
			return nil, w.rejected(ev, "scheduled deadline not reached")
		}
		endsAt := now.Add(w.VotingDuration())
		w.Status = WatchStatusVoting
		w.VotingStartedAt = &now
		w.VotingEndedAt = &endsAt
		return &Transition{From: from, To: w.Status, Effects: []SideEffect{EffectAnnounceVotingOpen}}, nil

	case w.Status == WatchStatusPending && ev.Kind == EventCheckIn:
		if !w.IsAccused(ev.ActorID) {
			return nil, w.rejected(ev, "only the accused user may check in")
		}
		w.Status = WatchStatusClearedEarly
		w.ClearedAt = &now
		return &Transition{From: from, To: w.Status, Effects: []SideEffect{EffectNotifyCheckIn}}, nil

	case ev.Kind == EventCancel:
		// Authorization (initiator vs moderator) is the caller's concern;
		// the state machine only guards against cancelling finished watches.
		w.Status = WatchStatusCancelled
		return &Transition{From: from, To: w.Status, Effects: []SideEffect{EffectNotifyCancelled}}, nil

	case w.Status == WatchStatusVoting && ev.Kind == EventVotingClosed:
		if w.VotingEndedAt == nil || now.Before(*w.VotingEndedAt) {
			return nil, w.rejected(ev, "voting window still open")
		}
		if ev.Tally == nil {
			return nil, w.rejected(ev, "missing vote tally")
		}
		w.Status = ev.Tally.Verdict()
		return &Transition{From: from, To: w.Status, Effects: []SideEffect{EffectAnnounceVerdict}}, nil
	}

	return nil, w.rejected(ev, "event not valid for current status")
}

func (w *Watch) rejected(ev Event, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{
		WatchID: w.ID,
		Status:  w.Status,
		Event:   ev.Kind,
		Reason:  reason,
	}
}
