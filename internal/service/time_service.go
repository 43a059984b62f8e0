package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/util"
	"fmt"
	"time"
)

// ValidateTimeSpent clamps a client-claimed per-answer duration to what the
// server can vouch for: never more than the wall clock since the attempt
// started, and never more than maxCap. The client can only shorten the value,
// never inflate it.
func ValidateTimeSpent(claimed int, startedAt, now time.Time, maxCap time.Duration) int {
	if claimed < 0 {
		claimed = 0
	}
	elapsed := int(now.Sub(startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	validated := claimed
	if elapsed < validated {
		validated = elapsed
	}
	if cap := int(maxCap.Seconds()); validated > cap {
		validated = cap
	}
	return validated
}

// CheckSaveWindow is the strict per-answer gate: once the scheduling window
// has closed or the time limit is up, no further answer writes are accepted.
func CheckSaveWindow(a *model.Assessment, sub *model.Submission, now time.Time) error {
	if a.AvailableFrom != nil && now.Before(*a.AvailableFrom) {
		return util.ErrOutsideSchedule
	}
	if a.AvailableUntil != nil && now.After(*a.AvailableUntil) {
		return util.ErrOutsideSchedule
	}
	if a.TimeLimit > 0 {
		deadline := sub.StartedAt.Add(time.Duration(a.TimeLimit) * time.Minute)
		if now.After(deadline) {
			return util.ErrTimeLimitExceeded
		}
	}
	return nil
}

// CheckSubmitWindow gates the submit itself. Unlike saves, a submit slightly
// past the deadline is allowed within grace and only warned about: it merely
// finalizes answers that are already persisted, so availability wins over
// strict rejection there. Past the grace period the submit is refused.
func CheckSubmitWindow(a *model.Assessment, sub *model.Submission, now time.Time, grace time.Duration) (string, error) {
	if a.AvailableFrom != nil && now.Before(*a.AvailableFrom) {
		return "", util.ErrOutsideSchedule
	}
	var warning string
	if a.AvailableUntil != nil {
		if now.After(a.AvailableUntil.Add(grace)) {
			return "", util.ErrOutsideSchedule
		}
		if now.After(*a.AvailableUntil) {
			warning = "submitted after the assessment window closed"
		}
	}
	if a.TimeLimit > 0 {
		deadline := sub.StartedAt.Add(time.Duration(a.TimeLimit) * time.Minute)
		if now.After(deadline.Add(grace)) {
			return "", util.ErrTimeLimitExceeded
		}
		if now.After(deadline) {
			over := now.Sub(deadline).Round(time.Second)
			warning = fmt.Sprintf("submitted %s past the time limit", over)
		}
	}
	return warning, nil
}

// RemainingSeconds reports how long the student still has on the time limit.
// Returns 0 when the limit is up or the assessment has no limit.
func RemainingSeconds(a *model.Assessment, sub *model.Submission, now time.Time) int {
	if a.TimeLimit <= 0 {
		return 0
	}
	deadline := sub.StartedAt.Add(time.Duration(a.TimeLimit) * time.Minute)
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
