// Package quota enforces the per-user daily submission ceiling.
package quota

import (
	"time"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
	"github.com/H4ckMM3/Snippet-Bot/internal/store"
)

// DailyLimit is the number of submissions a user may make per calendar day.
const DailyLimit = 5

// dayFormat truncates a timestamp to its calendar day; the counter resets
// whenever the day changes, not on a rolling 24-hour window.
const dayFormat = "2006-01-02"

// Guard checks and consumes submission quota against user records.
type Guard struct {
	store *store.Store
}

// NewGuard creates a Guard over the given store.
func NewGuard(s *store.Store) *Guard {
	return &Guard{store: s}
}

// CheckAndConsume consumes one unit of the user's daily quota, resetting the
// counter when the calendar day has changed. At the limit it fails with a
// quota-exceeded error and consumes nothing.
//
// The consumed counter is committed (persisted) by this call, BEFORE the
// caller creates any pending entity — a submission that fails later for
// other reasons has still spent its quota, but a submission rejected here
// has spent none.
func (g *Guard) CheckAndConsume(userID string, now time.Time) error {
	today := now.Format(dayFormat)

	return g.store.UpdateUser(userID, now, func(u *model.UserRecord) error {
		if u.LastSubmissionDate != today {
			u.SubmissionsToday = 0
			u.LastSubmissionDate = today
		}
		if u.SubmissionsToday >= DailyLimit {
			return apperror.QuotaExceeded(userID, DailyLimit)
		}
		u.SubmissionsToday++
		return nil
	})
}
