package service

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
)

// DetailedReasonLength is the rejection-reason length (in runes) above which
// the rejection counts as detailed — longer than a curt dismissal.
const DetailedReasonLength = 20

// rapidWindow is the largest gap between two moderations that keeps the
// rate counter running.
const rapidWindow = time.Hour

// Moderation drives a pending snippet to exactly one of two terminal states:
// approved or rejected. Both paths update the admin's moderation counters
// and re-derive achievement state.
//
// RACING MODERATORS:
// The pending-exists check and the removal happen inside one store
// operation (PromotePending / RemovePending), so two admins acting on the
// same key cannot double-apply — the loser gets a clean not-found.

// Approve promotes a pending snippet into the approved collection. If the
// name is already approved (a race or re-submission elsewhere) the conflict
// surfaces to the admin and the pending entry stays put. On success the
// submitter's stats and the admin's moderation achievements are recomputed.
func (l *Library) Approve(pendingKey, adminID string) (model.Snippet, error) {
	if !l.store.IsAdmin(adminID) {
		return model.Snippet{}, apperror.Forbidden("only administrators can approve submissions")
	}

	approved, err := l.store.PromotePending(pendingKey)
	if err != nil {
		return model.Snippet{}, err
	}
	now := l.now()

	err = l.store.UpdateUser(adminID, now, func(u *model.UserRecord) error {
		u.ApprovedCount++
		recordModeration(u, now)
		return nil
	})
	if err != nil {
		return model.Snippet{}, err
	}

	l.logger.Info("snippet approved",
		slog.String("name", approved.Name),
		slog.String("submitterId", approved.Author),
		slog.String("adminId", adminID),
	)

	if _, _, err := l.gamify.UpdateStats(approved.Author, now); err != nil {
		return model.Snippet{}, err
	}
	if _, _, err := l.gamify.UpdateStats(adminID, now); err != nil {
		return model.Snippet{}, err
	}
	return approved, nil
}

// Reject removes a pending snippet without trace. The reason is mandatory
// free text; a substantial reason additionally counts toward the admin's
// detailed-rejection achievements.
func (l *Library) Reject(pendingKey, adminID, reason string) error {
	if !l.store.IsAdmin(adminID) {
		return apperror.Forbidden("only administrators can reject submissions")
	}
	if reason == "" {
		return apperror.ValidationFailed("reason", "a rejection reason is required")
	}

	rejected, err := l.store.RemovePending(pendingKey)
	if err != nil {
		return err
	}
	now := l.now()

	err = l.store.UpdateUser(adminID, now, func(u *model.UserRecord) error {
		u.RejectedCount++
		if utf8.RuneCountInString(reason) > DetailedReasonLength {
			u.DetailedRejectionCount++
		}
		recordModeration(u, now)
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("snippet rejected",
		slog.String("name", rejected.Name),
		slog.String("submitterId", rejected.SubmitterID),
		slog.String("adminId", adminID),
		slog.Int("reasonLength", utf8.RuneCountInString(reason)),
	)

	_, _, err = l.gamify.UpdateStats(adminID, now)
	return err
}

// PendingList returns the moderation queue, visible to administrators only.
func (l *Library) PendingList(adminID string) ([]model.PendingSnippet, error) {
	if !l.store.IsAdmin(adminID) {
		return nil, apperror.Forbidden("only administrators can view the moderation queue")
	}
	return l.store.PendingList(), nil
}

// recordModeration maintains the moderation-rate counter: a moderation
// within an hour of the PREVIOUS one increments it, a longer gap resets it
// to 1. The timestamp always moves to the latest moderation.
func recordModeration(u *model.UserRecord, now time.Time) {
	if u.LastModerationAt.IsZero() || now.Sub(u.LastModerationAt) > rapidWindow {
		u.HourModerations = 1
	} else {
		u.HourModerations++
	}
	u.LastModerationAt = now
}
