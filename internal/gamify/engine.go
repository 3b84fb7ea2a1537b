package gamify

import (
	"log/slog"
	"time"

	"github.com/H4ckMM3/Snippet-Bot/internal/model"
	"github.com/H4ckMM3/Snippet-Bot/internal/store"
)

// Engine recomputes a user's derived reputation state from the entity store.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// NewEngine creates an Engine over the given store.
func NewEngine(s *store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// UpdateStats rebuilds the user's level and achievement set from current
// facts. The snippet and use counts are derived fresh from the approved
// collection by author id immediately before evaluation.
//
// Idempotent: calling it twice with unchanged inputs grants nothing new and
// leaves the level unchanged. Returns whether the level changed and the
// achievements granted by this call.
func (e *Engine) UpdateStats(userID string, now time.Time) (levelChanged bool, granted []Achievement, err error) {
	snippets, uses := e.store.AuthorStats(userID)
	facts := Facts{
		Snippets:          snippets,
		Uses:              uses,
		Languages:         e.store.AuthorLanguages(userID),
		FavoritesByOthers: e.store.FavoritedCount(userID),
		IsAdmin:           e.store.IsAdmin(userID),
	}

	err = e.store.UpdateUser(userID, now, func(u *model.UserRecord) error {
		facts.Approved = u.ApprovedCount
		facts.Rejected = u.RejectedCount
		facts.DetailedRejections = u.DetailedRejectionCount
		facts.HourModerations = u.HourModerations

		u.TotalSnippets = facts.Snippets
		u.TotalUses = facts.Uses

		oldLevel := u.Level
		u.Level = RecomputeLevel(facts.Snippets, facts.Uses)
		levelChanged = u.Level != oldLevel

		for _, a := range Achievements {
			if u.HasAchievement(a.Code) {
				continue
			}
			ok, err := a.granted(facts)
			if err != nil {
				return err
			}
			if ok {
				u.Achievements = append(u.Achievements, a.Code)
				granted = append(granted, a)
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	if levelChanged || len(granted) > 0 {
		codes := make([]string, 0, len(granted))
		for _, a := range granted {
			codes = append(codes, a.Code)
		}
		e.logger.Info("derived stats updated",
			slog.String("userId", userID),
			slog.Int("snippets", facts.Snippets),
			slog.Int("uses", facts.Uses),
			slog.Bool("levelChanged", levelChanged),
			slog.Any("newAchievements", codes),
		)
	}
	return levelChanged, granted, nil
}
