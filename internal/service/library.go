// Package service contains the business logic layer: the library facade over
// the entity store and the moderation pipeline built on top of it.
//
// The layering follows the usual three-layer shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Store (data layer)       → reads/writes the collection files
//
// The service accepts primitives and returns domain errors; it has zero
// knowledge of HTTP. Handlers translate its errors to status codes.
package service

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/gamify"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
	"github.com/H4ckMM3/Snippet-Bot/internal/quota"
	"github.com/H4ckMM3/Snippet-Bot/internal/session"
	"github.com/H4ckMM3/Snippet-Bot/internal/store"
)

// Validation limits for submissions.
const (
	MaxNameLength = 100
	MaxCodeLength = 4000
)

// Library is the facade the caller layer talks to. It owns the quota guard
// and the gamification engine; everything shares one store.
type Library struct {
	store    *store.Store
	quota    *quota.Guard
	gamify   *gamify.Engine
	sessions *session.Index
	logger   *slog.Logger
	now      func() time.Time
}

// NewLibrary wires a Library over the given store and session index.
func NewLibrary(s *store.Store, sessions *session.Index, logger *slog.Logger) *Library {
	return &Library{
		store:    s,
		quota:    quota.NewGuard(s),
		gamify:   gamify.NewEngine(s, logger),
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates a submission, consumes quota, and records a pending
// snippet awaiting moderation. Quota is checked and committed BEFORE the
// pending entity is created, so a failed submission never spends quota.
func (l *Library) Submit(submitterID, name, code, language string, tags []string) (model.PendingSnippet, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return model.PendingSnippet{}, apperror.ValidationFailed("name", "snippet name is required")
	}
	// Limits are in characters, not bytes: Cyrillic names are the norm here
	// and they take two bytes per rune.
	if utf8.RuneCountInString(name) > MaxNameLength {
		return model.PendingSnippet{}, apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxNameLength))
	}
	if code == "" {
		return model.PendingSnippet{}, apperror.ValidationFailed("code", "snippet code is required")
	}
	if utf8.RuneCountInString(code) > MaxCodeLength {
		return model.PendingSnippet{}, apperror.ValidationFailed("code",
			fmt.Sprintf("snippet code must be %d characters or less", MaxCodeLength))
	}
	if !model.ValidLanguage(language) {
		return model.PendingSnippet{}, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", language))
	}
	if tags == nil {
		tags = []string{}
	}
	for _, tag := range tags {
		if !model.ValidCategory(tag) {
			return model.PendingSnippet{}, apperror.ValidationFailed("tags",
				fmt.Sprintf("unknown tag %q", tag))
		}
	}

	now := l.now()
	if err := l.quota.CheckAndConsume(submitterID, now); err != nil {
		return model.PendingSnippet{}, err
	}

	pending := &model.PendingSnippet{
		Name:        name,
		Code:        code,
		Language:    language,
		Tags:        tags,
		SubmitterID: submitterID,
		SubmittedAt: now,
	}
	if err := l.store.PutPending(pending); err != nil {
		return model.PendingSnippet{}, err
	}

	l.logger.Info("snippet submitted",
		slog.String("name", name),
		slog.String("language", language),
		slog.String("submitterId", submitterID),
	)
	return *pending, nil
}

// UseSnippet returns the named snippet and counts the use.
func (l *Library) UseSnippet(name string) (model.Snippet, error) {
	return l.store.UseSnippet(name)
}

// DeleteSnippet removes an approved snippet. Only the author may delete it;
// the name is retracted from every user's favorites, and the author's
// derived stats are recomputed (their level may drop).
func (l *Library) DeleteSnippet(name, requesterID string) error {
	snippet, err := l.store.Snippet(name)
	if err != nil {
		return err
	}
	if snippet.Author != requesterID {
		return apperror.Forbidden("only the author can delete a snippet")
	}
	if err := l.store.DeleteSnippet(name); err != nil {
		return err
	}

	l.logger.Info("snippet deleted",
		slog.String("name", name),
		slog.String("requesterId", requesterID),
	)

	if _, _, err := l.gamify.UpdateStats(snippet.Author, l.now()); err != nil {
		return err
	}
	return nil
}

// Favorite adds the snippet to the user's favorites set. Returns false when
// it was already there. The snippet must exist — delete keeps favorites
// dangling-free, so favorite never lets a dangle in.
func (l *Library) Favorite(userID, name string) (bool, error) {
	if _, err := l.store.Snippet(name); err != nil {
		return false, err
	}
	added := false
	err := l.store.UpdateUser(userID, l.now(), func(u *model.UserRecord) error {
		added = u.AddFavorite(name)
		return nil
	})
	return added, err
}

// Unfavorite removes the snippet from the user's favorites set. Returns
// false when it was not there.
func (l *Library) Unfavorite(userID, name string) (bool, error) {
	removed := false
	err := l.store.UpdateUser(userID, l.now(), func(u *model.UserRecord) error {
		removed = u.RemoveFavorite(name)
		return nil
	})
	return removed, err
}

// Favorites returns the user's favorite snippets.
func (l *Library) Favorites(userID string) ([]model.Snippet, error) {
	user, err := l.store.User(userID, l.now())
	if err != nil {
		return nil, err
	}
	result := make([]model.Snippet, 0, len(user.Favorites))
	for _, name := range user.Favorites {
		snippet, err := l.store.Snippet(name)
		if err != nil {
			continue // retracted concurrently
		}
		result = append(result, snippet)
	}
	return result, nil
}

// All returns every approved snippet, ordered by name.
func (l *Library) All() []model.Snippet {
	return l.store.Snippets()
}

// Search returns snippets whose name contains query, case-insensitively.
func (l *Library) Search(query string) []model.Snippet {
	return l.store.Search(query)
}

// FilterByLanguage returns snippets in the given language.
func (l *Library) FilterByLanguage(language string) []model.Snippet {
	return l.store.FilterByLanguage(language)
}

// FilterByTag returns snippets carrying the given tag.
func (l *Library) FilterByTag(tag string) []model.Snippet {
	return l.store.FilterByTag(tag)
}

// UpdateStats recomputes the user's level and achievements from fresh
// counts. Returns whether the level changed and any newly granted
// achievements.
func (l *Library) UpdateStats(userID string) (bool, []gamify.Achievement, error) {
	return l.gamify.UpdateStats(userID, l.now())
}

// IsAdmin reports whether the user is in the administrator set.
func (l *Library) IsAdmin(userID string) bool {
	return l.store.IsAdmin(userID)
}

// GrantAdmin adds the user to the administrator set. Returns false if they
// already were one.
func (l *Library) GrantAdmin(userID string) (bool, error) {
	granted, err := l.store.GrantAdmin(userID)
	if err != nil {
		return false, err
	}
	if granted {
		l.logger.Info("admin granted", slog.String("userId", userID))
	}
	return granted, nil
}

// BuildHandles computes opaque handles for the given keys and installs them
// as the session's current render. Returns handle keyed by entity key.
func (l *Library) BuildHandles(sessionID string, keys []string) (map[string]string, error) {
	return l.sessions.Build(sessionID, keys)
}

// ResolveHandle resolves a handle from a previous render back to its key.
func (l *Library) ResolveHandle(sessionID, handle string) (string, error) {
	return l.sessions.Resolve(sessionID, handle)
}

// ResetSession drops a session's handle map.
func (l *Library) ResetSession(sessionID string) {
	l.sessions.Reset(sessionID)
}

// Profile is a user's rendered reputation view.
type Profile struct {
	User            model.UserRecord     `json:"user"`
	Level           gamify.Level         `json:"level"`
	NextLevel       *gamify.Level        `json:"nextLevel,omitempty"`
	Achievements    []gamify.Achievement `json:"achievements"`
	NewAchievements []gamify.Achievement `json:"newAchievements"`
	LevelChanged    bool                 `json:"levelChanged"`
}

// Profile refreshes the user's derived stats and returns the full
// reputation view, including progress targets for the next tier.
func (l *Library) Profile(userID string) (Profile, error) {
	levelChanged, granted, err := l.gamify.UpdateStats(userID, l.now())
	if err != nil {
		return Profile{}, err
	}
	user, err := l.store.User(userID, l.now())
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		User:            user,
		Level:           gamify.Levels[user.Level],
		NewAchievements: granted,
		LevelChanged:    levelChanged,
	}
	if user.Level+1 < len(gamify.Levels) {
		next := gamify.Levels[user.Level+1]
		p.NextLevel = &next
	}
	for _, code := range user.Achievements {
		if a, ok := gamify.ByCode(code); ok {
			p.Achievements = append(p.Achievements, a)
		}
	}
	return p, nil
}

// LanguageStats aggregates snippet count and uses for one language or tag.
type LanguageStats struct {
	Count int `json:"count"`
	Uses  int `json:"uses"`
}

// AuthorRank is one row of the top-authors board.
type AuthorRank struct {
	Author   string `json:"author"`
	Snippets int    `json:"snippets"`
	Uses     int    `json:"uses"`
}

// Statistics is the library-wide aggregate view.
type Statistics struct {
	TotalSnippets int                      `json:"totalSnippets"`
	TotalUses     int                      `json:"totalUses"`
	Users         int                      `json:"users"`
	ByLanguage    map[string]LanguageStats `json:"byLanguage"`
	ByTag         map[string]int           `json:"byTag"`
	TopAuthors    []AuthorRank             `json:"topAuthors"`
}

// Statistics computes the library-wide aggregates: totals, per-language and
// per-tag breakdowns, and the top three authors by uses.
func (l *Library) Statistics() Statistics {
	snippets := l.store.Snippets()

	stats := Statistics{
		Users:      l.store.UserCount(),
		ByLanguage: make(map[string]LanguageStats),
		ByTag:      make(map[string]int),
	}
	byAuthor := make(map[string]*AuthorRank)

	for _, sn := range snippets {
		stats.TotalSnippets++
		stats.TotalUses += sn.Uses

		lang := stats.ByLanguage[sn.Language]
		lang.Count++
		lang.Uses += sn.Uses
		stats.ByLanguage[sn.Language] = lang

		for _, tag := range sn.Tags {
			stats.ByTag[tag]++
		}

		rank, ok := byAuthor[sn.Author]
		if !ok {
			rank = &AuthorRank{Author: sn.Author}
			byAuthor[sn.Author] = rank
		}
		rank.Snippets++
		rank.Uses += sn.Uses
	}

	for _, rank := range byAuthor {
		stats.TopAuthors = append(stats.TopAuthors, *rank)
	}
	sort.Slice(stats.TopAuthors, func(i, j int) bool {
		if stats.TopAuthors[i].Uses != stats.TopAuthors[j].Uses {
			return stats.TopAuthors[i].Uses > stats.TopAuthors[j].Uses
		}
		return stats.TopAuthors[i].Author < stats.TopAuthors[j].Author
	})
	if len(stats.TopAuthors) > 3 {
		stats.TopAuthors = stats.TopAuthors[:3]
	}
	return stats
}
