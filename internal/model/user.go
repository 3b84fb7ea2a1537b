// Package model defines the data structures used throughout the application.
package model

import "time"

// UserRecord is a user's persisted state, keyed by user id. Records are
// created lazily on first interaction and never deleted.
//
// Two kinds of fields live here and they follow different rules:
//
//   - Cumulative, append-only history: Favorites, Achievements, moderation
//     counters. These are only ever extended by operations.
//   - Derived state: Level, TotalSnippets, TotalUses. These are recomputed
//     from the approved snippet collection on every stats update and are
//     never trusted as authoritative input — a reload can always rebuild
//     them from the snippets alone.
//
// WHY Favorites []string (not map[string]bool)?
// A slice keeps the JSON on disk readable and insertion-ordered, matching
// how the collection files are reviewed by hand. Membership checks are
// O(n) but favorites lists are tiny.
type UserRecord struct {
	ID           string   `json:"id"`
	Favorites    []string `json:"favorites"`    // snippet names
	Achievements []string `json:"achievements"` // achievement codes, append-only
	Level        int      `json:"level"`        // recomputed, may decrease

	TotalSnippets int `json:"totalSnippets"` // recomputed from the store
	TotalUses     int `json:"totalUses"`     // recomputed from the store

	JoinDate           time.Time `json:"joinDate"`
	LastSubmissionDate string    `json:"lastSubmissionDate"` // calendar day, YYYY-MM-DD
	SubmissionsToday   int       `json:"submissionsToday"`

	// Moderation counters, meaningful only for administrators.
	ApprovedCount          int       `json:"approvedCount"`
	RejectedCount          int       `json:"rejectedCount"`
	DetailedRejectionCount int       `json:"detailedRejectionCount"`
	HourModerations        int       `json:"hourModerations"` // moderations without an hour-long gap
	LastModerationAt       time.Time `json:"lastModerationAt"`
}

// NewUserRecord returns the default zero/empty record created on a user's
// first interaction.
func NewUserRecord(id string, now time.Time) *UserRecord {
	return &UserRecord{
		ID:           id,
		Favorites:    []string{},
		Achievements: []string{},
		JoinDate:     now,
	}
}

// IsFavorite reports whether name is in the user's favorites set.
func (u *UserRecord) IsFavorite(name string) bool {
	for _, f := range u.Favorites {
		if f == name {
			return true
		}
	}
	return false
}

// AddFavorite adds name to the favorites set. Returns false if it was
// already present.
func (u *UserRecord) AddFavorite(name string) bool {
	if u.IsFavorite(name) {
		return false
	}
	u.Favorites = append(u.Favorites, name)
	return true
}

// RemoveFavorite removes name from the favorites set. Returns false if it
// was not present.
func (u *UserRecord) RemoveFavorite(name string) bool {
	for i, f := range u.Favorites {
		if f == name {
			u.Favorites = append(u.Favorites[:i], u.Favorites[i+1:]...)
			return true
		}
	}
	return false
}

// HasAchievement reports whether the user already holds the given code.
func (u *UserRecord) HasAchievement(code string) bool {
	for _, a := range u.Achievements {
		if a == code {
			return true
		}
	}
	return false
}
