// Package gamify derives reputation state — levels and achievements — from
// cumulative usage facts. Levels are a pure function of current counts and
// can go down; achievements are append-only and never revoked.
package gamify

// Level is one tier of the reputation ladder.
type Level struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	MinSnippets int    `json:"minSnippets"`
	MinUses     int    `json:"minUses"`
}

// Levels is the ordered tier table. Thresholds are monotonically
// non-decreasing in both dimensions, and tier 0 is (0,0) so every user
// always has a valid level.
var Levels = []Level{
	{Name: "Junior", Emoji: "🌱", MinSnippets: 0, MinUses: 0},
	{Name: "Junior+", Emoji: "🌿", MinSnippets: 3, MinUses: 20},
	{Name: "Middle", Emoji: "🌳", MinSnippets: 10, MinUses: 100},
	{Name: "Middle+", Emoji: "🌲", MinSnippets: 25, MinUses: 300},
	{Name: "Senior", Emoji: "🦅", MinSnippets: 50, MinUses: 1000},
}

// RecomputeLevel returns the highest tier index whose snippet and use
// thresholds are BOTH satisfied. Not an increment: when counted snippets
// shrink (after a deletion) the level legitimately drops with them.
func RecomputeLevel(snippetCount, useCount int) int {
	level := 0
	for i, tier := range Levels {
		if snippetCount >= tier.MinSnippets && useCount >= tier.MinUses {
			level = i
		}
	}
	return level
}
