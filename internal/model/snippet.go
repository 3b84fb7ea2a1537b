// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Supported snippet languages. The set is fixed: submissions naming any other
// language are rejected at validation time.
const (
	LangJavaScript = "JavaScript"
	LangPHP        = "PHP"
	LangCSS        = "CSS"
	LangHTML       = "HTML"
)

// Languages maps each supported language to its display emoji.
var Languages = map[string]string{
	LangJavaScript: "🟨",
	LangPHP:        "🐘",
	LangCSS:        "🎨",
	LangHTML:       "🌐",
}

// Categories is the fixed tag vocabulary. Snippets carry a subset of these
// (zero or one in practice).
var Categories = []string{"WordPress", "Bitrix", "General"}

// ValidLanguage reports whether lang is one of the supported languages.
func ValidLanguage(lang string) bool {
	_, ok := Languages[lang]
	return ok
}

// ValidCategory reports whether tag is part of the fixed tag vocabulary.
func ValidCategory(tag string) bool {
	for _, c := range Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// Snippet represents an approved, shared code fragment. The snippet's name is
// its key — unique within the approved collection.
//
// The `json:"..."` tags tell the JSON codec how to serialize/deserialize
// this struct to/from the collection files on disk.
type Snippet struct {
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Author    string    `json:"author"` // user id of the submitter
	Tags      []string  `json:"tags"`
	Uses      int       `json:"uses"` // monotonically non-decreasing
	CreatedAt time.Time `json:"createdAt"`
}

// PendingSnippet is a submitted-but-unmoderated snippet awaiting an
// administrator decision. Same shape as Snippet plus the submitter id; it
// becomes a Snippet on approval or disappears without trace on rejection.
type PendingSnippet struct {
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	SubmitterID string    `json:"submitterId"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Approved converts a pending entry into the Snippet it becomes on approval.
// A freshly approved snippet always starts with zero uses.
func (p *PendingSnippet) Approved() *Snippet {
	return &Snippet{
		Name:      p.Name,
		Code:      p.Code,
		Language:  p.Language,
		Author:    p.SubmitterID,
		Tags:      p.Tags,
		Uses:      0,
		CreatedAt: p.SubmittedAt,
	}
}
