// Package store owns the four persisted collections — approved snippets,
// pending snippets, user records, and the administrator set — and performs
// crash-safe load/save against flat JSON files.
//
// WHY FLAT FILES AND NOT A DATABASE?
// The library is small, single-node, and reviewed by hand: a readable JSON
// document per collection is the whole persistence story. Each collection
// loads and saves independently, so corruption in one file never blocks the
// other three.
//
// CONCURRENCY:
// Handlers run on goroutines, so every collection access goes through a
// single RWMutex. Check-then-act sequences that must not race (promote a
// pending snippet, remove a pending snippet, insert-iff-absent) are provided
// as compound operations that hold the lock across the whole sequence; the
// loser of a race observes a clean not-found or duplicate error, never a
// half-applied state.
//
// The Store is constructed once at process start (store.Open) and passed by
// reference into every component — there is no package-level singleton.
package store

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
)

// File names of the four collection documents inside the data directory.
const (
	snippetsFile = "snippets.json"
	pendingFile  = "pending.json"
	usersFile    = "users.json"
	adminsFile   = "admins.json"
)

// Store is the persistent entity store.
type Store struct {
	mu     sync.RWMutex
	dir    string
	logger *slog.Logger

	snippets map[string]*model.Snippet
	pending  map[string]*model.PendingSnippet
	users    map[string]*model.UserRecord
	admins   map[string]bool
}

// Open loads all four collections from dir, recovering from backups where
// needed. A missing or corrupt file in one collection never blocks the rest.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: logger,
	}

	var err error
	if s.snippets, err = openCollection[*model.Snippet](s, snippetsFile); err != nil {
		return nil, err
	}
	if s.pending, err = openCollection[*model.PendingSnippet](s, pendingFile); err != nil {
		return nil, err
	}
	if s.users, err = openCollection[*model.UserRecord](s, usersFile); err != nil {
		return nil, err
	}
	if s.admins, err = openCollection[bool](s, adminsFile); err != nil {
		return nil, err
	}

	logger.Info("store opened",
		slog.String("dir", dir),
		slog.Int("snippets", len(s.snippets)),
		slog.Int("pending", len(s.pending)),
		slog.Int("users", len(s.users)),
		slog.Int("admins", len(s.admins)),
	)
	return s, nil
}

// openCollection loads one document and re-saves it immediately when the
// loader self-healed (missing primary) or recovered from the backup.
func openCollection[T any](s *Store, file string) (map[string]T, error) {
	path := filepath.Join(s.dir, file)
	data, resave, corrupt, err := loadDocument[T](path)
	if err != nil {
		return nil, apperror.Persistence(file, err)
	}
	if corrupt != nil {
		s.logger.Warn("collection primary corrupt",
			slog.String("file", file),
			slog.String("error", corrupt.Error()),
		)
	}
	if resave {
		s.logger.Warn("collection recovered, normalizing primary", slog.String("file", file))
		if err := saveDocument(path, data); err != nil {
			return nil, apperror.Persistence(file, err)
		}
	}
	return data, nil
}

// SaveAll persists every collection. Used as the flush-on-shutdown hook; each
// mutating operation already saves its own collection eagerly.
func (s *Store) SaveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveSnippets(); err != nil {
		return err
	}
	if err := s.savePending(); err != nil {
		return err
	}
	if err := s.saveUsers(); err != nil {
		return err
	}
	return s.saveAdmins()
}

// save helpers — callers must hold s.mu.

func (s *Store) saveSnippets() error {
	if err := saveDocument(filepath.Join(s.dir, snippetsFile), s.snippets); err != nil {
		return apperror.Persistence("snippets", err)
	}
	return nil
}

func (s *Store) savePending() error {
	if err := saveDocument(filepath.Join(s.dir, pendingFile), s.pending); err != nil {
		return apperror.Persistence("pending snippets", err)
	}
	return nil
}

func (s *Store) saveUsers() error {
	if err := saveDocument(filepath.Join(s.dir, usersFile), s.users); err != nil {
		return apperror.Persistence("users", err)
	}
	return nil
}

func (s *Store) saveAdmins() error {
	if err := saveDocument(filepath.Join(s.dir, adminsFile), s.admins); err != nil {
		return apperror.Persistence("admins", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Approved snippets
// ---------------------------------------------------------------------------

// PutSnippet inserts a snippet iff its name is absent from the approved
// collection, then persists.
func (s *Store) PutSnippet(snippet *model.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snippets[snippet.Name]; exists {
		return apperror.Duplicate("snippet", snippet.Name)
	}
	s.snippets[snippet.Name] = snippet
	return s.saveSnippets()
}

// Snippet returns a copy of the named snippet without touching its use count.
func (s *Store) Snippet(name string) (model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snippet, ok := s.snippets[name]
	if !ok {
		return model.Snippet{}, apperror.NotFound("snippet", name)
	}
	return *snippet, nil
}

// UseSnippet returns the named snippet, incrementing its use count as an
// observable side effect and persisting the collection before returning.
func (s *Store) UseSnippet(name string) (model.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snippet, ok := s.snippets[name]
	if !ok {
		return model.Snippet{}, apperror.NotFound("snippet", name)
	}
	snippet.Uses++
	if err := s.saveSnippets(); err != nil {
		return model.Snippet{}, err
	}
	return *snippet, nil
}

// DeleteSnippet removes the named snippet and retracts its name from every
// user's favorites set, keeping the two collections consistent under one
// lock. Both documents are persisted.
func (s *Store) DeleteSnippet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snippets[name]; !ok {
		return apperror.NotFound("snippet", name)
	}
	delete(s.snippets, name)

	retracted := false
	for _, user := range s.users {
		if user.RemoveFavorite(name) {
			retracted = true
		}
	}

	if err := s.saveSnippets(); err != nil {
		return err
	}
	if retracted {
		return s.saveUsers()
	}
	return nil
}

// Snippets returns every approved snippet, ordered by name so listings and
// handle indexes are deterministic.
func (s *Store) Snippets() []model.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*model.Snippet) bool { return true })
}

// Search returns snippets whose name contains query, case-insensitively.
func (s *Store) Search(query string) []model.Snippet {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(sn *model.Snippet) bool {
		return strings.Contains(strings.ToLower(sn.Name), q)
	})
}

// FilterByLanguage returns snippets written in the given language.
func (s *Store) FilterByLanguage(language string) []model.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(sn *model.Snippet) bool {
		return sn.Language == language
	})
}

// FilterByTag returns snippets carrying the given tag.
func (s *Store) FilterByTag(tag string) []model.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(sn *model.Snippet) bool {
		for _, t := range sn.Tags {
			if t == tag {
				return true
			}
		}
		return false
	})
}

// collect gathers snippet copies matching keep, sorted by name.
// Callers must hold s.mu.
func (s *Store) collect(keep func(*model.Snippet) bool) []model.Snippet {
	result := make([]model.Snippet, 0, len(s.snippets))
	for _, sn := range s.snippets {
		if keep(sn) {
			result = append(result, *sn)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// AuthorStats derives an author's snippet count and cumulative use count
// fresh from the approved collection. Derived user fields are always rebuilt
// from this, never carried forward.
func (s *Store) AuthorStats(author string) (snippets, uses int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sn := range s.snippets {
		if sn.Author == author {
			snippets++
			uses += sn.Uses
		}
	}
	return snippets, uses
}

// AuthorLanguages counts the distinct languages the author has approved
// snippets in.
func (s *Store) AuthorLanguages(author string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, sn := range s.snippets {
		if sn.Author == author {
			seen[sn.Language] = true
		}
	}
	return len(seen)
}

// FavoritedCount counts how many favorites entries across all users point at
// snippets authored by author.
func (s *Store) FavoritedCount(author string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authored := make(map[string]bool)
	for name, sn := range s.snippets {
		if sn.Author == author {
			authored[name] = true
		}
	}

	total := 0
	for _, user := range s.users {
		for _, fav := range user.Favorites {
			if authored[fav] {
				total++
			}
		}
	}
	return total
}

// ---------------------------------------------------------------------------
// Pending snippets
// ---------------------------------------------------------------------------

// PutPending inserts a pending snippet iff its name is absent from BOTH the
// pending and the approved collections, then persists. A name must never be
// pending and approved at the same time.
func (s *Store) PutPending(p *model.PendingSnippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[p.Name]; exists {
		return apperror.Duplicate("pending snippet", p.Name)
	}
	if _, exists := s.snippets[p.Name]; exists {
		return apperror.Duplicate("snippet", p.Name)
	}
	s.pending[p.Name] = p
	return s.savePending()
}

// Pending returns a copy of the pending snippet with the given key.
func (s *Store) Pending(key string) (model.PendingSnippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[key]
	if !ok {
		return model.PendingSnippet{}, apperror.NotFound("pending snippet", key)
	}
	return *p, nil
}

// PendingList returns every pending snippet, ordered by name.
func (s *Store) PendingList() []model.PendingSnippet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.PendingSnippet, 0, len(s.pending))
	for _, p := range s.pending {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// PromotePending moves a pending snippet into the approved collection under
// one lock: the check for the pending entry, the duplicate-name check against
// approved, and the move itself cannot interleave with another moderation
// action. On a duplicate name the pending entry is left intact and the
// conflict surfaces to the caller. Both documents are persisted on success.
func (s *Store) PromotePending(key string) (model.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return model.Snippet{}, apperror.NotFound("pending snippet", key)
	}
	if _, exists := s.snippets[p.Name]; exists {
		return model.Snippet{}, apperror.Duplicate("snippet", p.Name)
	}

	approved := p.Approved()
	s.snippets[approved.Name] = approved
	delete(s.pending, key)

	if err := s.saveSnippets(); err != nil {
		return model.Snippet{}, err
	}
	if err := s.savePending(); err != nil {
		return model.Snippet{}, err
	}
	return *approved, nil
}

// RemovePending deletes a pending snippet without trace, persisting the
// collection. The loser of two concurrent removals gets a clean not-found.
func (s *Store) RemovePending(key string) (model.PendingSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return model.PendingSnippet{}, apperror.NotFound("pending snippet", key)
	}
	delete(s.pending, key)
	if err := s.savePending(); err != nil {
		return model.PendingSnippet{}, err
	}
	return *p, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// User returns a copy of the user's record, creating (and persisting) a
// default record on first interaction.
func (s *Store) User(id string, now time.Time) (model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		user = model.NewUserRecord(id, now)
		s.users[id] = user
		if err := s.saveUsers(); err != nil {
			return model.UserRecord{}, err
		}
	}
	return *user, nil
}

// UpdateUser applies fn to the user's record under the store lock and
// persists the collection. The record is created lazily if absent. When fn
// returns an error the mutation is abandoned and nothing is saved.
func (s *Store) UpdateUser(id string, now time.Time, fn func(*model.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		user = model.NewUserRecord(id, now)
		s.users[id] = user
	}
	if err := fn(user); err != nil {
		return err
	}
	return s.saveUsers()
}

// UserCount returns the number of known user records.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// ---------------------------------------------------------------------------
// Administrators
// ---------------------------------------------------------------------------

// IsAdmin reports whether the user id is in the administrator set.
func (s *Store) IsAdmin(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[id]
}

// GrantAdmin adds the user id to the administrator set and persists it.
// Returns false if the user was already an administrator. The set is
// append-only: there is no revoke.
func (s *Store) GrantAdmin(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admins[id] {
		return false, nil
	}
	s.admins[id] = true
	if err := s.saveAdmins(); err != nil {
		return false, err
	}
	return true, nil
}
