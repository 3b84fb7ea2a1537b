// Package session maps short opaque handles to entity keys for the lifetime
// of one rendered list.
//
// WHY HANDLES AT ALL?
// Snippet names are free text — too long and too unsafe to embed in the
// controls of a rendered list (callback payloads, URLs). Each render computes
// a fixed-width handle per key and keeps a handle→key map scoped to the
// interactive session; a later action sends the handle back and the index
// resolves it. A reset (or a re-render of a different list) drops the old
// map, so stale handles fail with not-found instead of acting on the wrong
// entity.
package session

import (
	"encoding/hex"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/crypto/blake2b"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
)

// PageSize is the fixed number of items per rendered page.
const PageSize = 10

// handleLen is the width of a handle in hex characters (64 bits of hash).
const handleLen = 16

// Index holds the handle→key maps of all live sessions.
type Index struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string // session id → handle → key
}

// NewIndex creates an empty address index.
func NewIndex() *Index {
	return &Index{sessions: make(map[string]map[string]string)}
}

// NewSessionID mints an id for a caller that does not have a session yet.
func NewSessionID() string {
	return xid.New().String()
}

// Handle computes the opaque handle for a key: the first 16 hex characters
// of a BLAKE2b-256 digest of the key.
func Handle(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:handleLen]
}

// Build computes handles for every key and replaces the session's map with
// the result — the index is rebuilt per render, never accumulated. Returns
// handle keyed by entity key.
//
// Two keys hashing to the same handle would silently alias, so collisions
// are rejected outright; the caller re-renders with a different key set.
func (ix *Index) Build(sessionID string, keys []string) (map[string]string, error) {
	handles := make(map[string]string, len(keys))
	byHandle := make(map[string]string, len(keys))
	for _, key := range keys {
		h := Handle(key)
		if prev, clash := byHandle[h]; clash && prev != key {
			return nil, apperror.Duplicate("handle", h)
		}
		byHandle[h] = key
		handles[key] = h
	}

	ix.mu.Lock()
	ix.sessions[sessionID] = byHandle
	ix.mu.Unlock()
	return handles, nil
}

// Resolve returns the key a handle stands for within the given session, or
// not-found if the session has no such handle (e.g. after a reset).
func (ix *Index) Resolve(sessionID, handle string) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	key, ok := ix.sessions[sessionID][handle]
	if !ok {
		return "", apperror.NotFound("handle", handle)
	}
	return key, nil
}

// Reset drops a session's map entirely; its handles resolve to not-found
// afterwards.
func (ix *Index) Reset(sessionID string) {
	ix.mu.Lock()
	delete(ix.sessions, sessionID)
	ix.mu.Unlock()
}

// TotalPages returns ceil(itemCount / PageSize).
func TotalPages(itemCount int) int {
	return (itemCount + PageSize - 1) / PageSize
}

// Page slices one page out of items with wraparound semantics: a page index
// past the end wraps to page 0 and a negative index wraps to the last page
// (page 0 when there is nothing to show). Returns the page content and the
// effective page index.
func Page[T any](items []T, page int) ([]T, int) {
	total := TotalPages(len(items))
	if page >= total {
		page = 0
	} else if page < 0 {
		if total > 0 {
			page = total - 1
		} else {
			page = 0
		}
	}

	start := page * PageSize
	if start >= len(items) {
		return []T{}, page
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page
}
