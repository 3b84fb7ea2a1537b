package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
)

// Collection files live under the store's data directory, one JSON document
// per collection, each a key→record mapping:
//
//	snippets.json  map[name]Snippet        (+ snippets.json.bak)
//	pending.json   map[name]PendingSnippet (+ pending.json.bak)
//	users.json     map[userID]UserRecord   (+ users.json.bak)
//	admins.json    map[userID]bool         (+ admins.json.bak)
//
// CRASH SAFETY:
// Every save first copies the current primary to its .bak sibling, then
// overwrites the primary. A crash mid-write can therefore corrupt at most the
// primary; the previous generation survives in the backup. Load mirrors this:
// an unparsable or empty primary falls back to the backup, and a recovered
// document is immediately re-saved to normalize the primary.

const backupSuffix = ".bak"

// saveDocument writes data to path using the backup-then-overwrite pattern.
func saveDocument[T any](path string, data map[string]T) error {
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	// Preserve the previous generation before touching the primary.
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+backupSuffix, prev, 0644); err != nil {
			return fmt.Errorf("writing backup for %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s for backup: %w", path, err)
	}

	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// loadDocument reads one collection document from path.
//
// Recovery ladder:
//  1. primary missing        → empty document, needs immediate save (self-heal)
//  2. primary parses         → use it
//  3. primary bad, .bak good → adopt backup, needs immediate save (normalize)
//  4. both bad               → empty document
//
// The returned resave flag tells the caller to persist right away so the next
// start finds a clean primary. Corruption never fails the load; the absorbed
// cause comes back in corrupt so the caller can record what was recovered
// from (or lost).
func loadDocument[T any](path string) (data map[string]T, resave bool, corrupt, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]T), true, nil, nil
	}
	if err != nil {
		return nil, false, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data, decodeErr := decodeDocument[T](raw)
	if decodeErr == nil {
		return data, false, nil, nil
	}
	corrupt = apperror.Corrupt(path, decodeErr)

	// Primary is empty or unparsable — try the previous generation.
	if bak, err := os.ReadFile(path + backupSuffix); err == nil {
		if data, decodeErr := decodeDocument[T](bak); decodeErr == nil {
			return data, true, corrupt, nil
		}
	}

	return make(map[string]T), false, corrupt, nil
}

func decodeDocument[T any](raw []byte) (map[string]T, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty document")
	}
	var data map[string]T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("document is null")
	}
	return data, nil
}
