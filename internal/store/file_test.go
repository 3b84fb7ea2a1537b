package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
)

// Reopen-style tests: the crash-safety contract is about what a NEW store
// sees after the previous process wrote (or mangled) the files.

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.PutSnippet(testSnippet("greet", "1001")); err != nil {
		t.Fatalf("PutSnippet() error = %v", err)
	}
	if _, err := s.UseSnippet("greet"); err != nil {
		t.Fatalf("UseSnippet() error = %v", err)
	}
	if err := s.PutPending(testPending("draft", "1002")); err != nil {
		t.Fatalf("PutPending() error = %v", err)
	}
	err = s.UpdateUser("1001", now, func(u *model.UserRecord) error {
		u.AddFavorite("greet")
		u.Achievements = append(u.Achievements, "first_snippet")
		u.Level = 1
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if _, err := s.GrantAdmin("9001"); err != nil {
		t.Fatalf("GrantAdmin() error = %v", err)
	}
	if err := s.SaveAll(); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	// A fresh store over the same directory must reproduce every collection.
	reloaded, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}

	sn, err := reloaded.Snippet("greet")
	if err != nil {
		t.Fatalf("Snippet() after reload error = %v", err)
	}
	if sn.Uses != 1 || sn.Author != "1001" || sn.Language != model.LangJavaScript {
		t.Errorf("reloaded snippet = %+v", sn)
	}

	p, err := reloaded.Pending("draft")
	if err != nil {
		t.Fatalf("Pending() after reload error = %v", err)
	}
	if p.SubmitterID != "1002" {
		t.Errorf("reloaded pending SubmitterID = %q, want 1002", p.SubmitterID)
	}

	u, err := reloaded.User("1001", now)
	if err != nil {
		t.Fatalf("User() after reload error = %v", err)
	}
	if !u.IsFavorite("greet") || !u.HasAchievement("first_snippet") || u.Level != 1 {
		t.Errorf("reloaded user = %+v", u)
	}

	if !reloaded.IsAdmin("9001") {
		t.Error("admin grant lost across reload")
	}
}

func TestLoad_MissingPrimarySelfHeals(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(dir, discardLogger()); err != nil {
		t.Fatalf("Open() on empty dir error = %v", err)
	}

	// Opening an empty directory must have written all four primaries so the
	// next start does not hit the missing-file path again.
	for _, file := range []string{snippetsFile, pendingFile, usersFile, adminsFile} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("primary %s not written on self-heal: %v", file, err)
		}
	}
}

func TestLoad_CorruptPrimaryRecoversFromBackup(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutSnippet(testSnippet("first", "1001")); err != nil {
		t.Fatalf("PutSnippet() error = %v", err)
	}
	// Second save pushes the generation containing "first" into the backup.
	if err := s.PutSnippet(testSnippet("second", "1001")); err != nil {
		t.Fatalf("PutSnippet() error = %v", err)
	}

	// Simulate a crash mid-write: the primary is garbage, the backup intact.
	primary := filepath.Join(dir, snippetsFile)
	if err := os.WriteFile(primary, []byte("{ not json"), 0644); err != nil {
		t.Fatalf("corrupting primary: %v", err)
	}

	recovered, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() after corruption error = %v", err)
	}

	// The backup held exactly the pre-"second" generation.
	if _, err := recovered.Snippet("first"); err != nil {
		t.Errorf("backup content lost: %v", err)
	}
	if _, err := recovered.Snippet("second"); err == nil {
		t.Error("recovered snippet that only existed in the corrupt primary")
	}

	// Recovery re-normalizes the primary: parse it directly.
	raw, err := os.ReadFile(primary)
	if err != nil {
		t.Fatalf("reading normalized primary: %v", err)
	}
	data, decodeErr := decodeDocument[*model.Snippet](raw)
	if decodeErr != nil {
		t.Fatalf("primary not re-normalized after backup recovery: %v", decodeErr)
	}
	if _, exists := data["first"]; !exists {
		t.Error("normalized primary missing recovered content")
	}
}

func TestLoadDocument_ReportsAbsorbedCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, snippetsFile)

	good := map[string]*model.Snippet{"kept": testSnippet("kept", "1001")}
	// Save twice so the second save pushes a good generation into the backup.
	for i := 0; i < 2; i++ {
		if err := saveDocument(path, good); err != nil {
			t.Fatalf("saveDocument() error = %v", err)
		}
	}
	if err := os.WriteFile(path, []byte("{ not json"), 0644); err != nil {
		t.Fatalf("corrupting primary: %v", err)
	}

	data, resave, corrupt, err := loadDocument[*model.Snippet](path)
	if err != nil {
		t.Fatalf("loadDocument() error = %v", err)
	}
	if !resave {
		t.Error("backup recovery must request a re-save")
	}
	if _, exists := data["kept"]; !exists {
		t.Error("backup content not adopted")
	}
	// The recovery is silent to callers of the store, but the absorbed cause
	// is still reported as a corruption error for the log.
	if !errors.Is(corrupt, apperror.ErrCorrupt) {
		t.Errorf("corrupt = %v, want ErrCorrupt", corrupt)
	}

	// Both files bad: still a corruption report, with an empty document.
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("corrupting primary: %v", err)
	}
	if err := os.WriteFile(path+backupSuffix, []byte("x"), 0644); err != nil {
		t.Fatalf("corrupting backup: %v", err)
	}
	data, _, corrupt, err = loadDocument[*model.Snippet](path)
	if err != nil {
		t.Fatalf("loadDocument() error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("data = %d entries, want empty", len(data))
	}
	if !errors.Is(corrupt, apperror.ErrCorrupt) {
		t.Errorf("corrupt = %v, want ErrCorrupt", corrupt)
	}
}

func TestLoad_EmptyPrimaryFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutSnippet(testSnippet("kept", "1001")); err != nil {
		t.Fatalf("PutSnippet() error = %v", err)
	}
	if err := s.PutSnippet(testSnippet("later", "1001")); err != nil {
		t.Fatalf("PutSnippet() error = %v", err)
	}

	// Truncate the primary to zero bytes — treated the same as unparsable.
	if err := os.WriteFile(filepath.Join(dir, snippetsFile), nil, 0644); err != nil {
		t.Fatalf("truncating primary: %v", err)
	}

	recovered, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() after truncation error = %v", err)
	}
	if _, err := recovered.Snippet("kept"); err != nil {
		t.Errorf("backup recovery failed on empty primary: %v", err)
	}
}

func TestLoad_BothCorruptInitializesEmpty(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, snippetsFile), []byte("garbage"), 0644); err != nil {
		t.Fatalf("writing corrupt primary: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, snippetsFile+backupSuffix), []byte("also garbage"), 0644); err != nil {
		t.Fatalf("writing corrupt backup: %v", err)
	}

	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() with both files corrupt error = %v", err)
	}
	if got := s.Snippets(); len(got) != 0 {
		t.Errorf("Snippets() = %d entries, want empty collection", len(got))
	}
}

func TestLoad_CorruptionIsolatedPerCollection(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.GrantAdmin("9001"); err != nil {
		t.Fatalf("GrantAdmin() error = %v", err)
	}

	// Wreck the users document (and its backup); admins must still load.
	if err := os.WriteFile(filepath.Join(dir, usersFile), []byte("x"), 0644); err != nil {
		t.Fatalf("corrupting users: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, usersFile+backupSuffix), []byte("x"), 0644); err != nil {
		t.Fatalf("corrupting users backup: %v", err)
	}

	recovered, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !recovered.IsAdmin("9001") {
		t.Error("corruption in users blocked loading admins")
	}
	if recovered.UserCount() != 0 {
		t.Errorf("UserCount() = %d, want 0 after users wiped", recovered.UserCount())
	}
}
