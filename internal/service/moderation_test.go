package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
)

func TestApprove_RequiresAdmin(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	_, err := lib.Submit("1001", "pending", "code", model.LangPHP, nil)
	require.NoError(t, err)

	_, err = lib.Approve("pending", "1002")
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "err = %v", err)

	// The pending entry is untouched by the failed attempt.
	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)
	_, err = lib.Approve("pending", "9001")
	assert.NoError(t, err)
}

func TestApprove_MovesPendingToApproved(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.Submit("1001", "greet", "code", model.LangPHP, []string{"Bitrix"})
	require.NoError(t, err)

	approved := approveAs(t, lib, "9001", "greet")

	assert.Equal(t, 0, approved.Uses, "freshly approved snippets start unused")
	assert.Equal(t, "1001", approved.Author)

	// Pending no longer holds the key; approved does.
	_, err = s.Pending("greet")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	got, err := s.Snippet("greet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bitrix"}, got.Tags)

	// The submitter's derived stats were recomputed: first snippet granted.
	submitter, err := s.User("1001", *clock)
	require.NoError(t, err)
	assert.True(t, submitter.HasAchievement("first_snippet"))
	assert.Equal(t, 1, submitter.TotalSnippets)

	// The admin's approval counter moved.
	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.ApprovedCount)
	assert.Equal(t, 1, admin.HourModerations)
}

func TestApprove_UnknownKey(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.GrantAdmin("9001")
	require.NoError(t, err)

	_, err = lib.Approve("never-submitted", "9001")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestApprove_DuplicateNameKeepsPending(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.Submit("1001", "clash", "code", model.LangPHP, nil)
	require.NoError(t, err)

	// The name gets approved through another path before moderation runs.
	err = s.PutSnippet(&model.Snippet{
		Name: "clash", Code: "earlier", Language: model.LangCSS,
		Author: "1002", Tags: []string{}, CreatedAt: *clock,
	})
	require.NoError(t, err)

	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)
	_, err = lib.Approve("clash", "9001")
	assert.True(t, errors.Is(err, apperror.ErrDuplicate), "err = %v", err)

	// Approval failed without removing the pending entry, and the admin's
	// counter did not move.
	_, err = s.Pending("clash")
	assert.NoError(t, err, "pending entry must survive a failed approval")
	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 0, admin.ApprovedCount)
}

func TestReject_RemovesWithoutTrace(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.Submit("1001", "bad idea", "code", model.LangPHP, nil)
	require.NoError(t, err)
	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)

	require.NoError(t, lib.Reject("bad idea", "9001", "off topic"))

	_, err = s.Pending("bad idea")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	_, err = s.Snippet("bad idea")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "reject never approves anything")

	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.RejectedCount)
	assert.Equal(t, 0, admin.DetailedRejectionCount, "short reason is not detailed")
}

func TestReject_RequiresReason(t *testing.T) {
	lib, s, _ := newTestLibrary(t)

	_, err := lib.Submit("1001", "pending", "code", model.LangPHP, nil)
	require.NoError(t, err)
	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)

	err = lib.Reject("pending", "9001", "")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	// Nothing was removed.
	_, err = s.Pending("pending")
	assert.NoError(t, err)
}

func TestReject_DetailedReasonCounter(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.GrantAdmin("9001")
	require.NoError(t, err)

	_, err = lib.Submit("1001", "first", "code", model.LangPHP, nil)
	require.NoError(t, err)
	_, err = lib.Submit("1001", "second", "code", model.LangPHP, nil)
	require.NoError(t, err)

	// Exactly at the threshold: not detailed. One over: detailed.
	require.NoError(t, lib.Reject("first", "9001", strings.Repeat("r", DetailedReasonLength)))
	require.NoError(t, lib.Reject("second", "9001", strings.Repeat("r", DetailedReasonLength+1)))

	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 2, admin.RejectedCount)
	assert.Equal(t, 1, admin.DetailedRejectionCount)
}

func TestReject_SecondRejectNotFound(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	_, err := lib.Submit("1001", "contested", "code", model.LangPHP, nil)
	require.NoError(t, err)
	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)
	_, err = lib.GrantAdmin("9002")
	require.NoError(t, err)

	require.NoError(t, lib.Reject("contested", "9001", "first racer wins"))

	// The second moderation action against the already-removed key resolves
	// to not-found — no duplicate side effects on any counter.
	err = lib.Reject("contested", "9002", "second racer loses")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "err = %v", err)
}

func TestRollingHourModerationRate(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.GrantAdmin("9001")
	require.NoError(t, err)

	submit := func(submitter, name string) {
		t.Helper()
		_, err := lib.Submit(submitter, name, "code", model.LangPHP, nil)
		require.NoError(t, err)
	}

	// Three moderations 10 minutes apart stay inside the window.
	for i, name := range []string{"one", "two", "three"} {
		submit("1001", name)
		require.NoError(t, lib.Reject(name, "9001", "no"))
		if i < 2 {
			*clock = clock.Add(10 * time.Minute)
		}
	}
	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 3, admin.HourModerations)
	assert.Equal(t, *clock, admin.LastModerationAt, "timestamp follows the latest moderation")

	// A gap over an hour resets the counter to 1.
	*clock = clock.Add(2 * time.Hour)
	submit("1001", "four")
	require.NoError(t, lib.Reject("four", "9001", "no"))

	admin, err = s.User("9001", *clock)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.HourModerations)

	// The gap is measured from the PREVIOUS moderation, so a steady stream
	// 50 minutes apart keeps counting indefinitely.
	for i, name := range []string{"five", "six", "seven"} {
		*clock = clock.Add(50 * time.Minute)
		submit("1002", name)
		require.NoError(t, lib.Reject(name, "9001", "no"))

		admin, err = s.User("9001", *clock)
		require.NoError(t, err)
		assert.Equal(t, 2+i, admin.HourModerations)
	}
}

func TestRapidModeratorAchievement(t *testing.T) {
	lib, s, clock := newTestLibrary(t)

	_, err := lib.GrantAdmin("9001")
	require.NoError(t, err)

	// Ten rejections in quick succession. The daily quota is per submitter,
	// so submissions come from two users.
	for i := 0; i < 10; i++ {
		submitter := "1001"
		if i >= 5 {
			submitter = "1002"
		}
		name := "burst " + strings.Repeat("x", i+1)
		_, err := lib.Submit(submitter, name, "code", model.LangPHP, nil)
		require.NoError(t, err)
		require.NoError(t, lib.Reject(name, "9001", "burst cleanup"))
		*clock = clock.Add(time.Minute)
	}

	admin, err := s.User("9001", *clock)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, admin.HourModerations, 10)
	assert.True(t, admin.HasAchievement("rapid_moderator"))
}

func TestPendingList_AdminOnly(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	_, err := lib.Submit("1001", "queued", "code", model.LangPHP, nil)
	require.NoError(t, err)

	_, err = lib.PendingList("1001")
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = lib.GrantAdmin("9001")
	require.NoError(t, err)
	queue, err := lib.PendingList("9001")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "queued", queue[0].Name)
}
