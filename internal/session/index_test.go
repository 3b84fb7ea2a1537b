package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
)

func TestHandle_Shape(t *testing.T) {
	h := Handle("my favourite snippet")

	assert.Len(t, h, 16, "handles are fixed-width")
	for _, c := range h {
		assert.Contains(t, "0123456789abcdef", string(c), "handles are lowercase hex")
	}

	// Deterministic: same key, same handle, across calls and sessions.
	assert.Equal(t, h, Handle("my favourite snippet"))
	assert.NotEqual(t, h, Handle("a different snippet"))
}

func TestBuildAndResolve(t *testing.T) {
	ix := NewIndex()
	sid := NewSessionID()

	keys := []string{"greet", "Array Helpers", "grid layout"}
	handles, err := ix.Build(sid, keys)
	require.NoError(t, err)
	require.Len(t, handles, 3)

	for _, key := range keys {
		got, err := ix.Resolve(sid, handles[key])
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
}

func TestResolve_UnknownHandle(t *testing.T) {
	ix := NewIndex()
	sid := NewSessionID()

	_, err := ix.Build(sid, []string{"greet"})
	require.NoError(t, err)

	_, err = ix.Resolve(sid, "0123456789abcdef")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	// A handle from one session means nothing in another.
	_, err = ix.Resolve("other-session", Handle("greet"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestBuild_ReplacesPreviousRender(t *testing.T) {
	ix := NewIndex()
	sid := NewSessionID()

	_, err := ix.Build(sid, []string{"old"})
	require.NoError(t, err)
	_, err = ix.Build(sid, []string{"new"})
	require.NoError(t, err)

	// Handles from the previous render are gone, not accumulated.
	_, err = ix.Resolve(sid, Handle("old"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	key, err := ix.Resolve(sid, Handle("new"))
	require.NoError(t, err)
	assert.Equal(t, "new", key)
}

func TestReset(t *testing.T) {
	ix := NewIndex()
	sid := NewSessionID()

	_, err := ix.Build(sid, []string{"greet"})
	require.NoError(t, err)

	ix.Reset(sid)

	_, err = ix.Resolve(sid, Handle("greet"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "handles die with their session")
}

func TestPage_Wraparound(t *testing.T) {
	items := make([]int, 25) // 3 pages: 10 + 10 + 5
	for i := range items {
		items[i] = i
	}

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantFirst int
		wantLen   int
	}{
		{name: "first page", page: 0, wantPage: 0, wantFirst: 0, wantLen: 10},
		{name: "middle page", page: 1, wantPage: 1, wantFirst: 10, wantLen: 10},
		{name: "short last page", page: 2, wantPage: 2, wantFirst: 20, wantLen: 5},
		{name: "past the end wraps to 0", page: 3, wantPage: 0, wantFirst: 0, wantLen: 10},
		{name: "far past the end wraps to 0", page: 99, wantPage: 0, wantFirst: 0, wantLen: 10},
		{name: "negative wraps to last", page: -1, wantPage: 2, wantFirst: 20, wantLen: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page := Page(items, tt.page)
			assert.Equal(t, tt.wantPage, page)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantFirst, got[0])
		})
	}
}

func TestPage_Empty(t *testing.T) {
	got, page := Page([]string{}, 0)
	assert.Empty(t, got)
	assert.Equal(t, 0, page)

	// Negative index on an empty list still lands on page 0.
	got, page = Page([]string{}, -1)
	assert.Empty(t, got)
	assert.Equal(t, 0, page)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0))
	assert.Equal(t, 1, TotalPages(1))
	assert.Equal(t, 1, TotalPages(10))
	assert.Equal(t, 2, TotalPages(11))
	assert.Equal(t, 3, TotalPages(25))
}
