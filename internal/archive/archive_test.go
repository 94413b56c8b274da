package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinebridge/clinebridge/pkg/types"
)

func TestSaveAndLoadTranscript(t *testing.T) {
	a := New(t.TempDir())
	ctx := context.Background()

	s := &types.Session{
		ID:            "01ABCDEF",
		WorkspacePath: "/work/project",
		Status:        types.StatusStopped,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		Messages: []types.MessageRecord{
			{ID: "m1", Role: types.RoleUser, Content: "hello"},
			{ID: "m2", Role: types.RoleAgent, Content: "hi there"},
		},
	}
	require.NoError(t, a.SaveTranscript(ctx, s))

	got, err := a.LoadTranscript(ctx, "01ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.WorkspacePath, got.WorkspacePath)
	assert.Equal(t, types.StatusStopped, got.Status)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hi there", got.Messages[1].Content)
}

func TestLoadTranscript_NotFound(t *testing.T) {
	a := New(t.TempDir())

	_, err := a.LoadTranscript(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveTranscript_Overwrite(t *testing.T) {
	a := New(t.TempDir())
	ctx := context.Background()

	s := &types.Session{ID: "dup", Status: types.StatusStopped}
	require.NoError(t, a.SaveTranscript(ctx, s))

	s.Messages = append(s.Messages, types.MessageRecord{ID: "m1", Role: types.RoleUser, Content: "late"})
	require.NoError(t, a.SaveTranscript(ctx, s))

	got, err := a.LoadTranscript(ctx, "dup")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
}

func TestListTranscripts(t *testing.T) {
	a := New(t.TempDir())
	ctx := context.Background()

	ids, err := a.ListTranscripts(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, a.SaveTranscript(ctx, &types.Session{ID: "a"}))
	require.NoError(t, a.SaveTranscript(ctx, &types.Session{ID: "b"}))

	ids, err = a.ListTranscripts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
