package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

func TestPageRoundTrip(t *testing.T) {
	st := New()
	ctx := context.Background()

	page := models.NewContentPage("Notes", "body", "", alice)
	require.NoError(t, st.CreatePage(ctx, page))

	got, err := st.GetPage(ctx, page.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Notes", got.Title)

	// The store hands out copies.
	got.Title = "Mutated"
	again, err := st.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notes", again.Title)
}

func TestGetAbsentPageIsNilNil(t *testing.T) {
	st := New()
	got, err := st.GetPage(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateAndDeleteAbsentReturnNotFound(t *testing.T) {
	st := New()
	ctx := context.Background()

	err := st.UpdatePage(ctx, models.NewContentPage("X", "", "", alice))
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, st.DeletePage(ctx, "missing"), store.ErrNotFound)
}

func TestGetPagesPreservesOrderAndSkipsAbsent(t *testing.T) {
	st := New()
	ctx := context.Background()

	p1 := models.NewContentPage("One", "", "", alice)
	p2 := models.NewContentPage("Two", "", "", alice)
	require.NoError(t, st.CreatePage(ctx, p1))
	require.NoError(t, st.CreatePage(ctx, p2))

	got, err := st.GetPages(ctx, []string{p2.ID, "missing", p1.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, p2.ID, got[0].ID)
	assert.Equal(t, p1.ID, got[1].ID)
}

func TestFindPagesSharedWithExcludesOwned(t *testing.T) {
	st := New()
	ctx := context.Background()

	own := models.NewContentPage("Mine", "", "", alice)
	require.NoError(t, own.Share(alice, models.AccessEdit))
	require.NoError(t, st.CreatePage(ctx, own))

	theirs := models.NewContentPage("Theirs", "", "", bob)
	require.NoError(t, theirs.Share(alice, models.AccessView))
	require.NoError(t, st.CreatePage(ctx, theirs))

	shared, err := st.FindPagesSharedWith(ctx, alice)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, theirs.ID, shared[0].ID)
}

func TestRemoveRootPageEverywhere(t *testing.T) {
	st := New()
	ctx := context.Background()

	ws1 := models.NewWorkspace("One", alice)
	ws1.AddRootPage("p1")
	ws1.AddRootPage("p2")
	ws2 := models.NewWorkspace("Two", bob)
	ws2.AddRootPage("p1")
	require.NoError(t, st.CreateWorkspace(ctx, ws1))
	require.NoError(t, st.CreateWorkspace(ctx, ws2))

	require.NoError(t, st.RemoveRootPageEverywhere(ctx, "p1"))

	got1, err := st.GetWorkspace(ctx, ws1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, got1.RootPageIDs)
	got2, err := st.GetWorkspace(ctx, ws2.ID)
	require.NoError(t, err)
	assert.Empty(t, got2.RootPageIDs)
}

func TestFindWorkspacesByMember(t *testing.T) {
	st := New()
	ctx := context.Background()

	ws := models.NewWorkspace("Team", alice)
	ws.AddMember(bob)
	require.NoError(t, st.CreateWorkspace(ctx, ws))
	other := models.NewWorkspace("Other", bob)
	require.NoError(t, st.CreateWorkspace(ctx, other))

	got, err := st.FindWorkspacesByMember(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ws.ID, got[0].ID)
}
