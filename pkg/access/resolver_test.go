package access

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store/memory"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

func storePage(t *testing.T, st *memory.Store, page *models.Page) *models.Page {
	t.Helper()
	require.NoError(t, st.CreatePage(context.Background(), page))
	return page
}

// buildTree creates root -> a -> leaf, all owned by alice.
func buildTree(t *testing.T, st *memory.Store) (root, a, leaf *models.Page) {
	t.Helper()
	root = models.NewContainerPage("Root", "", "", alice)
	a = models.NewContainerPage("A", "", root.ID, alice)
	leaf = models.NewContentPage("Leaf", "text", a.ID, alice)
	root.ChildIDs = []string{a.ID}
	a.ChildIDs = []string{leaf.ID}
	storePage(t, st, root)
	storePage(t, st, a)
	storePage(t, st, leaf)
	return root, a, leaf
}

func TestOwnerHasEdit(t *testing.T) {
	st := memory.New()
	_, _, leaf := buildTree(t, st)
	r := NewResolver(st, zerolog.Nop())

	assert.True(t, r.HasAccess(context.Background(), leaf, alice, models.AccessEdit))
}

func TestGrantInheritsToDescendants(t *testing.T) {
	st := memory.New()
	root, _, leaf := buildTree(t, st)
	require.NoError(t, root.Share(bob, models.AccessEdit))
	require.NoError(t, st.UpdatePage(context.Background(), root))
	r := NewResolver(st, zerolog.Nop())

	assert.True(t, r.HasAccess(context.Background(), leaf, bob, models.AccessEdit))
	assert.True(t, r.HasAccess(context.Background(), leaf, bob, models.AccessView))
}

func TestViewGrantDoesNotGrantEdit(t *testing.T) {
	st := memory.New()
	root, a, _ := buildTree(t, st)
	require.NoError(t, root.Share(carol, models.AccessView))
	require.NoError(t, st.UpdatePage(context.Background(), root))
	r := NewResolver(st, zerolog.Nop())

	assert.True(t, r.HasAccess(context.Background(), a, carol, models.AccessView))
	assert.False(t, r.HasAccess(context.Background(), a, carol, models.AccessEdit))
}

func TestUnrelatedPrincipalDenied(t *testing.T) {
	st := memory.New()
	_, _, leaf := buildTree(t, st)
	r := NewResolver(st, zerolog.Nop())

	assert.False(t, r.HasAccess(context.Background(), leaf, "mallory@example.com", models.AccessView))
}

func TestPublishedGrantsAnonymousViewOnly(t *testing.T) {
	st := memory.New()
	page := storePage(t, st, models.NewContentPage("Public", "", "", alice))
	page.Published = true
	require.NoError(t, st.UpdatePage(context.Background(), page))
	r := NewResolver(st, zerolog.Nop())

	assert.True(t, r.HasAccess(context.Background(), page, "", models.AccessView))
	assert.False(t, r.HasAccess(context.Background(), page, "", models.AccessEdit))
}

func TestAnonymousIgnoresGrantsAndOwnership(t *testing.T) {
	st := memory.New()
	page := storePage(t, st, models.NewContentPage("Private", "", "", alice))
	r := NewResolver(st, zerolog.Nop())

	assert.False(t, r.HasAccess(context.Background(), page, "", models.AccessView))
}

func TestParentCycleDenies(t *testing.T) {
	st := memory.New()
	x := models.NewContainerPage("X", "", "", alice)
	y := models.NewContainerPage("Y", "", x.ID, alice)
	x.ParentID = y.ID
	storePage(t, st, x)
	storePage(t, st, y)
	r := NewResolver(st, zerolog.Nop())

	// bob matches no rule on either page; the walk must terminate and deny.
	assert.False(t, r.HasAccess(context.Background(), y, bob, models.AccessView))
}

type failingStore struct {
	*memory.Store
	failID string
}

func (f *failingStore) GetPage(ctx context.Context, id string) (*models.Page, error) {
	if id == f.failID {
		return nil, errors.New("store unavailable")
	}
	return f.Store.GetPage(ctx, id)
}

func TestParentFetchFailureDenies(t *testing.T) {
	st := memory.New()
	root, _, leaf := buildTree(t, st)
	require.NoError(t, root.Share(bob, models.AccessEdit))
	require.NoError(t, st.UpdatePage(context.Background(), root))

	r := NewResolver(&failingStore{Store: st, failID: root.ID}, zerolog.Nop())

	// bob's grant sits on root, but root cannot be loaded.
	assert.False(t, r.HasAccess(context.Background(), leaf, bob, models.AccessView))
}
