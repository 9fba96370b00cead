package workspace

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream-app/slipstream/pkg/access"
	"github.com/slipstream-app/slipstream/pkg/notify"
	"github.com/slipstream-app/slipstream/pkg/pages"
	"github.com/slipstream-app/slipstream/pkg/store/memory"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(topic string, payload any) error { return nil }

func newService(t *testing.T) (*Service, *pages.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	resolver := access.NewResolver(st, zerolog.Nop())
	notifier := notify.NewRegistry(nopBroadcaster{}, zerolog.Nop())
	pageService := pages.NewService(st, resolver, notifier, nopBroadcaster{}, zerolog.Nop())
	return NewService(st, pageService, zerolog.Nop()), pageService, st
}

func TestCreateAndGetMemberChecked(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, alice, "Team")
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, ws.Members)

	_, err = svc.Get(ctx, bob, ws.ID)
	require.ErrorIs(t, err, pages.ErrAccessDenied)

	got, err := svc.Get(ctx, alice, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
}

func TestMemberManagementOwnerOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, alice, "Team")
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, bob, ws.ID, bob)
	require.ErrorIs(t, err, pages.ErrAccessDenied)

	updated, err := svc.AddMember(ctx, alice, ws.ID, bob)
	require.NoError(t, err)
	assert.True(t, updated.HasMember(bob))

	_, err = svc.RemoveMember(ctx, alice, ws.ID, alice)
	require.ErrorIs(t, err, ErrOwnerImmutable)

	updated, err = svc.RemoveMember(ctx, alice, ws.ID, bob)
	require.NoError(t, err)
	assert.False(t, updated.HasMember(bob))
}

func TestAddRootPageRejectsNested(t *testing.T) {
	svc, pageService, _ := newService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, alice, "Team")
	require.NoError(t, err)
	parent, err := pageService.CreateContainerPage(ctx, alice, "Root", "", "", "")
	require.NoError(t, err)
	nested, err := pageService.CreateContentPage(ctx, alice, "Nested", "", parent.ID, "")
	require.NoError(t, err)

	_, err = svc.AddRootPage(ctx, alice, ws.ID, nested.ID)
	require.ErrorIs(t, err, ErrPageNested)

	updated, err := svc.AddRootPage(ctx, alice, ws.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{parent.ID}, updated.RootPageIDs)
}

func TestDeleteCascadesPages(t *testing.T) {
	svc, pageService, st := newService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, alice, "Team")
	require.NoError(t, err)
	root, err := pageService.CreateContainerPage(ctx, alice, "Root", "", "", ws.ID)
	require.NoError(t, err)
	_, err = pageService.CreateContentPage(ctx, alice, "Child", "", root.ID, "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, bob, ws.ID), pages.ErrAccessDenied)
	require.NoError(t, svc.Delete(ctx, alice, ws.ID))

	all, err := st.AllPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	gone, err := st.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDashboardEndToEnd(t *testing.T) {
	svc, pageService, _ := newService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, alice, "Team")
	require.NoError(t, err)
	root, err := pageService.CreateContainerPage(ctx, alice, "Handbook", "", "", ws.ID)
	require.NoError(t, err)
	_, err = pageService.CreateContentPage(ctx, alice, "Onboarding", "", root.ID, "")
	require.NoError(t, err)
	shared, err := pageService.CreateContentPage(ctx, bob, "From Bob", "", "", "")
	require.NoError(t, err)
	_, err = pageService.Share(ctx, bob, shared.ID, alice, "view")
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx, alice)
	require.NoError(t, err)

	require.Len(t, dashboard.Workspaces, 1)
	require.Len(t, dashboard.Workspaces[0].Pages, 1)
	assert.Equal(t, root.ID, dashboard.Workspaces[0].Pages[0].Page.ID)
	require.Len(t, dashboard.SharedWithUser, 1)
	assert.Equal(t, shared.ID, dashboard.SharedWithUser[0].ID)
	assert.Empty(t, dashboard.Independent)
}
