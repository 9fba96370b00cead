package workspace

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream-app/slipstream/pkg/models"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

func TestAssembleDashboardGroupsByWorkspace(t *testing.T) {
	ws := models.NewWorkspace("Team", alice)
	root := models.NewContainerPage("Handbook", "", "", alice)
	root.WorkspaceID = ws.ID
	ws.AddRootPage(root.ID)
	child := models.NewContentPage("Onboarding", "", root.ID, alice)
	root.ChildIDs = []string{child.ID}
	loose := models.NewContentPage("Scratch", "", "", alice)

	dashboard := AssembleDashboard(alice,
		[]*models.Page{root, child, loose},
		nil,
		[]*models.Workspace{ws},
		zerolog.Nop())

	require.Len(t, dashboard.Workspaces, 1)
	group := dashboard.Workspaces[0]
	assert.Equal(t, ws.ID, group.Workspace.ID)
	require.Len(t, group.Pages, 1)
	assert.Equal(t, root.ID, group.Pages[0].Page.ID)
	require.Len(t, group.Pages[0].Children, 1)
	assert.Equal(t, child.ID, group.Pages[0].Children[0].Page.ID)

	// The loose page resolves to no workspace and lands in independent.
	require.Len(t, dashboard.Independent, 1)
	assert.Equal(t, loose.ID, dashboard.Independent[0].Page.ID)
}

func TestAssembleDashboardNestedPageFollowsAncestors(t *testing.T) {
	ws := models.NewWorkspace("Team", alice)
	root := models.NewContainerPage("Handbook", "", "", alice)
	ws.AddRootPage(root.ID)
	mid := models.NewContainerPage("Policies", "", root.ID, alice)
	deep := models.NewContentPage("Leave", "", mid.ID, alice)

	dashboard := AssembleDashboard(alice,
		[]*models.Page{root, mid, deep},
		nil,
		[]*models.Workspace{ws},
		zerolog.Nop())

	require.Len(t, dashboard.Workspaces, 1)
	require.Len(t, dashboard.Workspaces[0].Pages, 1)
	assert.Empty(t, dashboard.Independent)
}

func TestAssembleDashboardIndependentOnlyIfOwned(t *testing.T) {
	// A page reachable to alice but owned by bob must not show up in
	// alice's independent group.
	borrowed := models.NewContentPage("Borrowed", "", "", bob)

	dashboard := AssembleDashboard(alice,
		[]*models.Page{borrowed},
		nil,
		nil,
		zerolog.Nop())

	assert.Empty(t, dashboard.Independent)
	assert.Empty(t, dashboard.Workspaces)
}

func TestAssembleDashboardSharedStaysFlatAndSorted(t *testing.T) {
	root := models.NewContainerPage("Root", "", "", alice)
	sharedB := models.NewContentPage("beta", "", root.ID, bob)
	sharedA := models.NewContentPage("Alpha", "", "", bob)

	dashboard := AssembleDashboard(alice,
		[]*models.Page{root},
		[]*models.Page{sharedB, sharedA},
		nil,
		zerolog.Nop())

	require.Len(t, dashboard.SharedWithUser, 2)
	assert.Equal(t, "Alpha", dashboard.SharedWithUser[0].Title)
	assert.Equal(t, "beta", dashboard.SharedWithUser[1].Title)

	// sharedB's parent is in alice's tree, but shared pages are never
	// merged into it.
	require.Len(t, dashboard.Independent, 1)
	assert.Empty(t, dashboard.Independent[0].Children)
}

func TestAssembleDashboardToleratesParentCycle(t *testing.T) {
	x := models.NewContainerPage("X", "", "", alice)
	y := models.NewContainerPage("Y", "", x.ID, alice)
	x.ParentID = y.ID
	ws := models.NewWorkspace("Team", alice)

	dashboard := AssembleDashboard(alice,
		[]*models.Page{x, y},
		nil,
		[]*models.Workspace{ws},
		zerolog.Nop())

	// The cycle resolves to no workspace; assembly must still terminate.
	require.Len(t, dashboard.Workspaces, 1)
	assert.Empty(t, dashboard.Workspaces[0].Pages)
}

func TestAssembleDashboardIncludesEmptyWorkspaces(t *testing.T) {
	ws1 := models.NewWorkspace("zeta", alice)
	ws2 := models.NewWorkspace("Alpha", alice)

	dashboard := AssembleDashboard(alice, nil, nil, []*models.Workspace{ws1, ws2}, zerolog.Nop())

	require.Len(t, dashboard.Workspaces, 2)
	assert.Equal(t, "Alpha", dashboard.Workspaces[0].Workspace.Name)
	assert.Equal(t, "zeta", dashboard.Workspaces[1].Workspace.Name)
}
