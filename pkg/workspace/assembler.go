package workspace

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/models"
)

// Dashboard is a user's grouped view of their pages.
type Dashboard struct {
	// Workspaces holds one group per workspace membership, including
	// workspaces with no pages yet.
	Workspaces []*Group `json:"workspaces"`
	// Independent holds trees of owned pages that resolve to no workspace.
	Independent []*models.TreeNode `json:"independent,omitempty"`
	// SharedWithUser lists pages shared with the user, sorted by title.
	// They stay a flat list and are never merged into the trees above.
	SharedWithUser []*models.Page `json:"sharedWithUser,omitempty"`
}

// Group is a workspace and the page trees rooted in it.
type Group struct {
	Workspace *models.Workspace  `json:"workspace"`
	Pages     []*models.TreeNode `json:"pages,omitempty"`
}

// AssembleDashboard is a pure function over already-fetched data: owned
// pages are grouped by the workspace their root ancestor belongs to and
// arranged into forests, pages with no resolvable workspace form the
// independent group, and shared pages are listed flat.
//
// The ancestor walk only follows parents within the owned set and carries a
// visited set; a cycle is logged and the page treated as independent.
func AssembleDashboard(principal string, owned, shared []*models.Page, workspaces []*models.Workspace, log zerolog.Logger) *Dashboard {
	rootToWorkspace := make(map[string]string)
	for _, workspace := range workspaces {
		for _, rootID := range workspace.RootPageIDs {
			rootToWorkspace[rootID] = workspace.ID
		}
	}

	byID := make(map[string]*models.Page, len(owned))
	for _, page := range owned {
		byID[page.ID] = page
	}

	grouped := make(map[string][]*models.Page)
	var independent []*models.Page
	for _, page := range owned {
		workspaceID := workspaceFor(page, byID, rootToWorkspace, log)
		if workspaceID == "" {
			if page.Owner == principal {
				independent = append(independent, page)
			}
			continue
		}
		grouped[workspaceID] = append(grouped[workspaceID], page)
	}

	sorted := make([]*models.Workspace, len(workspaces))
	copy(sorted, workspaces)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	dashboard := &Dashboard{}
	for _, workspace := range sorted {
		dashboard.Workspaces = append(dashboard.Workspaces, &Group{
			Workspace: workspace,
			Pages:     models.BuildForest(grouped[workspace.ID]),
		})
	}
	dashboard.Independent = models.BuildForest(independent)

	dashboard.SharedWithUser = make([]*models.Page, len(shared))
	copy(dashboard.SharedWithUser, shared)
	sort.Slice(dashboard.SharedWithUser, func(i, j int) bool {
		return strings.ToLower(dashboard.SharedWithUser[i].Title) < strings.ToLower(dashboard.SharedWithUser[j].Title)
	})

	return dashboard
}

// workspaceFor walks up the parent chain until it reaches a registered root
// page or runs out of known ancestors.
func workspaceFor(page *models.Page, byID map[string]*models.Page, rootToWorkspace map[string]string, log zerolog.Logger) string {
	visited := make(map[string]bool)
	current := page
	for current != nil {
		if visited[current.ID] {
			log.Warn().
				Str("page_id", page.ID).
				Str("cycle_at", current.ID).
				Msg("cycle in parent chain, page treated as independent")
			return ""
		}
		visited[current.ID] = true
		if workspaceID, ok := rootToWorkspace[current.ID]; ok {
			return workspaceID
		}
		if current.WorkspaceID != "" {
			return current.WorkspaceID
		}
		if current.ParentID == "" {
			return ""
		}
		current = byID[current.ParentID]
	}
	return ""
}
