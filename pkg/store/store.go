// Package store defines the persistence interfaces for pages and workspaces
// and the sentinel errors shared by every backend. Implementations live in
// the memory, postgres and surreal subpackages.
package store

import (
	"context"
	"errors"

	"github.com/slipstream-app/slipstream/pkg/models"
)

// ErrNotFound is returned by Update and Delete when the record does not
// exist. Get methods return (nil, nil) instead so callers can distinguish
// absence from failure without unwrapping.
var ErrNotFound = errors.New("record not found")

// PageStore persists pages.
type PageStore interface {
	// CreatePage stores a new page.
	CreatePage(ctx context.Context, page *models.Page) error
	// GetPage returns the page or (nil, nil) when absent.
	GetPage(ctx context.Context, id string) (*models.Page, error)
	// GetPages returns the pages for ids, in the order given. Absent ids are
	// skipped.
	GetPages(ctx context.Context, ids []string) ([]*models.Page, error)
	// UpdatePage replaces the stored page. Returns ErrNotFound when absent.
	UpdatePage(ctx context.Context, page *models.Page) error
	// DeletePage removes the page. Returns ErrNotFound when absent.
	DeletePage(ctx context.Context, id string) error
	// FindPagesByOwner returns every page owned by owner.
	FindPagesByOwner(ctx context.Context, owner string) ([]*models.Page, error)
	// FindPagesSharedWith returns pages carrying a direct grant for
	// principal, excluding pages principal owns.
	FindPagesSharedWith(ctx context.Context, principal string) ([]*models.Page, error)
	// FindPagesByWorkspaceIDs returns pages assigned to any of the given
	// workspaces.
	FindPagesByWorkspaceIDs(ctx context.Context, workspaceIDs []string) ([]*models.Page, error)
	// AllPages returns every stored page.
	AllPages(ctx context.Context) ([]*models.Page, error)
}

// WorkspaceStore persists workspaces.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	// GetWorkspace returns the workspace or (nil, nil) when absent.
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
	// FindWorkspacesByMember returns every workspace principal belongs to.
	FindWorkspacesByMember(ctx context.Context, principal string) ([]*models.Workspace, error)
	// RemoveRootPageEverywhere unregisters pageID from every workspace's
	// root-page list. Used by cascading page deletion.
	RemoveRootPageEverywhere(ctx context.Context, pageID string) error
}

// Store is the full persistence surface the application wires together.
type Store interface {
	PageStore
	WorkspaceStore
	Close() error
}
