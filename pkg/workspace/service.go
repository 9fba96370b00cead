// Package workspace manages workspaces and assembles the per-user dashboard
// grouping accessible pages into their workspace trees.
package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/pages"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// ErrOwnerImmutable is returned when removing the workspace owner from its
// member list.
var ErrOwnerImmutable = errors.New("workspace owner cannot be removed")

// ErrPageNested is returned when registering a nested page as a workspace
// root. Only parentless pages can head a workspace tree.
var ErrPageNested = errors.New("nested page cannot be a workspace root")

// Service coordinates workspace persistence and the page service for
// cascading deletes.
type Service struct {
	store store.Store
	pages *pages.Service
	log   zerolog.Logger
}

// NewService wires a workspace service.
func NewService(st store.Store, pageService *pages.Service, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		pages: pageService,
		log:   log.With().Str("component", "workspace").Logger(),
	}
}

func notFound(id string) error {
	return fmt.Errorf("workspace %s: %w", id, store.ErrNotFound)
}

func (s *Service) getExisting(ctx context.Context, id string) (*models.Workspace, error) {
	workspace, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, notFound(id)
	}
	return workspace, nil
}

// Create makes a workspace owned by principal, with principal as the sole
// member.
func (s *Service) Create(ctx context.Context, principal, name string) (*models.Workspace, error) {
	if principal == "" {
		return nil, pages.ErrAccessDenied
	}
	workspace := models.NewWorkspace(name, principal)
	if err := s.store.CreateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	s.log.Info().Str("workspace_id", workspace.ID).Str("owner", principal).Msg("workspace created")
	return workspace, nil
}

// Get returns the workspace if principal is a member.
func (s *Service) Get(ctx context.Context, principal, id string) (*models.Workspace, error) {
	workspace, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workspace.HasMember(principal) {
		return nil, pages.ErrAccessDenied
	}
	return workspace, nil
}

// List returns every workspace principal belongs to.
func (s *Service) List(ctx context.Context, principal string) ([]*models.Workspace, error) {
	if principal == "" {
		return nil, pages.ErrAccessDenied
	}
	return s.store.FindWorkspacesByMember(ctx, principal)
}

// Rename changes the workspace name. Owner only.
func (s *Service) Rename(ctx context.Context, principal, id, name string) (*models.Workspace, error) {
	workspace, err := s.requireOwner(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	workspace.Name = name
	if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

// AddMember adds member to the workspace. Owner only; re-adding is a no-op.
func (s *Service) AddMember(ctx context.Context, principal, id, member string) (*models.Workspace, error) {
	workspace, err := s.requireOwner(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	workspace.AddMember(member)
	if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

// RemoveMember removes member from the workspace. Owner only; the owner
// itself cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, principal, id, member string) (*models.Workspace, error) {
	workspace, err := s.requireOwner(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if member == workspace.Owner {
		return nil, ErrOwnerImmutable
	}
	workspace.RemoveMember(member)
	if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

// AddRootPage registers an existing parentless page as a workspace root.
// The caller must be a member and hold edit rights on the page.
func (s *Service) AddRootPage(ctx context.Context, principal, id, pageID string) (*models.Workspace, error) {
	workspace, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	page, err := s.pages.GetForEditing(ctx, principal, pageID)
	if err != nil {
		return nil, err
	}
	if page.ParentID != "" {
		return nil, ErrPageNested
	}
	workspace.AddRootPage(pageID)
	if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	if page.WorkspaceID != id {
		page.WorkspaceID = id
		if err := s.store.UpdatePage(ctx, page); err != nil {
			return nil, err
		}
	}
	return workspace, nil
}

// RemoveRootPage unregisters a root page. The page itself is untouched and
// becomes independent.
func (s *Service) RemoveRootPage(ctx context.Context, principal, id, pageID string) (*models.Workspace, error) {
	workspace, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !workspace.RemoveRootPage(pageID) {
		return workspace, nil
	}
	if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page != nil && page.WorkspaceID == id {
		page.WorkspaceID = ""
		if err := s.store.UpdatePage(ctx, page); err != nil {
			return nil, err
		}
	}
	return workspace, nil
}

// Delete removes the workspace and every page tree rooted in it. Owner only.
func (s *Service) Delete(ctx context.Context, principal, id string) error {
	workspace, err := s.requireOwner(ctx, principal, id)
	if err != nil {
		return err
	}
	for _, pageID := range workspace.RootPageIDs {
		if err := s.pages.Delete(ctx, principal, pageID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if err := s.store.DeleteWorkspace(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("workspace_id", id).Str("principal", principal).Msg("workspace deleted")
	return nil
}

func (s *Service) requireOwner(ctx context.Context, principal, id string) (*models.Workspace, error) {
	workspace, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal == "" || workspace.Owner != principal {
		return nil, pages.ErrAccessDenied
	}
	return workspace, nil
}

// Dashboard assembles the caller's dashboard from their owned pages, shared
// pages and workspace memberships.
func (s *Service) Dashboard(ctx context.Context, principal string) (*Dashboard, error) {
	if principal == "" {
		return nil, pages.ErrAccessDenied
	}
	owned, err := s.store.FindPagesByOwner(ctx, principal)
	if err != nil {
		return nil, err
	}
	shared, err := s.store.FindPagesSharedWith(ctx, principal)
	if err != nil {
		return nil, err
	}
	workspaces, err := s.store.FindWorkspacesByMember(ctx, principal)
	if err != nil {
		return nil, err
	}
	return AssembleDashboard(principal, owned, shared, workspaces, s.log), nil
}
