// Package memory provides an in-process Store used for development and
// tests. All values are deep-copied on the way in and out so callers never
// share state with the store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// Store keeps pages and workspaces in maps guarded by a single RWMutex.
type Store struct {
	mu         sync.RWMutex
	pages      map[string]*models.Page
	workspaces map[string]*models.Workspace
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		pages:      make(map[string]*models.Page),
		workspaces: make(map[string]*models.Workspace),
	}
}

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page.ID]; ok {
		return fmt.Errorf("create page %s: already exists", page.ID)
	}
	s.pages[page.ID] = page.Clone()
	return nil
}

func (s *Store) GetPage(ctx context.Context, id string) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, nil
	}
	return page.Clone(), nil
}

func (s *Store) GetPages(ctx context.Context, ids []string) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]*models.Page, 0, len(ids))
	for _, id := range ids {
		if page, ok := s.pages[id]; ok {
			pages = append(pages, page.Clone())
		}
	}
	return pages, nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page.ID]; !ok {
		return fmt.Errorf("update page %s: %w", page.ID, store.ErrNotFound)
	}
	s.pages[page.ID] = page.Clone()
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return fmt.Errorf("delete page %s: %w", id, store.ErrNotFound)
	}
	delete(s.pages, id)
	return nil
}

func (s *Store) FindPagesByOwner(ctx context.Context, owner string) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pages []*models.Page
	for _, page := range s.pages {
		if page.Owner == owner {
			pages = append(pages, page.Clone())
		}
	}
	return pages, nil
}

func (s *Store) FindPagesSharedWith(ctx context.Context, principal string) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pages []*models.Page
	for _, page := range s.pages {
		if page.Owner == principal {
			continue
		}
		if _, ok := page.GrantFor(principal); ok {
			pages = append(pages, page.Clone())
		}
	}
	return pages, nil
}

func (s *Store) FindPagesByWorkspaceIDs(ctx context.Context, workspaceIDs []string) ([]*models.Page, error) {
	ids := make(map[string]bool, len(workspaceIDs))
	for _, id := range workspaceIDs {
		ids[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pages []*models.Page
	for _, page := range s.pages {
		if ids[page.WorkspaceID] {
			pages = append(pages, page.Clone())
		}
	}
	return pages, nil
}

func (s *Store) AllPages(ctx context.Context) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]*models.Page, 0, len(s.pages))
	for _, page := range s.pages {
		pages = append(pages, page.Clone())
	}
	return pages, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[workspace.ID]; ok {
		return fmt.Errorf("create workspace %s: already exists", workspace.ID)
	}
	s.workspaces[workspace.ID] = workspace.Clone()
	return nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workspace, ok := s.workspaces[id]
	if !ok {
		return nil, nil
	}
	return workspace.Clone(), nil
}

func (s *Store) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[workspace.ID]; !ok {
		return fmt.Errorf("update workspace %s: %w", workspace.ID, store.ErrNotFound)
	}
	s.workspaces[workspace.ID] = workspace.Clone()
	return nil
}

func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return fmt.Errorf("delete workspace %s: %w", id, store.ErrNotFound)
	}
	delete(s.workspaces, id)
	return nil
}

func (s *Store) FindWorkspacesByMember(ctx context.Context, principal string) ([]*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var workspaces []*models.Workspace
	for _, workspace := range s.workspaces {
		if workspace.HasMember(principal) {
			workspaces = append(workspaces, workspace.Clone())
		}
	}
	return workspaces, nil
}

func (s *Store) RemoveRootPageEverywhere(ctx context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, workspace := range s.workspaces {
		workspace.RemoveRootPage(pageID)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
