// Package pages orchestrates page mutations and queries: creation with
// parent linking and promotion, access-checked reads, updates with change
// notification, recursive deletion, sharing and publication.
package pages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/access"
	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/notify"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// ErrAccessDenied is returned when the acting principal lacks the required
// level on the page, or when an operation is reserved for the owner.
var ErrAccessDenied = errors.New("access denied")

// ChildDeleted is the payload published on a container's children/deleted
// topic for every page removed from under it.
type ChildDeleted struct {
	PageID string `json:"pageId"`
}

// Service coordinates stores, the access resolver and the change notifier.
// Writes to one page are serialized through a per-page mutex; writes to
// different pages proceed independently.
type Service struct {
	store    store.Store
	resolver *access.Resolver
	notifier *notify.Registry
	caster   notify.Broadcaster
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires a page service.
func NewService(st store.Store, resolver *access.Resolver, notifier *notify.Registry, caster notify.Broadcaster, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		resolver: resolver,
		notifier: notifier,
		caster:   caster,
		log:      log.With().Str("component", "pages").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *Service) dropLock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

func notFound(id string) error {
	return fmt.Errorf("page %s: %w", id, store.ErrNotFound)
}

// getExisting fetches a page, turning absence into ErrNotFound.
func (s *Service) getExisting(ctx context.Context, id string) (*models.Page, error) {
	page, err := s.store.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, notFound(id)
	}
	return page, nil
}

// CreateContentPage creates a leaf page owned by principal. With a parent id
// the page is linked under the parent, promoting a content parent to a
// container; with a workspace id (and no parent) it is registered as a
// workspace root page.
func (s *Service) CreateContentPage(ctx context.Context, principal, title, body, parentID, workspaceID string) (*models.Page, error) {
	page := models.NewContentPage(title, body, parentID, principal)
	return s.create(ctx, principal, page, workspaceID)
}

// CreateContainerPage creates a container page owned by principal. Linking
// rules match CreateContentPage.
func (s *Service) CreateContainerPage(ctx context.Context, principal, title, summary, parentID, workspaceID string) (*models.Page, error) {
	page := models.NewContainerPage(title, summary, parentID, principal)
	return s.create(ctx, principal, page, workspaceID)
}

func (s *Service) create(ctx context.Context, principal string, page *models.Page, workspaceID string) (*models.Page, error) {
	if principal == "" {
		return nil, ErrAccessDenied
	}

	var workspace *models.Workspace
	if page.ParentID != "" {
		parent, err := s.getExisting(ctx, page.ParentID)
		if err != nil {
			return nil, err
		}
		if !s.resolver.HasAccess(ctx, parent, principal, models.AccessEdit) {
			return nil, ErrAccessDenied
		}
	} else if workspaceID != "" {
		var err error
		workspace, err = s.store.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		if workspace == nil {
			return nil, fmt.Errorf("workspace %s: %w", workspaceID, store.ErrNotFound)
		}
		if !workspace.HasMember(principal) {
			return nil, ErrAccessDenied
		}
		page.WorkspaceID = workspaceID
	}

	if err := s.store.CreatePage(ctx, page); err != nil {
		return nil, err
	}

	if page.ParentID != "" {
		if err := s.attachChild(ctx, page.ParentID, page); err != nil {
			return nil, err
		}
	} else if workspace != nil {
		workspace.AddRootPage(page.ID)
		if err := s.store.UpdateWorkspace(ctx, workspace); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("page_id", page.ID).
		Str("kind", string(page.Kind)).
		Str("owner", principal).
		Msg("page created")
	return page, nil
}

// attachChild links child under parentID, promoting a content parent to a
// container. The parent is reloaded under its write lock so concurrent
// attachments each see the previous one's child list.
func (s *Service) attachChild(ctx context.Context, parentID string, child *models.Page) error {
	lock := s.lockFor(parentID)
	lock.Lock()
	defer lock.Unlock()

	parent, err := s.getExisting(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.IsLeaf() {
		parent = parent.PromoteToContainer()
		s.log.Info().Str("page_id", parent.ID).Msg("content page promoted to container")
	}
	if err := parent.AddChild(child); err != nil {
		return err
	}
	if err := s.store.UpdatePage(ctx, parent); err != nil {
		return err
	}
	s.notifier.Subject(parent.ID).Notify(parent.Snapshot())
	return nil
}

// Get returns the page if principal may view it.
func (s *Service) Get(ctx context.Context, principal, id string) (*models.Page, error) {
	return s.get(ctx, principal, id, models.AccessView)
}

// GetForEditing returns the page if principal may edit it.
func (s *Service) GetForEditing(ctx context.Context, principal, id string) (*models.Page, error) {
	return s.get(ctx, principal, id, models.AccessEdit)
}

func (s *Service) get(ctx context.Context, principal, id string, level models.AccessLevel) (*models.Page, error) {
	page, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.resolver.HasAccess(ctx, page, principal, level) {
		return nil, ErrAccessDenied
	}
	return page, nil
}

// Update replaces the page's title and content and notifies subscribers.
// When neither field changes nothing is written and nothing is broadcast.
func (s *Service) Update(ctx context.Context, principal, id, title, content string) (*models.Page, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	page, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.resolver.HasAccess(ctx, page, principal, models.AccessEdit) {
		return nil, ErrAccessDenied
	}
	if page.Title == title && page.Content() == content {
		return page, nil
	}
	page.Title = title
	page.Body = content
	page.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdatePage(ctx, page); err != nil {
		return nil, err
	}
	s.notifier.Subject(id).Notify(page.Snapshot())
	return page, nil
}

// Delete removes the page and everything nested under it, children first.
// Each removed page is announced on its parent's children/deleted topic, the
// page's subject is released, and any workspace root-page references are
// cleaned up.
func (s *Service) Delete(ctx context.Context, principal, id string) error {
	page, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}
	if !s.resolver.HasAccess(ctx, page, principal, models.AccessEdit) {
		return ErrAccessDenied
	}
	if err := s.deleteTree(ctx, page, make(map[string]bool)); err != nil {
		return err
	}
	if page.ParentID != "" {
		if err := s.detachFromParent(ctx, page.ParentID, page.ID); err != nil {
			return err
		}
	}
	s.log.Info().Str("page_id", id).Str("principal", principal).Msg("page deleted")
	return nil
}

func (s *Service) deleteTree(ctx context.Context, page *models.Page, visited map[string]bool) error {
	if visited[page.ID] {
		s.log.Warn().Str("page_id", page.ID).Msg("cycle in child list, skipping")
		return nil
	}
	visited[page.ID] = true

	for _, childID := range page.ChildIDs {
		child, err := s.store.GetPage(ctx, childID)
		if err != nil {
			return err
		}
		if child == nil {
			continue
		}
		if err := s.deleteTree(ctx, child, visited); err != nil {
			return err
		}
		s.publishChildDeleted(page.ID, childID)
	}

	if err := s.store.DeletePage(ctx, page.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := s.store.RemoveRootPageEverywhere(ctx, page.ID); err != nil {
		return err
	}
	s.notifier.Release(page.ID)
	s.dropLock(page.ID)
	return nil
}

func (s *Service) detachFromParent(ctx context.Context, parentID, childID string) error {
	lock := s.lockFor(parentID)
	lock.Lock()
	defer lock.Unlock()

	parent, err := s.store.GetPage(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil || parent.IsLeaf() {
		return nil
	}
	if err := parent.RemoveChild(childID); err != nil {
		return err
	}
	if err := s.store.UpdatePage(ctx, parent); err != nil {
		return err
	}
	s.notifier.Subject(parentID).Notify(parent.Snapshot())
	s.publishChildDeleted(parentID, childID)
	return nil
}

func (s *Service) publishChildDeleted(parentID, childID string) {
	if s.caster == nil {
		return
	}
	if err := s.caster.Publish(notify.ChildrenDeletedTopic(parentID), ChildDeleted{PageID: childID}); err != nil {
		s.log.Warn().Err(err).Str("page_id", parentID).Msg("child-deleted broadcast failed")
	}
}

// Share grants target the given level on the page. Only the owner manages
// sharing.
func (s *Service) Share(ctx context.Context, principal, id, target string, level models.AccessLevel) (*models.Page, error) {
	return s.mutateAsOwner(ctx, principal, id, func(page *models.Page) (bool, error) {
		if err := page.Share(target, level); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Unshare revokes target's direct grant on the page. Only the owner manages
// sharing.
func (s *Service) Unshare(ctx context.Context, principal, id, target string) (*models.Page, error) {
	return s.mutateAsOwner(ctx, principal, id, func(page *models.Page) (bool, error) {
		if _, ok := page.GrantFor(target); !ok {
			return false, nil
		}
		page.Unshare(target)
		return true, nil
	})
}

// SetPublished toggles anonymous view access. Only the owner publishes.
func (s *Service) SetPublished(ctx context.Context, principal, id string, published bool) (*models.Page, error) {
	return s.mutateAsOwner(ctx, principal, id, func(page *models.Page) (bool, error) {
		if page.Published == published {
			return false, nil
		}
		page.Published = published
		page.UpdatedAt = time.Now().UTC()
		return true, nil
	})
}

// mutateAsOwner applies an owner-only mutation under the page's write lock.
// The mutation reports whether anything changed; unchanged pages are neither
// written nor broadcast.
func (s *Service) mutateAsOwner(ctx context.Context, principal, id string, mutate func(*models.Page) (bool, error)) (*models.Page, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	page, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal == "" || page.Owner != principal {
		return nil, ErrAccessDenied
	}
	changed, err := mutate(page)
	if err != nil {
		return nil, err
	}
	if !changed {
		return page, nil
	}
	if err := s.store.UpdatePage(ctx, page); err != nil {
		return nil, err
	}
	s.notifier.Subject(id).Notify(page.Snapshot())
	return page, nil
}

// Children returns the page's direct children in stored order. Requires view
// access on the page; content pages have none.
func (s *Service) Children(ctx context.Context, principal, id string) ([]*models.Page, error) {
	page, err := s.get(ctx, principal, id, models.AccessView)
	if err != nil {
		return nil, err
	}
	if page.IsLeaf() {
		return nil, nil
	}
	return s.store.GetPages(ctx, page.ChildIDs)
}

// GetSubtree returns the page with its descendants resolved into the
// transient children slices. Access is checked at the root; everything below
// inherits it. A cycle in the stored child lists is logged and not followed.
func (s *Service) GetSubtree(ctx context.Context, principal, id string) (*models.Page, error) {
	page, err := s.get(ctx, principal, id, models.AccessView)
	if err != nil {
		return nil, err
	}
	if err := s.loadSubtree(ctx, page, make(map[string]bool)); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) loadSubtree(ctx context.Context, page *models.Page, visited map[string]bool) error {
	if visited[page.ID] {
		s.log.Warn().Str("page_id", page.ID).Msg("cycle in child list, not descending")
		return nil
	}
	visited[page.ID] = true
	if page.IsLeaf() {
		return nil
	}
	children, err := s.store.GetPages(ctx, page.ChildIDs)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.loadSubtree(ctx, child, visited); err != nil {
			return err
		}
	}
	page.SetChildren(children)
	return nil
}

// ListOwned returns every page principal owns.
func (s *Service) ListOwned(ctx context.Context, principal string) ([]*models.Page, error) {
	if principal == "" {
		return nil, ErrAccessDenied
	}
	return s.store.FindPagesByOwner(ctx, principal)
}

// ListSharedWith returns pages carrying a direct grant for principal,
// excluding pages principal owns.
func (s *Service) ListSharedWith(ctx context.Context, principal string) ([]*models.Page, error) {
	if principal == "" {
		return nil, ErrAccessDenied
	}
	return s.store.FindPagesSharedWith(ctx, principal)
}

// ListAccessible returns owned and directly shared pages, deduplicated.
func (s *Service) ListAccessible(ctx context.Context, principal string) ([]*models.Page, error) {
	owned, err := s.ListOwned(ctx, principal)
	if err != nil {
		return nil, err
	}
	shared, err := s.ListSharedWith(ctx, principal)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(owned))
	pages := make([]*models.Page, 0, len(owned)+len(shared))
	for _, page := range owned {
		seen[page.ID] = true
		pages = append(pages, page)
	}
	for _, page := range shared {
		if !seen[page.ID] {
			pages = append(pages, page)
		}
	}
	return pages, nil
}
