// Package postgres implements the store interfaces on PostgreSQL using GORM.
// Sharing grants, child lists and member lists are stored as JSON columns via
// the GORM JSON serializer, so grant lookups that key into the JSON happen in
// Go after a narrowed fetch.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// Store is the PostgreSQL-backed store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New connects to PostgreSQL with the given DSN.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.Page{}, &models.Workspace{})
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if err := s.db.WithContext(ctx).Create(page).Error; err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	err := s.db.WithContext(ctx).First(&page, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *Store) GetPages(ctx context.Context, ids []string) ([]*models.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var pages []*models.Page
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	// Find does not preserve the requested order.
	byID := make(map[string]*models.Page, len(pages))
	for _, page := range pages {
		byID[page.ID] = page
	}
	ordered := make([]*models.Page, 0, len(pages))
	for _, id := range ids {
		if page, ok := byID[id]; ok {
			ordered = append(ordered, page)
		}
	}
	return ordered, nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	existing, err := s.GetPage(ctx, page.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update page %s: %w", page.ID, store.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Page{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete page %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) FindPagesByOwner(ctx context.Context, owner string) ([]*models.Page, error) {
	var pages []*models.Page
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to find pages by owner: %w", err)
	}
	return pages, nil
}

func (s *Store) FindPagesSharedWith(ctx context.Context, principal string) ([]*models.Page, error) {
	var candidates []*models.Page
	if err := s.db.WithContext(ctx).Where("owner <> ?", principal).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to find shared pages: %w", err)
	}
	// Sharing is a JSON column, so the grant check happens here.
	var pages []*models.Page
	for _, page := range candidates {
		if _, ok := page.GrantFor(principal); ok {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (s *Store) FindPagesByWorkspaceIDs(ctx context.Context, workspaceIDs []string) ([]*models.Page, error) {
	if len(workspaceIDs) == 0 {
		return nil, nil
	}
	var pages []*models.Page
	if err := s.db.WithContext(ctx).Where("workspace_id IN ?", workspaceIDs).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to find pages by workspace: %w", err)
	}
	return pages, nil
}

func (s *Store) AllPages(ctx context.Context) ([]*models.Page, error) {
	var pages []*models.Page
	if err := s.db.WithContext(ctx).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if err := s.db.WithContext(ctx).Create(workspace).Error; err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.WithContext(ctx).First(&workspace, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &workspace, nil
}

func (s *Store) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	existing, err := s.GetWorkspace(ctx, workspace.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update workspace %s: %w", workspace.ID, store.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Save(workspace).Error; err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return nil
}

func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Workspace{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete workspace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete workspace %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) FindWorkspacesByMember(ctx context.Context, principal string) ([]*models.Workspace, error) {
	var candidates []*models.Workspace
	if err := s.db.WithContext(ctx).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to find workspaces: %w", err)
	}
	// Members is a JSON column, so membership is checked here.
	var workspaces []*models.Workspace
	for _, workspace := range candidates {
		if workspace.HasMember(principal) {
			workspaces = append(workspaces, workspace)
		}
	}
	return workspaces, nil
}

func (s *Store) RemoveRootPageEverywhere(ctx context.Context, pageID string) error {
	var workspaces []*models.Workspace
	if err := s.db.WithContext(ctx).Find(&workspaces).Error; err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	for _, workspace := range workspaces {
		if workspace.RemoveRootPage(pageID) {
			if err := s.db.WithContext(ctx).Save(workspace).Error; err != nil {
				return fmt.Errorf("failed to update workspace %s: %w", workspace.ID, err)
			}
		}
	}
	return nil
}
