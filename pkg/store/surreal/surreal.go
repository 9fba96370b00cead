// Package surreal implements the store interfaces on SurrealDB using native
// SurrealQL through the official Go client. The connection uses the
// surrealcbor codec so time.Time values and record ids round-trip in
// SurrealDB's own formats.
package surreal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// Store is the SurrealDB-backed store.
type Store struct {
	db *surrealdb.DB
}

var _ store.Store = (*Store)(nil)

// New connects to SurrealDB at wsURL and selects the given namespace and
// database. Credentials are optional.
func New(ctx context.Context, wsURL, namespace, database, username, password string) (*Store, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse surrealdb url: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec
	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}
	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps the client's "no result" errors to plain absence.
func handleNotFound(err error) error {
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Expected a single or multiple results but got 0") ||
			strings.Contains(msg, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

func pageRID(id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: pageTable, ID: id}
}

func workspaceRID(id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: workspaceTable, ID: id}
}

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now().UTC()
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = page.CreatedAt
	}
	if _, err := surrealdb.Create[pageRecord](ctx, s.db, pageTable, toPageRecord(page)); err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, id string) (*models.Page, error) {
	rec, err := surrealdb.Select[pageRecord](ctx, s.db, pageRID(id))
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toModel(), nil
}

func (s *Store) GetPages(ctx context.Context, ids []string) ([]*models.Page, error) {
	pages := make([]*models.Page, 0, len(ids))
	for _, id := range ids {
		page, err := s.GetPage(ctx, id)
		if err != nil {
			return nil, err
		}
		if page != nil {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	existing, err := s.GetPage(ctx, page.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update page %s: %w", page.ID, store.ErrNotFound)
	}
	if _, err := surrealdb.Update[pageRecord](ctx, s.db, pageRID(page.ID), toPageRecord(page)); err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	existing, err := s.GetPage(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("delete page %s: %w", id, store.ErrNotFound)
	}
	if _, err := surrealdb.Delete[pageRecord](ctx, s.db, pageRID(id)); err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

func (s *Store) queryPages(ctx context.Context, query string, params map[string]any) ([]*models.Page, error) {
	result, err := surrealdb.Query[[]pageRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	var pages []*models.Page
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			pages = append(pages, (*result)[0].Result[i].toModel())
		}
	}
	return pages, nil
}

func (s *Store) FindPagesByOwner(ctx context.Context, owner string) ([]*models.Page, error) {
	return s.queryPages(ctx, "SELECT * FROM type::table($table) WHERE owner = $owner", map[string]any{
		"table": pageTable,
		"owner": owner,
	})
}

func (s *Store) FindPagesSharedWith(ctx context.Context, principal string) ([]*models.Page, error) {
	query := "SELECT * FROM type::table($table) WHERE owner != $principal AND sharing[$principal] != NONE"
	return s.queryPages(ctx, query, map[string]any{
		"table":     pageTable,
		"principal": principal,
	})
}

func (s *Store) FindPagesByWorkspaceIDs(ctx context.Context, workspaceIDs []string) ([]*models.Page, error) {
	if len(workspaceIDs) == 0 {
		return nil, nil
	}
	return s.queryPages(ctx, "SELECT * FROM type::table($table) WHERE workspace_id INSIDE $ids", map[string]any{
		"table": pageTable,
		"ids":   workspaceIDs,
	})
}

func (s *Store) AllPages(ctx context.Context) ([]*models.Page, error) {
	return s.queryPages(ctx, "SELECT * FROM type::table($table)", map[string]any{
		"table": pageTable,
	})
}

func (s *Store) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if _, err := surrealdb.Create[workspaceRecord](ctx, s.db, workspaceTable, toWorkspaceRecord(workspace)); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	rec, err := surrealdb.Select[workspaceRecord](ctx, s.db, workspaceRID(id))
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toModel(), nil
}

func (s *Store) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	existing, err := s.GetWorkspace(ctx, workspace.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update workspace %s: %w", workspace.ID, store.ErrNotFound)
	}
	if _, err := surrealdb.Update[workspaceRecord](ctx, s.db, workspaceRID(workspace.ID), toWorkspaceRecord(workspace)); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return nil
}

func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	existing, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("delete workspace %s: %w", id, store.ErrNotFound)
	}
	if _, err := surrealdb.Delete[workspaceRecord](ctx, s.db, workspaceRID(id)); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}

func (s *Store) FindWorkspacesByMember(ctx context.Context, principal string) ([]*models.Workspace, error) {
	query := "SELECT * FROM type::table($table) WHERE $principal IN members"
	result, err := surrealdb.Query[[]workspaceRecord](ctx, s.db, query, map[string]any{
		"table":     workspaceTable,
		"principal": principal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	var workspaces []*models.Workspace
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			workspaces = append(workspaces, (*result)[0].Result[i].toModel())
		}
	}
	return workspaces, nil
}

func (s *Store) RemoveRootPageEverywhere(ctx context.Context, pageID string) error {
	query := "UPDATE type::table($table) SET root_page_ids -= $page WHERE $page IN root_page_ids"
	if _, err := surrealdb.Query[any](ctx, s.db, query, map[string]any{
		"table": workspaceTable,
		"page":  pageID,
	}); err != nil {
		return fmt.Errorf("failed to remove root page references: %w", err)
	}
	return nil
}
