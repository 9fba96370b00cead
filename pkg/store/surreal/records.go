package surreal

import (
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/slipstream-app/slipstream/pkg/models"
)

const (
	pageTable      = "page"
	workspaceTable = "workspace"
)

// recordID bridges the application's plain string ids and SurrealDB record
// ids. It marshals to CBOR tag 8 ("table", "id") and accepts either the
// tagged form or a "table:id" string on the way back.
type recordID struct {
	Table string
	ID    string
}

func (r recordID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{r.Table, r.ID},
	})
}

func (r *recordID) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err == nil && tag.Number == 8 {
		parts, ok := tag.Content.([]any)
		if !ok || len(parts) != 2 {
			return fmt.Errorf("unexpected record id content %v", tag.Content)
		}
		table, ok := parts[0].(string)
		if !ok {
			return fmt.Errorf("unexpected record id table %T", parts[0])
		}
		id, ok := parts[1].(string)
		if !ok {
			return fmt.Errorf("unexpected record id value %T", parts[1])
		}
		r.Table, r.ID = table, id
		return nil
	}
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	if table, id, ok := strings.Cut(s, ":"); ok {
		r.Table, r.ID = table, id
	} else {
		r.ID = s
	}
	return nil
}

type pageRecord struct {
	ID          *recordID                     `json:"id,omitempty"`
	Kind        models.PageKind               `json:"kind"`
	Title       string                        `json:"title"`
	Owner       string                        `json:"owner"`
	ParentID    string                        `json:"parent_id,omitempty"`
	WorkspaceID string                        `json:"workspace_id,omitempty"`
	Body        string                        `json:"body"`
	ChildIDs    []string                      `json:"child_ids,omitempty"`
	Sharing     map[string]models.AccessLevel `json:"sharing,omitempty"`
	Published   bool                          `json:"published"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

func toPageRecord(page *models.Page) *pageRecord {
	return &pageRecord{
		ID:          &recordID{Table: pageTable, ID: page.ID},
		Kind:        page.Kind,
		Title:       page.Title,
		Owner:       page.Owner,
		ParentID:    page.ParentID,
		WorkspaceID: page.WorkspaceID,
		Body:        page.Body,
		ChildIDs:    page.ChildIDs,
		Sharing:     page.Sharing,
		Published:   page.Published,
		CreatedAt:   page.CreatedAt,
		UpdatedAt:   page.UpdatedAt,
	}
}

func (r *pageRecord) toModel() *models.Page {
	page := &models.Page{
		Kind:        r.Kind,
		Title:       r.Title,
		Owner:       r.Owner,
		ParentID:    r.ParentID,
		WorkspaceID: r.WorkspaceID,
		Body:        r.Body,
		ChildIDs:    r.ChildIDs,
		Sharing:     r.Sharing,
		Published:   r.Published,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ID != nil {
		page.ID = r.ID.ID
	}
	return page
}

type workspaceRecord struct {
	ID          *recordID `json:"id,omitempty"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Members     []string  `json:"members"`
	RootPageIDs []string  `json:"root_page_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toWorkspaceRecord(workspace *models.Workspace) *workspaceRecord {
	return &workspaceRecord{
		ID:          &recordID{Table: workspaceTable, ID: workspace.ID},
		Name:        workspace.Name,
		Owner:       workspace.Owner,
		Members:     workspace.Members,
		RootPageIDs: workspace.RootPageIDs,
		CreatedAt:   workspace.CreatedAt,
		UpdatedAt:   workspace.UpdatedAt,
	}
}

func (r *workspaceRecord) toModel() *models.Workspace {
	workspace := &models.Workspace{
		Name:        r.Name,
		Owner:       r.Owner,
		Members:     r.Members,
		RootPageIDs: r.RootPageIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ID != nil {
		workspace.ID = r.ID.ID
	}
	return workspace
}
