package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// NewWorkspaceID returns a fresh workspace identifier. The ws_ prefix keeps
// workspace ids distinguishable from page ids in logs and payloads.
func NewWorkspaceID() string {
	return "ws_" + uuid.NewString()
}

// Workspace groups top-level pages for a set of members. The owner is always
// a member and cannot be removed.
type Workspace struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner" gorm:"index"`
	Members     []string  `json:"members" gorm:"serializer:json"`
	RootPageIDs []string  `json:"rootPageIds,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewWorkspace returns a workspace owned by owner, with owner as the sole
// member.
func NewWorkspace(name, owner string) *Workspace {
	now := time.Now().UTC()
	return &Workspace{
		ID:        NewWorkspaceID(),
		Name:      name,
		Owner:     owner,
		Members:   []string{owner},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasMember reports whether principal belongs to the workspace.
func (w *Workspace) HasMember(principal string) bool {
	return slices.Contains(w.Members, principal)
}

// AddMember adds principal to the member list. Adding an existing member is
// a no-op.
func (w *Workspace) AddMember(principal string) {
	if principal == "" || w.HasMember(principal) {
		return
	}
	w.Members = append(w.Members, principal)
	w.UpdatedAt = time.Now().UTC()
}

// RemoveMember removes principal from the member list and reports whether a
// removal happened. The owner cannot be removed.
func (w *Workspace) RemoveMember(principal string) bool {
	if principal == w.Owner || !w.HasMember(principal) {
		return false
	}
	w.Members = slices.DeleteFunc(w.Members, func(m string) bool { return m == principal })
	w.UpdatedAt = time.Now().UTC()
	return true
}

// HasRootPage reports whether id is registered as a root page.
func (w *Workspace) HasRootPage(id string) bool {
	return slices.Contains(w.RootPageIDs, id)
}

// AddRootPage registers id as a root page. Re-adding is a no-op.
func (w *Workspace) AddRootPage(id string) {
	if id == "" || w.HasRootPage(id) {
		return
	}
	w.RootPageIDs = append(w.RootPageIDs, id)
	w.UpdatedAt = time.Now().UTC()
}

// RemoveRootPage unregisters id and reports whether a removal happened.
func (w *Workspace) RemoveRootPage(id string) bool {
	if !w.HasRootPage(id) {
		return false
	}
	w.RootPageIDs = slices.DeleteFunc(w.RootPageIDs, func(rid string) bool { return rid == id })
	w.UpdatedAt = time.Now().UTC()
	return true
}

// Clone returns a deep copy.
func (w *Workspace) Clone() *Workspace {
	c := *w
	c.Members = slices.Clone(w.Members)
	c.RootPageIDs = slices.Clone(w.RootPageIDs)
	return &c
}
