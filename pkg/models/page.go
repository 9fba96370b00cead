package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// PageKind selects the page variant.
type PageKind string

const (
	// KindContainer marks a page that groups children and carries a summary.
	KindContainer PageKind = "container"
	// KindContent marks a leaf page that carries body text and no children.
	KindContent PageKind = "content"
)

// NewPageID returns a fresh page identifier.
func NewPageID() string {
	return uuid.NewString()
}

// Page is a single node in the page tree. Kind selects the variant: container
// pages hold an ordered child list and use Body as a summary, content pages
// use Body as their text and reject child operations.
//
// Sharing maps principals (verified email addresses) to the level granted
// directly on this page. Grants on a container extend to every descendant;
// see the access package.
type Page struct {
	ID          string                 `json:"id" gorm:"primaryKey"`
	Kind        PageKind               `json:"kind"`
	Title       string                 `json:"title"`
	Owner       string                 `json:"owner" gorm:"index"`
	ParentID    string                 `json:"parentId,omitempty" gorm:"index"`
	WorkspaceID string                 `json:"workspaceId,omitempty" gorm:"index"`
	Body        string                 `json:"body"`
	ChildIDs    []string               `json:"childIds,omitempty" gorm:"serializer:json"`
	Sharing     map[string]AccessLevel `json:"sharing,omitempty" gorm:"serializer:json"`
	Published   bool                   `json:"published"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`

	// loadedChildren holds resolved child pages during tree assembly.
	// Transient, never persisted.
	loadedChildren []*Page
}

// NewContentPage returns a leaf page owned by owner. ParentID may be empty
// for top-level pages.
func NewContentPage(title, body, parentID, owner string) *Page {
	now := time.Now().UTC()
	return &Page{
		ID:        NewPageID(),
		Kind:      KindContent,
		Title:     title,
		Owner:     owner,
		ParentID:  parentID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewContainerPage returns a container page owned by owner with an empty
// child list. Body holds the container's summary.
func NewContainerPage(title, summary, parentID, owner string) *Page {
	now := time.Now().UTC()
	return &Page{
		ID:        NewPageID(),
		Kind:      KindContainer,
		Title:     title,
		Owner:     owner,
		ParentID:  parentID,
		Body:      summary,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLeaf reports whether the page is a content page.
func (p *Page) IsLeaf() bool {
	return p.Kind == KindContent
}

// Content returns the page's text: the body of a content page or the summary
// of a container.
func (p *Page) Content() string {
	return p.Body
}

// Children returns the resolved child pages set by SetChildren. It is empty
// unless a tree loader populated it; the persisted child list is ChildIDs.
func (p *Page) Children() []*Page {
	return slices.Clone(p.loadedChildren)
}

// SetChildren replaces the transient resolved-children slice.
func (p *Page) SetChildren(children []*Page) {
	p.loadedChildren = children
}

// HasChild reports whether id is in the persisted child list.
func (p *Page) HasChild(id string) bool {
	return slices.Contains(p.ChildIDs, id)
}

// AddChild appends child to the container's child list and records the
// relationship on both sides. Adding a child that is already present is a
// no-op. Content pages return ErrUnsupportedOperation.
func (p *Page) AddChild(child *Page) error {
	if p.IsLeaf() {
		return ErrUnsupportedOperation
	}
	if child == nil || p.HasChild(child.ID) {
		return nil
	}
	p.ChildIDs = append(p.ChildIDs, child.ID)
	p.loadedChildren = append(p.loadedChildren, child)
	child.ParentID = p.ID
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveChild drops id from the child list. Removing an absent id is a
// no-op. Content pages return ErrUnsupportedOperation.
func (p *Page) RemoveChild(id string) error {
	if p.IsLeaf() {
		return ErrUnsupportedOperation
	}
	before := len(p.ChildIDs)
	p.ChildIDs = slices.DeleteFunc(p.ChildIDs, func(cid string) bool { return cid == id })
	p.loadedChildren = slices.DeleteFunc(p.loadedChildren, func(c *Page) bool { return c != nil && c.ID == id })
	if len(p.ChildIDs) != before {
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Share grants principal the given level on this page, replacing any
// existing grant.
func (p *Page) Share(principal string, level AccessLevel) error {
	if !level.Valid() {
		return ErrInvalidAccessLevel
	}
	if p.Sharing == nil {
		p.Sharing = make(map[string]AccessLevel)
	}
	p.Sharing[principal] = level
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Unshare revokes principal's direct grant, if any.
func (p *Page) Unshare(principal string) {
	if _, ok := p.Sharing[principal]; !ok {
		return
	}
	delete(p.Sharing, principal)
	p.UpdatedAt = time.Now().UTC()
}

// GrantFor returns the direct sharing grant for principal.
func (p *Page) GrantFor(principal string) (AccessLevel, bool) {
	level, ok := p.Sharing[principal]
	return level, ok
}

// PromoteToContainer returns the container variant of a content page, keeping
// the page's identity: id, title, owner, parent, workspace, timestamps,
// sharing grants and publication state all carry over, and the body becomes
// the container's summary. Containers are returned unchanged; pages are never
// demoted.
func (p *Page) PromoteToContainer() *Page {
	if !p.IsLeaf() {
		return p
	}
	promoted := p.Clone()
	promoted.Kind = KindContainer
	promoted.ChildIDs = nil
	promoted.loadedChildren = nil
	return promoted
}

// Clone returns a deep copy. The transient resolved-children slice is not
// carried over.
func (p *Page) Clone() *Page {
	c := *p
	c.ChildIDs = slices.Clone(p.ChildIDs)
	c.loadedChildren = nil
	if p.Sharing != nil {
		c.Sharing = make(map[string]AccessLevel, len(p.Sharing))
		for k, v := range p.Sharing {
			c.Sharing[k] = v
		}
	}
	return &c
}

// Snapshot is the canonical change payload delivered to page observers and
// broadcast to subscribers.
type Snapshot struct {
	PageID    string                 `json:"pageId"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	UpdatedAt time.Time              `json:"lastUpdated"`
	Published bool                   `json:"isPublished"`
	Sharing   map[string]AccessLevel `json:"sharingInfo,omitempty"`
}

// Snapshot captures the page's current observable state.
func (p *Page) Snapshot() Snapshot {
	sharing := make(map[string]AccessLevel, len(p.Sharing))
	for k, v := range p.Sharing {
		sharing[k] = v
	}
	return Snapshot{
		PageID:    p.ID,
		Title:     p.Title,
		Content:   p.Content(),
		UpdatedAt: p.UpdatedAt,
		Published: p.Published,
		Sharing:   sharing,
	}
}
