// Package access implements permission resolution over the page hierarchy.
//
// A principal's access to a page comes from one of four sources, checked in
// order: owning the page, the page being published (view only), a direct
// sharing grant, or access to an ancestor container. Inherited access means
// sharing a container once covers everything nested under it.
package access

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// Resolver answers access questions, following parent links through the
// store when no rule matches the page itself.
type Resolver struct {
	store store.PageStore
	log   zerolog.Logger
}

// NewResolver returns a resolver reading parents from st.
func NewResolver(st store.PageStore, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: st,
		log:   log.With().Str("component", "access").Logger(),
	}
}

// HasAccess reports whether principal holds the required level on page.
// The anonymous principal (empty string) can only match the publication
// rule. Failure to load an ancestor denies access; so does a cycle in the
// parent chain, which is logged once per call.
func (r *Resolver) HasAccess(ctx context.Context, page *models.Page, principal string, level models.AccessLevel) bool {
	return r.hasAccess(ctx, page, principal, level, make(map[string]bool))
}

func (r *Resolver) hasAccess(ctx context.Context, page *models.Page, principal string, level models.AccessLevel, visited map[string]bool) bool {
	if page == nil {
		return false
	}
	if visited[page.ID] {
		r.log.Warn().
			Str("page_id", page.ID).
			Msg("cycle in parent chain, denying access")
		return false
	}
	visited[page.ID] = true

	if principal != "" && page.Owner == principal {
		return true
	}
	if page.Published && level == models.AccessView {
		return true
	}
	if principal != "" {
		if grant, ok := page.GrantFor(principal); ok && grant.Satisfies(level) {
			return true
		}
	}
	if page.ParentID == "" {
		return false
	}
	parent, err := r.store.GetPage(ctx, page.ParentID)
	if err != nil {
		r.log.Error().
			Err(err).
			Str("page_id", page.ID).
			Str("parent_id", page.ParentID).
			Msg("parent lookup failed, denying access")
		return false
	}
	return r.hasAccess(ctx, parent, principal, level, visited)
}
