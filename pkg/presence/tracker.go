// Package presence tracks which principals are currently viewing each page
// and relays cursor positions between them. All state is process-local:
// after a restart clients simply re-join.
package presence

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/access"
	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/notify"
	"github.com/slipstream-app/slipstream/pkg/store"
)

// Cursor is the payload relayed on a page's cursor topic. Position is passed
// through untouched; the tracker never interprets it.
type Cursor struct {
	Principal string `json:"principal"`
	Position  any    `json:"position"`
}

// Entry identifies one viewing session on a page's presence topic. The same
// principal appears once per open session.
type Entry struct {
	Principal string `json:"principal"`
	SessionID string `json:"sessionId"`
}

// pageViewers maps session ids to principals for one page. One principal may
// appear under several sessions (multiple tabs).
type pageViewers struct {
	mu       sync.Mutex
	sessions map[string]string
}

// Tracker records page viewership keyed by session id and broadcasts
// membership changes. Join checks view access through the resolver; a denial
// is a silent no-op so probing for a page's existence learns nothing.
type Tracker struct {
	store    store.PageStore
	resolver *access.Resolver
	caster   notify.Broadcaster
	log      zerolog.Logger

	mu    sync.RWMutex
	pages map[string]*pageViewers
}

// NewTracker returns an empty tracker.
func NewTracker(st store.PageStore, resolver *access.Resolver, caster notify.Broadcaster, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:    st,
		resolver: resolver,
		caster:   caster,
		log:      log.With().Str("component", "presence").Logger(),
		pages:    make(map[string]*pageViewers),
	}
}

// Join records sessionID as viewing pageID and re-broadcasts the page's
// viewer list. A blank principal, an unknown page, or a principal without
// view access is ignored without a reply. A session re-joining the same page
// stays a single entry.
func (t *Tracker) Join(ctx context.Context, pageID, sessionID, principal string) {
	if pageID == "" || sessionID == "" || principal == "" {
		return
	}
	page, err := t.store.GetPage(ctx, pageID)
	if err != nil {
		t.log.Error().Err(err).Str("page_id", pageID).Msg("page lookup failed, join dropped")
		return
	}
	if page == nil {
		return
	}
	if !t.resolver.HasAccess(ctx, page, principal, models.AccessView) {
		t.log.Debug().
			Str("page_id", pageID).
			Str("principal", principal).
			Msg("join denied")
		return
	}

	// Insertion happens under the registry lock, like Disconnect, so a
	// concurrent disconnect of the page's last session cannot drop the
	// registry entry between lookup and insert.
	t.mu.Lock()
	viewers, ok := t.pages[pageID]
	if !ok {
		viewers = &pageViewers{sessions: make(map[string]string)}
		t.pages[pageID] = viewers
	}
	viewers.mu.Lock()
	viewers.sessions[sessionID] = principal
	entries := entriesLocked(viewers)
	viewers.mu.Unlock()
	t.mu.Unlock()

	t.broadcast(pageID, entries)
}

// Disconnect removes sessionID from pageID and re-broadcasts the viewer
// list. The page's entry is dropped entirely once its last session leaves.
// Unknown pages and sessions are ignored.
func (t *Tracker) Disconnect(pageID, sessionID string) {
	t.mu.Lock()
	viewers, ok := t.pages[pageID]
	if !ok {
		t.mu.Unlock()
		return
	}
	viewers.mu.Lock()
	if _, ok := viewers.sessions[sessionID]; !ok {
		viewers.mu.Unlock()
		t.mu.Unlock()
		return
	}
	delete(viewers.sessions, sessionID)
	entries := entriesLocked(viewers)
	if len(viewers.sessions) == 0 {
		delete(t.pages, pageID)
	}
	viewers.mu.Unlock()
	t.mu.Unlock()

	t.broadcast(pageID, entries)
}

// RelayCursor forwards a cursor position to the page's cursor topic. No
// access check beyond requiring an authenticated sender, and no state: the
// payload goes out exactly once, as given. Anonymous senders are dropped.
func (t *Tracker) RelayCursor(pageID, principal string, position any) {
	if pageID == "" || principal == "" {
		return
	}
	if err := t.caster.Publish(notify.CursorTopic(pageID), Cursor{Principal: principal, Position: position}); err != nil {
		t.log.Warn().Err(err).Str("page_id", pageID).Msg("cursor relay failed")
	}
}

// Present returns the distinct principals viewing pageID, sorted.
func (t *Tracker) Present(pageID string) []string {
	t.mu.RLock()
	viewers, ok := t.pages[pageID]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	viewers.mu.Lock()
	defer viewers.mu.Unlock()
	return membersLocked(viewers)
}

func (t *Tracker) broadcast(pageID string, entries []Entry) {
	if err := t.caster.Publish(notify.PresenceTopic(pageID), entries); err != nil {
		t.log.Warn().Err(err).Str("page_id", pageID).Msg("presence broadcast failed")
	}
}

// entriesLocked returns the page's sessions as broadcast entries, ordered by
// principal then session id. Callers hold viewers.mu.
func entriesLocked(viewers *pageViewers) []Entry {
	entries := make([]Entry, 0, len(viewers.sessions))
	for sessionID, principal := range viewers.sessions {
		entries = append(entries, Entry{Principal: principal, SessionID: sessionID})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Principal != entries[j].Principal {
			return entries[i].Principal < entries[j].Principal
		}
		return entries[i].SessionID < entries[j].SessionID
	})
	return entries
}

// membersLocked returns the distinct principals in viewers. Callers hold
// viewers.mu.
func membersLocked(viewers *pageViewers) []string {
	seen := make(map[string]bool, len(viewers.sessions))
	members := make([]string, 0, len(viewers.sessions))
	for _, principal := range viewers.sessions {
		if !seen[principal] {
			seen[principal] = true
			members = append(members, principal)
		}
	}
	sort.Strings(members)
	return members
}
