// Package notify implements per-page change subscription and fan-out.
//
// A Registry holds one Subject per page with at least one interested party.
// Observers attach to a subject and receive every change snapshot for that
// page, synchronously and in attachment order. Each new subject starts with
// a built-in observer that republishes snapshots to the page's broadcast
// topic, so transport subscribers are covered without explicit attachment.
package notify

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/models"
)

// Observer receives change snapshots for a single page.
type Observer interface {
	// PageID names the page this observer is bound to.
	PageID() string
	// Update delivers a snapshot. Errors are logged by the subject and do
	// not affect other observers.
	Update(snapshot models.Snapshot) error
}

// Broadcaster publishes a payload to a logical topic. The WebSocket hub is
// the production implementation.
type Broadcaster interface {
	Publish(topic string, payload any) error
}

// Subject fans snapshots out to the observers of one page. All methods are
// safe for concurrent use; Notify holds the subject's lock for the whole
// fan-out, so deliveries for one page are linearized.
type Subject struct {
	pageID string
	log    zerolog.Logger

	mu        sync.Mutex
	observers []Observer
}

// PageID returns the page this subject serves.
func (s *Subject) PageID() string {
	return s.pageID
}

// Attach registers o. Attaching an already-registered observer is a no-op,
// so delivery order stays the original attachment order.
func (s *Subject) Attach(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)
}

// Detach unregisters o. Detaching an unknown observer is a no-op.
func (s *Subject) Detach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = slices.DeleteFunc(s.observers, func(existing Observer) bool {
		return existing == o
	})
}

// ObserverCount returns the number of attached observers, including the
// built-in broadcast observer.
func (s *Subject) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Notify delivers snapshot to every observer in attachment order. A snapshot
// for a different page is an assertion failure: it is logged and dropped. An
// observer bound to a different page is likewise skipped, and an observer
// returning an error does not stop delivery to the rest.
func (s *Subject) Notify(snapshot models.Snapshot) {
	if snapshot.PageID != s.pageID {
		s.log.Error().
			Str("subject_page_id", s.pageID).
			Str("snapshot_page_id", snapshot.PageID).
			Msg("snapshot for wrong page dropped")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers {
		if o.PageID() != s.pageID {
			s.log.Error().
				Str("subject_page_id", s.pageID).
				Str("observer_page_id", o.PageID()).
				Msg("observer bound to wrong page skipped")
			continue
		}
		if err := o.Update(snapshot); err != nil {
			s.log.Warn().
				Err(err).
				Str("page_id", s.pageID).
				Msg("observer update failed")
		}
	}
}

// broadcastObserver republishes snapshots to the page topic.
type broadcastObserver struct {
	pageID string
	caster Broadcaster
}

func (b *broadcastObserver) PageID() string {
	return b.pageID
}

func (b *broadcastObserver) Update(snapshot models.Snapshot) error {
	return b.caster.Publish(PageTopic(b.pageID), snapshot)
}

// Registry owns the per-page subjects. The registry lock guards only the
// subject map; each subject carries its own lock, so work on different pages
// never contends beyond the map lookup.
type Registry struct {
	caster Broadcaster
	log    zerolog.Logger

	mu       sync.RWMutex
	subjects map[string]*Subject
}

// NewRegistry returns an empty registry whose subjects broadcast through
// caster.
func NewRegistry(caster Broadcaster, log zerolog.Logger) *Registry {
	return &Registry{
		caster:   caster,
		log:      log.With().Str("component", "notify").Logger(),
		subjects: make(map[string]*Subject),
	}
}

// Subject returns the subject for pageID, creating it on first use. A fresh
// subject has the broadcast observer attached.
func (r *Registry) Subject(pageID string) *Subject {
	r.mu.RLock()
	subject, ok := r.subjects[pageID]
	r.mu.RUnlock()
	if ok {
		return subject
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if subject, ok := r.subjects[pageID]; ok {
		return subject
	}
	subject = &Subject{pageID: pageID, log: r.log}
	if r.caster != nil {
		subject.Attach(&broadcastObserver{pageID: pageID, caster: r.caster})
	}
	r.subjects[pageID] = subject
	return subject
}

// Lookup returns the subject for pageID without creating one.
func (r *Registry) Lookup(pageID string) *Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subjects[pageID]
}

// Release drops the page's subject if no observers remain beyond the
// built-in broadcast observer. A subject with live client observers stays
// registered; they detach on their own when their connections go away.
//
// Release runs only after the page is deleted, so no new observers are
// attaching concurrently. A caller must not Attach through a subject pointer
// taken before a Release of the same page; re-resolving through Subject
// returns a live entry.
func (r *Registry) Release(pageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subject, ok := r.subjects[pageID]
	if !ok {
		return
	}
	if subject.ObserverCount() <= 1 {
		delete(r.subjects, pageID)
	}
}

// Len returns the number of live subjects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subjects)
}
