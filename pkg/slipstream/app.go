package slipstream

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/access"
	"github.com/slipstream-app/slipstream/pkg/auth"
	"github.com/slipstream-app/slipstream/pkg/notify"
	"github.com/slipstream-app/slipstream/pkg/pages"
	"github.com/slipstream-app/slipstream/pkg/presence"
	"github.com/slipstream-app/slipstream/pkg/store"
	"github.com/slipstream-app/slipstream/pkg/workspace"
)

// App wires the store, resolver, notifier, presence tracker and services
// together and exposes them over HTTP and WebSocket. All collaboration
// state (subjects, presence) lives in the App's registries; nothing is
// package-global, so tests can run several Apps side by side.
type App struct {
	config     *Config
	store      store.Store
	log        zerolog.Logger
	auth       *auth.Authenticator
	hub        *Hub
	notifier   *notify.Registry
	presence   *presence.Tracker
	pages      *pages.Service
	workspaces *workspace.Service
	router     *mux.Router
}

// NewApp builds a fully wired application on top of st.
func NewApp(config *Config, st store.Store, log zerolog.Logger) *App {
	hub := NewHub(log)
	resolver := access.NewResolver(st, log)
	notifier := notify.NewRegistry(hub, log)
	tracker := presence.NewTracker(st, resolver, hub, log)
	hub.AttachPresence(tracker)
	pageService := pages.NewService(st, resolver, notifier, hub, log)

	a := &App{
		config:     config,
		store:      st,
		log:        log.With().Str("component", "app").Logger(),
		auth:       auth.New([]byte(config.JWTSecret), log),
		hub:        hub,
		notifier:   notifier,
		presence:   tracker,
		pages:      pageService,
		workspaces: workspace.NewService(st, pageService, log),
	}
	a.router = a.setupRoutes()
	return a
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", a.handleHealth).Methods("GET")
	r.Handle("/ws", a.auth.Middleware(http.HandlerFunc(a.hub.HandleConnection)))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(a.auth.Middleware)

	api.HandleFunc("/pages", a.handleCreatePage).Methods("POST")
	api.HandleFunc("/pages", a.handleListPages).Methods("GET")
	api.HandleFunc("/pages/{id}", a.handleGetPage).Methods("GET")
	api.HandleFunc("/pages/{id}", a.handleUpdatePage).Methods("PUT")
	api.HandleFunc("/pages/{id}", a.handleDeletePage).Methods("DELETE")
	api.HandleFunc("/pages/{id}/children", a.handlePageChildren).Methods("GET")
	api.HandleFunc("/pages/{id}/share", a.handleSharePage).Methods("POST")
	api.HandleFunc("/pages/{id}/share/{principal}", a.handleUnsharePage).Methods("DELETE")
	api.HandleFunc("/pages/{id}/publish", a.handlePublishPage).Methods("POST")
	api.HandleFunc("/pages/{id}/unpublish", a.handleUnpublishPage).Methods("POST")

	api.HandleFunc("/workspaces", a.handleCreateWorkspace).Methods("POST")
	api.HandleFunc("/workspaces", a.handleListWorkspaces).Methods("GET")
	api.HandleFunc("/workspaces/{id}", a.handleGetWorkspace).Methods("GET")
	api.HandleFunc("/workspaces/{id}", a.handleRenameWorkspace).Methods("PUT")
	api.HandleFunc("/workspaces/{id}", a.handleDeleteWorkspace).Methods("DELETE")
	api.HandleFunc("/workspaces/{id}/members", a.handleAddMember).Methods("POST")
	api.HandleFunc("/workspaces/{id}/members/{member}", a.handleRemoveMember).Methods("DELETE")
	api.HandleFunc("/workspaces/{id}/pages", a.handleAddRootPage).Methods("POST")
	api.HandleFunc("/workspaces/{id}/pages/{pageId}", a.handleRemoveRootPage).Methods("DELETE")

	api.HandleFunc("/dashboard", a.handleDashboard).Methods("GET")

	return r
}
