package slipstream

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/slipstream-app/slipstream/pkg/auth"
	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/pages"
	"github.com/slipstream-app/slipstream/pkg/store"
	"github.com/slipstream-app/slipstream/pkg/workspace"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses.
func (a *App) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pages.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrInvalidAccessLevel),
		errors.Is(err, models.ErrUnsupportedOperation),
		errors.Is(err, workspace.ErrPageNested),
		errors.Is(err, workspace.ErrOwnerImmutable):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		a.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createPageRequest struct {
	Kind        models.PageKind `json:"kind"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	ParentID    string          `json:"parentId"`
	WorkspaceID string          `json:"workspaceId"`
}

func (a *App) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal := auth.PrincipalFromContext(r.Context())

	var page *models.Page
	var err error
	switch req.Kind {
	case models.KindContainer:
		page, err = a.pages.CreateContainerPage(r.Context(), principal, req.Title, req.Content, req.ParentID, req.WorkspaceID)
	case models.KindContent, "":
		page, err = a.pages.CreateContentPage(r.Context(), principal, req.Title, req.Content, req.ParentID, req.WorkspaceID)
	default:
		respondError(w, http.StatusBadRequest, "Invalid page kind")
		return
	}
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

func (a *App) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	principal := auth.PrincipalFromContext(r.Context())

	if r.URL.Query().Get("expand") == "true" {
		page, err := a.pages.GetSubtree(r.Context(), principal, id)
		if err != nil {
			a.respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, treeOf(page))
		return
	}

	page, err := a.pages.Get(r.Context(), principal, id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// treeOf converts a page with resolved children into a serializable tree.
func treeOf(page *models.Page) *models.TreeNode {
	node := &models.TreeNode{Page: page}
	for _, child := range page.Children() {
		node.Children = append(node.Children, treeOf(child))
	}
	return node
}

type updatePageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *App) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	page, err := a.pages.Update(r.Context(), auth.PrincipalFromContext(r.Context()), id, req.Title, req.Content)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.pages.Delete(r.Context(), auth.PrincipalFromContext(r.Context()), id); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handlePageChildren(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	children, err := a.pages.Children(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if children == nil {
		children = []*models.Page{}
	}
	respondJSON(w, http.StatusOK, children)
}

func (a *App) handleListPages(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	ctx := r.Context()

	var list []*models.Page
	var err error
	switch r.URL.Query().Get("filter") {
	case "owned":
		list, err = a.pages.ListOwned(ctx, principal)
	case "shared":
		list, err = a.pages.ListSharedWith(ctx, principal)
	case "", "accessible":
		list, err = a.pages.ListAccessible(ctx, principal)
	default:
		respondError(w, http.StatusBadRequest, "Invalid filter")
		return
	}
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Page{}
	}
	respondJSON(w, http.StatusOK, list)
}

type shareRequest struct {
	Principal string             `json:"principal"`
	Level     models.AccessLevel `json:"level"`
}

func (a *App) handleSharePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	page, err := a.pages.Share(r.Context(), auth.PrincipalFromContext(r.Context()), id, req.Principal, req.Level)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleUnsharePage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	page, err := a.pages.Unshare(r.Context(), auth.PrincipalFromContext(r.Context()), vars["id"], vars["principal"])
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *App) handlePublishPage(w http.ResponseWriter, r *http.Request) {
	a.setPublished(w, r, true)
}

func (a *App) handleUnpublishPage(w http.ResponseWriter, r *http.Request) {
	a.setPublished(w, r, false)
}

func (a *App) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	id := mux.Vars(r)["id"]
	page, err := a.pages.SetPublished(r.Context(), auth.PrincipalFromContext(r.Context()), id, published)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

func (a *App) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ws, err := a.workspaces.Create(r.Context(), auth.PrincipalFromContext(r.Context()), req.Name)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ws)
}

func (a *App) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := a.workspaces.List(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Workspace{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (a *App) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := a.workspaces.Get(r.Context(), auth.PrincipalFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (a *App) handleRenameWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ws, err := a.workspaces.Rename(r.Context(), auth.PrincipalFromContext(r.Context()), mux.Vars(r)["id"], req.Name)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (a *App) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := a.workspaces.Delete(r.Context(), auth.PrincipalFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type memberRequest struct {
	Principal string `json:"principal"`
}

func (a *App) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ws, err := a.workspaces.AddMember(r.Context(), auth.PrincipalFromContext(r.Context()), mux.Vars(r)["id"], req.Principal)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (a *App) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ws, err := a.workspaces.RemoveMember(r.Context(), auth.PrincipalFromContext(r.Context()), vars["id"], vars["member"])
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

type rootPageRequest struct {
	PageID string `json:"pageId"`
}

func (a *App) handleAddRootPage(w http.ResponseWriter, r *http.Request) {
	var req rootPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ws, err := a.workspaces.AddRootPage(r.Context(), auth.PrincipalFromContext(r.Context()), mux.Vars(r)["id"], req.PageID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (a *App) handleRemoveRootPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ws, err := a.workspaces.RemoveRootPage(r.Context(), auth.PrincipalFromContext(r.Context()), vars["id"], vars["pageId"])
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.workspaces.Dashboard(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}
