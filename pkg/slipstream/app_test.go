package slipstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream-app/slipstream/pkg/auth"
	"github.com/slipstream-app/slipstream/pkg/models"
	"github.com/slipstream-app/slipstream/pkg/store/memory"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.Authenticator) {
	t.Helper()
	config := &Config{ServerPort: "0", StoreBackend: "memory", JWTSecret: "test-secret"}
	app := NewApp(config, memory.New(), zerolog.Nop())
	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)
	return server, auth.New([]byte(config.JWTSecret), zerolog.Nop())
}

func tokenFor(t *testing.T, a *auth.Authenticator, principal string) string {
	t.Helper()
	token, err := a.Issue(principal, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, payload
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	status, _ := doRequest(t, server, "GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPageLifecycleOverHTTP(t *testing.T) {
	server, a := newTestServer(t)
	aliceToken := tokenFor(t, a, alice)
	bobToken := tokenFor(t, a, bob)

	// Anonymous creation is forbidden.
	status, _ := doRequest(t, server, "POST", "/api/pages", "", map[string]string{"title": "Notes"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := doRequest(t, server, "POST", "/api/pages", aliceToken, map[string]string{
		"title":   "Notes",
		"content": "v1",
	})
	require.Equal(t, http.StatusCreated, status)
	var page models.Page
	require.NoError(t, json.Unmarshal(body, &page))
	require.NotEmpty(t, page.ID)

	// bob has no grant yet.
	status, _ = doRequest(t, server, "GET", "/api/pages/"+page.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Share view with bob, then he can read but not write.
	status, _ = doRequest(t, server, "POST", "/api/pages/"+page.ID+"/share", aliceToken, map[string]string{
		"principal": bob,
		"level":     "view",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, server, "GET", "/api/pages/"+page.ID, bobToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, server, "PUT", "/api/pages/"+page.ID, bobToken, map[string]string{
		"title":   "Notes",
		"content": "bob was here",
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Publication opens anonymous reads.
	status, _ = doRequest(t, server, "GET", "/api/pages/"+page.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = doRequest(t, server, "POST", "/api/pages/"+page.ID+"/publish", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, server, "GET", "/api/pages/"+page.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, server, "DELETE", "/api/pages/"+page.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = doRequest(t, server, "GET", "/api/pages/"+page.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExpandedPageTree(t *testing.T) {
	server, a := newTestServer(t)
	aliceToken := tokenFor(t, a, alice)

	_, body := doRequest(t, server, "POST", "/api/pages", aliceToken, map[string]string{"title": "Root", "kind": "container"})
	var root models.Page
	require.NoError(t, json.Unmarshal(body, &root))

	_, body = doRequest(t, server, "POST", "/api/pages", aliceToken, map[string]string{"title": "Child", "parentId": root.ID})
	var child models.Page
	require.NoError(t, json.Unmarshal(body, &child))

	status, body := doRequest(t, server, "GET", "/api/pages/"+root.ID+"?expand=true", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	var tree models.TreeNode
	require.NoError(t, json.Unmarshal(body, &tree))
	assert.Equal(t, root.ID, tree.Page.ID)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, child.ID, tree.Children[0].Page.ID)
}

func TestWorkspaceAndDashboardOverHTTP(t *testing.T) {
	server, a := newTestServer(t)
	aliceToken := tokenFor(t, a, alice)

	status, body := doRequest(t, server, "POST", "/api/workspaces", aliceToken, map[string]string{"name": "Team"})
	require.Equal(t, http.StatusCreated, status)
	var ws models.Workspace
	require.NoError(t, json.Unmarshal(body, &ws))

	status, _ = doRequest(t, server, "POST", "/api/pages", aliceToken, map[string]string{
		"title":       "Handbook",
		"workspaceId": ws.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = doRequest(t, server, "GET", "/api/dashboard", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	var dashboard struct {
		Workspaces []struct {
			Workspace models.Workspace  `json:"workspace"`
			Pages     []models.TreeNode `json:"pages"`
		} `json:"workspaces"`
	}
	require.NoError(t, json.Unmarshal(body, &dashboard))
	require.Len(t, dashboard.Workspaces, 1)
	require.Len(t, dashboard.Workspaces[0].Pages, 1)
	assert.Equal(t, "Handbook", dashboard.Workspaces[0].Pages[0].Page.Title)
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg frame
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketCollaboration(t *testing.T) {
	server, a := newTestServer(t)
	aliceToken := tokenFor(t, a, alice)

	status, body := doRequest(t, server, "POST", "/api/pages", aliceToken, map[string]string{
		"title":   "Notes",
		"content": "v1",
	})
	require.Equal(t, http.StatusCreated, status)
	var page models.Page
	require.NoError(t, json.Unmarshal(body, &page))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + aliceToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Joining announces presence back to the joiner.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join", "pageId": page.ID}))
	presenceFrame := readFrame(t, conn)
	assert.Equal(t, fmt.Sprintf("pages/%s/presence", page.ID), presenceFrame.Topic)

	// Cursor messages are relayed to subscribers, including the sender.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "cursor",
		"pageId":   page.ID,
		"position": map[string]int{"line": 3},
	}))
	cursorFrame := readFrame(t, conn)
	assert.Equal(t, fmt.Sprintf("pages/%s/cursors", page.ID), cursorFrame.Topic)

	// An HTTP edit reaches the subscriber as a snapshot frame.
	status, _ = doRequest(t, server, "PUT", "/api/pages/"+page.ID, aliceToken, map[string]string{
		"title":   "Notes",
		"content": "v2",
	})
	require.Equal(t, http.StatusOK, status)
	pageFrame := readFrame(t, conn)
	assert.Equal(t, "pages/"+page.ID, pageFrame.Topic)
	payload, ok := pageFrame.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v2", payload["content"])
}
