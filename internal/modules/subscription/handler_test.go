package subscription

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/response"
)

// testAuth stands in for the JWKS middleware: identity comes from
// request headers so tests control the claims directly.
func testAuth(c *gin.Context) {
	uid := c.GetHeader("X-Test-User")
	if uid == "" {
		response.Unauthorized(c)
		return
	}
	c.Set(middleware.ContextKeyUserID, uid)
	c.Set(middleware.ContextKeyEmail, c.GetHeader("X-Test-Email"))
	c.Next()
}

func newTestRouter(store Store) *gin.Engine {
	return newTestRouterWithLogger(store, zap.NewNop())
}

func newTestRouterWithLogger(store Store, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	mgr := NewManager(store, &fakeTopic{}, zap.NewNop())
	NewHandler(mgr, log).RegisterRoutes(api, testAuth)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, uid, email string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-Test-User", uid)
	}
	if email != "" {
		req.Header.Set("X-Test-Email", email)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRejectAnonymous(t *testing.T) {
	r := newTestRouter(newFakeStore())

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/subscriptions/auto"},
		{http.MethodGet, "/api/v1/subscriptions/status"},
		{http.MethodPost, "/api/v1/subscriptions"},
		{http.MethodPut, "/api/v1/subscriptions/toggle"},
	} {
		w := doJSON(t, r, tc.method, tc.path, "", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, w.Body.String(), "not authenticated")
	}
}

func TestAutoSubscribeEndpoint(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/auto", "", "u1", "u1@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1@example.com")
	assert.True(t, store.recs["u1"].Subscribed)
}

func TestAutoSubscribeWithoutEmailClaim(t *testing.T) {
	r := newTestRouter(newFakeStore())

	w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/auto", "", "u1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusEndpointAbsent(t *testing.T) {
	r := newTestRouter(newFakeStore())

	w := doJSON(t, r, http.MethodGet, "/api/v1/subscriptions/status", "", "u1", "u1@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed": false, "email": null}`, w.Body.String())
}

func TestSubscribeEndpoint(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{UserID: "u1", Email: "u1@example.com", Subscribed: false}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions", "", "u1", "u1@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscribed":true`)
	assert.True(t, store.recs["u1"].Subscribed)
}

func TestToggleEndpoint(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{UserID: "u1", Email: "u1@example.com", Subscribed: true}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPut, "/api/v1/subscriptions/toggle", `{"enabled": false}`, "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscribed":false`)
	assert.False(t, store.recs["u1"].Subscribed)
}

func TestToggleRejectsNonBoolean(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{UserID: "u1", Email: "u1@example.com", Subscribed: true}
	r := newTestRouter(store)

	for _, body := range []string{``, `{}`, `{"enabled": "yes"}`, `{"enabled": 1}`} {
		w := doJSON(t, r, http.MethodPut, "/api/v1/subscriptions/toggle", body, "u1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%q", body)
		assert.Contains(t, w.Body.String(), "enabled must be a boolean")
	}
	assert.True(t, store.recs["u1"].Subscribed, "invalid payloads must not mutate state")
}

func TestDependencyFailuresAreLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{UserID: "u1", Email: "u1@example.com", Subscribed: true}
	store.err = errors.New("dial tcp 10.0.0.5:3306: connection refused")
	r := newTestRouterWithLogger(store, zap.New(core))

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/subscriptions/auto", ""},
		{http.MethodGet, "/api/v1/subscriptions/status", ""},
		{http.MethodPost, "/api/v1/subscriptions", ""},
		{http.MethodPut, "/api/v1/subscriptions/toggle", `{"enabled": true}`},
	} {
		w := doJSON(t, r, tc.method, tc.path, tc.body, "u1", "u1@example.com")
		assert.Equal(t, http.StatusInternalServerError, w.Code, "%s %s", tc.method, tc.path)
		assert.NotContains(t, w.Body.String(), "connection refused",
			"%s %s must not leak the cause", tc.method, tc.path)

		entries := logs.TakeAll()
		require.NotEmpty(t, entries, "%s %s must log the cause server-side", tc.method, tc.path)
		fields := entries[0].ContextMap()
		assert.Contains(t, fields["error"], "connection refused")
	}
}

func TestToggleWithoutRecord(t *testing.T) {
	r := newTestRouter(newFakeStore())

	w := doJSON(t, r, http.MethodPut, "/api/v1/subscriptions/toggle", `{"enabled": true}`, "ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no subscription found, must subscribe first")
}
