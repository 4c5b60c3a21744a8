package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bcforms/formgate/pkg/catalog"
	"github.com/bcforms/formgate/pkg/contextkeys"
	"github.com/bcforms/formgate/pkg/tokens"
)

func doRequest(t *testing.T, handler http.Handler, principal *tokens.Principal) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if principal != nil {
		ctx := context.WithValue(req.Context(), contextkeys.PrincipalKey, principal)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_RequirePermission(t *testing.T) {
	gate, store, _, _ := setupGate(t)
	mw := NewMiddleware(gate)

	user := createTestUser(t, store, "a@example.com")
	editor := createTestRole(t, store, "editor", catalog.FormEdit)
	assignTestRole(t, store, user.ID, editor.ID)

	handler := mw.RequirePermission("forms", "update")(okHandler())

	rec := doRequest(t, handler, principalFor(user))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingPrincipal(t *testing.T) {
	gate, _, _, _ := setupGate(t)
	mw := NewMiddleware(gate)

	handler := mw.RequirePermission("forms", "read")(okHandler())

	rec := doRequest(t, handler, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_Denied(t *testing.T) {
	gate, store, _, _ := setupGate(t)
	mw := NewMiddleware(gate)

	user := createTestUser(t, store, "a@example.com")

	handler := mw.RequirePermission("forms", "delete")(okHandler())

	rec := doRequest(t, handler, principalFor(user))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware_UnknownPermissionIsServerError(t *testing.T) {
	gate, store, _, _ := setupGate(t)
	mw := NewMiddleware(gate)

	user := createTestUser(t, store, "a@example.com")

	handler := mw.RequirePermission("widgets", "read")(okHandler())

	rec := doRequest(t, handler, principalFor(user))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMiddleware_RequireAnyAndAll(t *testing.T) {
	gate, store, _, _ := setupGate(t)
	mw := NewMiddleware(gate)

	user := createTestUser(t, store, "a@example.com")
	reviewer := createTestRole(t, store, "reviewer", catalog.FormRead, catalog.FormReview)
	assignTestRole(t, store, user.ID, reviewer.ID)

	anyHandler := mw.RequireAny(catalog.FormCreate, catalog.FormReview)(okHandler())
	rec := doRequest(t, anyHandler, principalFor(user))
	assert.Equal(t, http.StatusOK, rec.Code)

	allHandler := mw.RequireAll(catalog.FormRead, catalog.FormCreate)(okHandler())
	rec = doRequest(t, allHandler, principalFor(user))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
