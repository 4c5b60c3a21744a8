package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcforms/formgate/pkg/catalog"
)

func TestResolver_NoAssignments(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	resolver := NewResolver(store)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")

	resolved, err := resolver.ResolvePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	for _, p := range catalog.All() {
		ok, err := resolver.HasPermission(ctx, user.ID, p)
		require.NoError(t, err)
		assert.False(t, ok, "expected no permission %s", p)
	}
}

func TestResolver_UnknownPrincipalIsEmptySet(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(NewStore(db))
	ctx := context.Background()

	resolved, err := resolver.ResolvePermissions(ctx, "no-such-user")
	require.NoError(t, err)
	assert.Empty(t, resolved)

	resolved, err = resolver.ResolvePermissions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolver_UnionAcrossRoles(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	resolver := NewResolver(store)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	reader := createTestRole(t, store, "reader", catalog.FormRead)
	editor := createTestRole(t, store, "editor", catalog.FormRead, catalog.FormEdit)
	assignTestRole(t, store, user.ID, reader.ID)
	assignTestRole(t, store, user.ID, editor.ID)

	resolved, err := resolver.ResolvePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, resolved, catalog.FormRead)
	assert.Contains(t, resolved, catalog.FormEdit)
	assert.Len(t, resolved, 2)
}

func TestResolver_InheritanceClosure(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	resolver := NewResolver(store)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	deleter := createTestRole(t, store, "deleter", catalog.FormDelete)
	assignTestRole(t, store, user.ID, deleter.ID)

	resolved, err := resolver.ResolvePermissions(ctx, user.ID)
	require.NoError(t, err)

	// form:delete implies form:edit.
	assert.Contains(t, resolved, catalog.FormDelete)
	assert.Contains(t, resolved, catalog.FormEdit)
}

func TestResolver_RevocationTakesEffectImmediately(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	resolver := NewResolver(store)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	editor := createTestRole(t, store, "editor", catalog.FormEdit)
	assignTestRole(t, store, user.ID, editor.ID)

	ok, err := resolver.HasPermission(ctx, user.ID, catalog.FormEdit)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.RevokeRole(ctx, user.ID, editor.ID))

	ok, err = resolver.HasPermission(ctx, user.ID, catalog.FormEdit)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_HasAnyHasAll(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	resolver := NewResolver(store)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	reviewer := createTestRole(t, store, "reviewer",
		catalog.FormRead, catalog.FormReview, catalog.FormApprove)
	assignTestRole(t, store, user.ID, reviewer.ID)

	ok, err := resolver.HasAll(ctx, user.ID, catalog.FormRead, catalog.FormCreate)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = resolver.HasAny(ctx, user.ID, catalog.FormCreate, catalog.FormReview)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.HasAll(ctx, user.ID, catalog.FormRead, catalog.FormReview)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.HasAny(ctx, user.ID, catalog.FormCreate, catalog.FormDelete)
	require.NoError(t, err)
	assert.False(t, ok)
}
