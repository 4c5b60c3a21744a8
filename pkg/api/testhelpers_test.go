package api

import (
	"context"
	"database/sql"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/rbac"
	"github.com/bcforms/formgate/pkg/sso"
	"github.com/bcforms/formgate/pkg/tokens"
)

var (
	keysOnce sync.Once
	keyPair  *tokens.KeyPair
	keysErr  error
)

// fakeProvider stands in for the OIDC provider in handler tests
type fakeProvider struct {
	user *sso.FederatedUser
	err  error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*sso.FederatedUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type testEnv struct {
	server   *Server
	store    *rbac.Store
	tokens   *tokens.Service
	states   *sso.StateStore
	provider *fakeProvider
	db       *sql.DB
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			permissions TEXT NOT NULL DEFAULT '[]',
			is_system INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE user_roles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			assigned_by TEXT,
			assigned_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			user_id TEXT,
			old_values TEXT,
			new_values TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);
	`)
	require.NoError(t, err)

	store := rbac.NewStore(db)
	require.NoError(t, rbac.SeedDefaultRoles(context.Background(), store))

	keysOnce.Do(func() {
		keyPair, keysErr = tokens.GenerateKeyPair()
	})
	require.NoError(t, keysErr)
	tokenService := tokens.NewService(keyPair, tokens.Config{})

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	recorder, err := audit.NewRecorder(db, logger, nil)
	require.NoError(t, err)

	resolver := rbac.NewResolver(store)
	gate := rbac.NewGate(resolver, store, recorder, nil)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	states := sso.NewStateStore(redisClient, 0)

	provider := &fakeProvider{}
	provisioner := sso.NewProvisioner(store, tokenService, recorder, logger)

	server := NewServer(Deps{
		Store:       store,
		Resolver:    resolver,
		Gate:        gate,
		Tokens:      tokenService,
		Provider:    provider,
		States:      states,
		Provisioner: provisioner,
		Recorder:    recorder,
		Logger:      logger,
	})

	return &testEnv{
		server:   server,
		store:    store,
		tokens:   tokenService,
		states:   states,
		provider: provider,
		db:       db,
	}
}

// createUserWithRole creates a user and assigns the named system role
func (e *testEnv) createUserWithRole(t *testing.T, email, roleName string) *rbac.User {
	t.Helper()
	ctx := context.Background()

	user := &rbac.User{Email: email, Name: "Test User", IsActive: true}
	require.NoError(t, e.store.CreateUser(ctx, user))

	if roleName != "" {
		role, err := e.store.GetRoleByName(ctx, roleName)
		require.NoError(t, err)
		require.NoError(t, e.store.AssignRole(ctx, &rbac.RoleAssignment{UserID: user.ID, RoleID: role.ID}))
	}

	return user
}

// tokenFor issues a valid access token for the user with the given role names
func (e *testEnv) tokenFor(t *testing.T, user *rbac.User, roles ...string) string {
	t.Helper()
	token, err := e.tokens.IssueAccessToken(user.ID, user.Email, user.Name, roles, 0)
	require.NoError(t, err)
	return token
}

// doJSON performs a request against the router with an optional bearer token
func (e *testEnv) doJSON(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}
