package auth_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupService(t *testing.T) (*auth.Service, *store.Store, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("curbside_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pgContainer.Terminate(ctx)) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, filename, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
	require.NoError(t, store.RunMigrations(connStr, migrations))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	s := store.New(pool)
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	// Minimum bcrypt cost keeps the test fast.
	svc := auth.NewService(s, tokens, slog.Default(), 10, 14)
	return svc, s, pool
}

func registerInput(slug string) auth.RegisterInput {
	return auth.RegisterInput{
		Slug:         slug,
		BusinessName: "Test Shop",
		ContactEmail: slug + "@example.com",
		Timezone:     "UTC",
		Currency:     "USD",
		OwnerName:    "Pat Owner",
		OwnerEmail:   "owner@" + slug + ".example.com",
		Password:     "correct horse battery staple",
	}
}

func TestRegister_ProvisionsTenant(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, s, _ := setupService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, registerInput("acme"))
	require.NoError(t, err)
	assert.Equal(t, "acme", result.Tenant.Slug)
	assert.Equal(t, "trial", result.Tenant.Status)
	require.NotNil(t, result.Tenant.TrialEndsAt)
	assert.Equal(t, "owner", result.User.Role)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	exists, err := s.SchemaExists(ctx, result.Tenant.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegister_SlugTaken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("acme"))
	require.NoError(t, err)

	in := registerInput("acme")
	in.OwnerEmail = "someone-else@example.com"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, auth.ErrSlugTaken)
}

func TestRegister_EmailTaken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	first := registerInput("acme")
	_, err := svc.Register(ctx, first)
	require.NoError(t, err)

	second := registerInput("other-shop")
	second.OwnerEmail = first.OwnerEmail
	_, err = svc.Register(ctx, second)
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestLogin_Success(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	in := registerInput("acme")
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	result, err := svc.Login(ctx, in.OwnerEmail, in.Password)
	require.NoError(t, err)
	assert.Equal(t, in.OwnerEmail, result.User.Email)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	in := registerInput("acme")
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	_, err = svc.Login(ctx, in.OwnerEmail, "wrong password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, registerInput("acme"))
	require.NoError(t, err)
	oldRefresh := result.Tokens.RefreshToken

	pair, err := svc.Refresh(ctx, oldRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, oldRefresh, pair.RefreshToken)

	// The old token was revoked by the rotation.
	_, err = svc.Refresh(ctx, oldRefresh)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogout_RevokesRefresh(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, registerInput("acme"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Tokens.RefreshToken))

	_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogout_GarbageTokenIsNoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, _, _ := setupService(t)

	err := svc.Logout(context.Background(), "not-a-token")
	assert.NoError(t, err)
}

func TestRegister_ProvisioningFailureCompensates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, s, pool := setupService(t)
	ctx := context.Background()

	// Block CREATE SCHEMA so provisioning fails after the tenant and
	// owner rows have committed.
	_, err := pool.Exec(ctx, `CREATE FUNCTION fail_schema_create() RETURNS event_trigger
		LANGUAGE plpgsql AS $$ BEGIN RAISE EXCEPTION 'schema creation disabled'; END $$`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `CREATE EVENT TRIGGER block_create_schema ON ddl_command_start
		WHEN TAG IN ('CREATE SCHEMA') EXECUTE FUNCTION fail_schema_create()`)
	require.NoError(t, err)

	in := registerInput("acme")
	_, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, auth.ErrProvisioningFailed)

	// Compensation removed both committed rows.
	_, err = s.GetTenantBySlug(ctx, "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
	registered, err := s.EmailRegistered(ctx, in.OwnerEmail)
	require.NoError(t, err)
	assert.False(t, registered)

	// With the trigger removed the same registration goes through.
	_, err = pool.Exec(ctx, "DROP EVENT TRIGGER block_create_schema")
	require.NoError(t, err)
	result, err := svc.Register(ctx, in)
	require.NoError(t, err)
	exists, err := s.SchemaExists(ctx, result.Tenant.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
