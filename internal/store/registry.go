package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tenantColumns = `id, slug, business_name, contact_email, contact_phone, plan, status,
	trial_ends_at, subscription_starts_at, subscription_ends_at, settings, timezone, currency,
	created_at, updated_at, deleted_at`

const userColumns = `id, tenant_id, email, password_hash, role, full_name, phone,
	is_active, email_verified, last_login_at, created_at, updated_at, deleted_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.BusinessName, &t.ContactEmail, &t.ContactPhone,
		&t.Plan, &t.Status, &t.TrialEndsAt, &t.SubscriptionStartsAt, &t.SubscriptionEndsAt,
		&t.Settings, &t.Timezone, &t.Currency, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName,
		&u.Phone, &u.IsActive, &u.EmailVerified, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Tenants ---

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, err
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND deleted_at IS NULL`, slug))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return t, err
}

// EmailRegistered reports whether any non-deleted user anywhere holds
// this email. Registration enforces global uniqueness so login can
// resolve a user without a tenant hint.
func (s *Store) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email registered: %w", err)
	}
	return exists, nil
}

// CreateTenantWithOwner inserts the tenant and its owner user in a
// single transaction; both rows commit or neither does. The generated
// ids and timestamps are written back onto the models.
func (s *Store) CreateTenantWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tenants (slug, business_name, contact_email, contact_phone, plan, status,
			trial_ends_at, settings, timezone, currency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::jsonb), $9, $10)
		 RETURNING id, created_at, updated_at`,
		tenant.Slug, tenant.BusinessName, tenant.ContactEmail, tenant.ContactPhone,
		tenant.Plan, tenant.Status, tenant.TrialEndsAt, tenant.Settings,
		tenant.Timezone, tenant.Currency,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert tenant: %w", err)
	}

	owner.TenantID = tenant.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, password_hash, role, full_name, phone, is_active, email_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		owner.TenantID, owner.Email, owner.PasswordHash, owner.Role, owner.FullName,
		owner.Phone, owner.IsActive, owner.EmailVerified,
	).Scan(&owner.ID, &owner.CreatedAt, &owner.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert owner user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit registration transaction: %w", err)
	}
	return nil
}

// DeleteTenant hard-deletes a tenant row. Only used to compensate a
// failed provisioning run; normal tenant removal is a soft delete.
func (s *Store) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

// DeleteUser hard-deletes a user row (compensation path only).
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// --- Users ---

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, err
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// --- Refresh tokens ---

// CreateRefreshToken inserts a refresh token record and writes back its
// generated id. The token column is filled in afterwards via
// SetRefreshTokenValue because the signed JWT embeds the record id.
func (s *Store) CreateRefreshToken(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at, revoked)
		 VALUES ($1, '', $2, FALSE) RETURNING id`,
		userID, expiresAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create refresh token: %w", err)
	}
	return id, nil
}

func (s *Store) SetRefreshTokenValue(ctx context.Context, id uuid.UUID, token string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET token = $2, updated_at = NOW() WHERE id = $1`, id, token); err != nil {
		return fmt.Errorf("set refresh token value: %w", err)
	}
	return nil
}

// GetActiveRefreshToken returns the token record only if it is neither
// revoked nor expired.
func (s *Store) GetActiveRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, revoked, created_at, updated_at
		 FROM refresh_tokens
		 WHERE id = $1 AND revoked = FALSE AND expires_at > NOW()`, id,
	).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
