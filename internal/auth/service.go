// Package auth implements registration, login, and the refresh token
// lifecycle for tenant users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrSlugTaken          = errors.New("slug already taken")
	ErrEmailTaken         = errors.New("email already registered")

	// ErrProvisioningFailed marks a registration that committed its
	// tenant/user rows but could not create the tenant schema. The rows
	// are compensated away before it is returned.
	ErrProvisioningFailed = errors.New("workspace provisioning failed")
)

// Service wires the tenant registry, schema provisioner, and token
// manager into the auth flows.
type Service struct {
	store      *store.Store
	tokens     *TokenManager
	logger     *slog.Logger
	bcryptCost int
	trialDays  int
}

func NewService(s *store.Store, tokens *TokenManager, logger *slog.Logger, bcryptCost, trialDays int) *Service {
	return &Service{
		store:      s,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcryptCost,
		trialDays:  trialDays,
	}
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Slug         string
	BusinessName string
	ContactEmail string
	ContactPhone *string
	Timezone     string
	Currency     string
	OwnerName    string
	OwnerEmail   string
	Password     string
}

// TokenPair is what clients receive on register, login, and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RegisterResult bundles the created records with the initial tokens.
type RegisterResult struct {
	Tenant *models.Tenant `json:"tenant"`
	User   *models.User   `json:"user"`
	Tokens TokenPair      `json:"tokens"`
}

// Register creates the tenant row, its owner user, and the tenant
// schema. The row inserts share one transaction; schema provisioning
// happens after commit, and a provisioning failure rolls the rows back
// by hard-deleting them. If that cleanup also fails the orphan rows are
// logged for manual repair, never silently kept.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if _, err := s.store.GetTenantBySlug(ctx, in.Slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	registered, err := s.store.EmailRegistered(ctx, in.OwnerEmail)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	trialEnds := time.Now().AddDate(0, 0, s.trialDays)
	tenant := &models.Tenant{
		Slug:         in.Slug,
		BusinessName: in.BusinessName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Plan:         models.TenantPlanFree,
		Status:       models.TenantStatusTrial,
		TrialEndsAt:  &trialEnds,
		Timezone:     in.Timezone,
		Currency:     in.Currency,
	}
	owner := &models.User{
		Email:        in.OwnerEmail,
		PasswordHash: string(hash),
		Role:         models.RoleOwner,
		FullName:     in.OwnerName,
		IsActive:     true,
	}

	if err := s.store.CreateTenantWithOwner(ctx, tenant, owner); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	if err := s.store.Provision(ctx, tenant.ID); err != nil {
		s.logger.Error("schema provisioning failed, compensating registration",
			"tenant_id", tenant.ID, "slug", tenant.Slug, "error", err)
		s.compensate(ctx, tenant.ID, owner.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	tokens, err := s.issueTokens(ctx, owner, tenant.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant registered", "tenant_id", tenant.ID, "slug", tenant.Slug)
	return &RegisterResult{Tenant: tenant, User: owner, Tokens: tokens}, nil
}

// compensate removes the tenant and owner rows after a failed
// provisioning run. Best effort: a failure here leaves orphans behind,
// which is why both deletes are logged loudly.
func (s *Service) compensate(ctx context.Context, tenantID, ownerID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.DeleteUser(ctx, ownerID); err != nil {
		s.logger.Error("compensation failed, orphaned user row", "user_id", ownerID, "error", err)
	}
	if err := s.store.DeleteTenant(ctx, tenantID); err != nil {
		s.logger.Error("compensation failed, orphaned tenant row", "tenant_id", tenantID, "error", err)
	}
}

// LoginResult bundles the authenticated user with fresh tokens.
type LoginResult struct {
	User   *models.User `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// Login verifies the password and the account gates: the user must be
// active and the tenant must be in a status that permits logins.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	tenant, err := s.store.GetTenant(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanLogin() {
		return nil, ErrAccountDisabled
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented token is verified
// against its stored record, revoked, and replaced with a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	record, err := s.store.GetActiveRefreshToken(ctx, claims.TokenID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if record.UserID != claims.UserID || record.Token != refreshToken {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	tenant, err := s.store.GetTenant(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanLogin() {
		return nil, ErrAccountDisabled
	}

	if err := s.store.RevokeRefreshToken(ctx, record.ID); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Logout revokes the presented refresh token. Unknown or already
// revoked tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.store.RevokeRefreshToken(ctx, claims.TokenID)
}

// issueTokens creates the refresh token record first because the
// signed refresh JWT embeds its id, then fills in the token value.
func (s *Service) issueTokens(ctx context.Context, user *models.User, tenantID uuid.UUID) (TokenPair, error) {
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	tokenID, err := s.store.CreateRefreshToken(ctx, user.ID, expiresAt)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.tokens.SignRefresh(user.ID, tokenID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.SetRefreshTokenValue(ctx, tokenID, refresh); err != nil {
		return TokenPair{}, err
	}

	access, err := s.tokens.SignAccess(user.ID, tenantID, user.Email, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}
