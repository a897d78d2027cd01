package store

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaName builds the schema identifier for a tenant. The id must be
// a well-formed UUID; it is the only input ever interpolated into DDL
// or query text, so it is validated here and nowhere else.
func schemaName(tenantID uuid.UUID) (string, error) {
	if tenantID == uuid.Nil {
		return "", ErrInvalidTenantID
	}
	// Round-trip through the canonical form so the identifier can only
	// ever contain hex digits and hyphens.
	parsed, err := uuid.Parse(tenantID.String())
	if err != nil || parsed != tenantID {
		return "", ErrInvalidTenantID
	}
	return "tenant_" + parsed.String(), nil
}

// TenantStore executes queries against a single tenant's schema. Every
// statement carries the schema qualification; nothing is bound to the
// connection or session, so concurrent requests for different tenants
// can share the pool safely.
type TenantStore struct {
	pool   *pgxpool.Pool
	schema string
}

// ForTenant returns a TenantStore scoped to the given tenant's schema.
// The tenant id is validated before it is ever used in query text.
func (s *Store) ForTenant(tenantID uuid.UUID) (*TenantStore, error) {
	schema, err := schemaName(tenantID)
	if err != nil {
		return nil, err
	}
	return &TenantStore{pool: s.pool, schema: schema}, nil
}

// Schema returns the quoted schema identifier, e.g. "tenant_<uuid>".
func (t *TenantStore) Schema() string {
	return t.schema
}

// table returns the fully qualified, quoted identifier for a table in
// this tenant's schema.
func (t *TenantStore) table(name string) string {
	return pgx.Identifier{t.schema, name}.Sanitize()
}
