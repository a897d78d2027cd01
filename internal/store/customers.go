package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, first_name, last_name, email, phone, address_line1, address_line2,
	city, state, postal_code, notes, custom_fields, created_at, updated_at, deleted_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.PostalCode,
		&c.Notes, &c.CustomFields, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type CustomerFilter struct {
	Search string
	Email  string
	Phone  string
	Limit  int
	Offset int
}

// NormalizePage clamps limit/offset the same way across all list queries.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (t *TenantStore) ListCustomers(ctx context.Context, filter CustomerFilter) ([]*models.Customer, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Email+"%")
		argIdx++
	}
	if filter.Phone != "" {
		conditions = append(conditions, fmt.Sprintf("phone ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Phone+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("customers"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		customerColumns, t.table("customers"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (t *TenantStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	c, err := scanCustomer(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		customerColumns, t.table("customers")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, err
}

func (t *TenantStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	var exists bool
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE phone = $1 AND deleted_at IS NULL)",
		t.table("customers")), c.Phone).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check duplicate phone: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: phone number already in use", ErrDuplicateKey)
	}

	if c.Email != nil && *c.Email != "" {
		err := t.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1 AND deleted_at IS NULL)",
			t.table("customers")), *c.Email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check duplicate email: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: email already in use", ErrDuplicateKey)
		}
	}

	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (first_name, last_name, email, phone, address_line1, address_line2,
			city, state, postal_code, notes, custom_fields)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, '{}'::jsonb))
		 RETURNING id, custom_fields, created_at, updated_at`, t.table("customers")),
		c.FirstName, c.LastName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.PostalCode, c.Notes, c.CustomFields,
	).Scan(&c.ID, &c.CustomFields, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// CustomerUpdate carries optional field changes; nil means "leave as is".
type CustomerUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	PostalCode   *string
	Notes        *string
	CustomFields []byte
}

func (t *TenantStore) UpdateCustomer(ctx context.Context, id uuid.UUID, in CustomerUpdate) (*models.Customer, error) {
	existing, err := t.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Phone != nil && *in.Phone != existing.Phone {
		var dup bool
		err := t.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE phone = $1 AND id <> $2 AND deleted_at IS NULL)",
			t.table("customers")), *in.Phone, id).Scan(&dup)
		if err != nil {
			return nil, fmt.Errorf("check duplicate phone: %w", err)
		}
		if dup {
			return nil, fmt.Errorf("%w: phone number already in use", ErrDuplicateKey)
		}
	}
	if in.Email != nil && *in.Email != "" && (existing.Email == nil || *in.Email != *existing.Email) {
		var dup bool
		err := t.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1 AND id <> $2 AND deleted_at IS NULL)",
			t.table("customers")), *in.Email, id).Scan(&dup)
		if err != nil {
			return nil, fmt.Errorf("check duplicate email: %w", err)
		}
		if dup {
			return nil, fmt.Errorf("%w: email already in use", ErrDuplicateKey)
		}
	}

	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.FirstName != nil {
		add("first_name", *in.FirstName)
	}
	if in.LastName != nil {
		add("last_name", *in.LastName)
	}
	if in.Email != nil {
		set = append(set, fmt.Sprintf("email = NULLIF($%d, '')", argIdx))
		args = append(args, *in.Email)
		argIdx++
	}
	if in.Phone != nil {
		add("phone", *in.Phone)
	}
	if in.AddressLine1 != nil {
		add("address_line1", *in.AddressLine1)
	}
	if in.AddressLine2 != nil {
		add("address_line2", *in.AddressLine2)
	}
	if in.City != nil {
		add("city", *in.City)
	}
	if in.State != nil {
		add("state", *in.State)
	}
	if in.PostalCode != nil {
		add("postal_code", *in.PostalCode)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}
	if in.CustomFields != nil {
		add("custom_fields", in.CustomFields)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("customers"), strings.Join(set, ", "), customerColumns)

	c, err := scanCustomer(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return c, err
}

// SoftDeleteCustomer marks a customer deleted. Customers with live
// vehicles or jobs cannot be deleted; the dependents must go first.
func (t *TenantStore) SoftDeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if _, err := t.GetCustomer(ctx, id); err != nil {
		return err
	}

	var vehicleCount int
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE customer_id = $1 AND deleted_at IS NULL",
		t.table("vehicles")), id).Scan(&vehicleCount)
	if err != nil {
		return fmt.Errorf("count customer vehicles: %w", err)
	}
	if vehicleCount > 0 {
		return fmt.Errorf("%w: customer has %d active vehicle(s)", ErrConflict, vehicleCount)
	}

	var jobCount int
	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE customer_id = $1 AND deleted_at IS NULL",
		t.table("jobs")), id).Scan(&jobCount)
	if err != nil {
		return fmt.Errorf("count customer jobs: %w", err)
	}
	if jobCount > 0 {
		return fmt.Errorf("%w: customer has %d active job(s)", ErrConflict, jobCount)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		t.table("customers")), id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
