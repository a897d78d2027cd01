package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// tenantTables holds the DDL for every table in a tenant schema, in
// dependency order. Statements run with search_path set to the tenant
// schema, so foreign keys resolve inside that schema and never across
// tenants.
var tenantTables = []struct {
	name string
	ddl  string
}{
	{"customers", `
		CREATE TABLE customers (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			first_name    VARCHAR(100) NOT NULL,
			last_name     VARCHAR(100) NOT NULL,
			email         VARCHAR(255),
			phone         VARCHAR(50) NOT NULL,
			address_line1 VARCHAR(255),
			address_line2 VARCHAR(255),
			city          VARCHAR(100),
			state         VARCHAR(50),
			postal_code   VARCHAR(20),
			notes         TEXT,
			custom_fields JSONB NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at    TIMESTAMPTZ
		);
		CREATE INDEX customers_email_idx ON customers (email);
		CREATE INDEX customers_phone_idx ON customers (phone)`},
	{"fleets", `
		CREATE TABLE fleets (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name          VARCHAR(255) NOT NULL,
			customer_id   UUID REFERENCES customers (id),
			contact_name  VARCHAR(255),
			contact_email VARCHAR(255),
			contact_phone VARCHAR(50),
			notes         TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at    TIMESTAMPTZ
		);
		CREATE INDEX fleets_customer_id_idx ON fleets (customer_id)`},
	{"vehicles", `
		CREATE TABLE vehicles (
			id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			customer_id         UUID NOT NULL REFERENCES customers (id) ON DELETE CASCADE,
			fleet_id            UUID REFERENCES fleets (id),
			vin                 VARCHAR(17) UNIQUE,
			year                VARCHAR(4) NOT NULL,
			make                VARCHAR(100) NOT NULL,
			model               VARCHAR(100) NOT NULL,
			trim                VARCHAR(100),
			color               VARCHAR(50),
			license_plate       VARCHAR(50),
			license_plate_state VARCHAR(2),
			odometer            INTEGER,
			engine              VARCHAR(100),
			transmission        VARCHAR(100),
			notes               TEXT,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at          TIMESTAMPTZ
		);
		CREATE INDEX vehicles_customer_id_idx ON vehicles (customer_id);
		CREATE INDEX vehicles_fleet_id_idx ON vehicles (fleet_id);
		CREATE INDEX vehicles_license_plate_idx ON vehicles (license_plate)`},
	{"job_templates", `
		CREATE TABLE job_templates (
			id                           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name                         VARCHAR(255) NOT NULL,
			slug                         VARCHAR(255) NOT NULL UNIQUE,
			description                  TEXT,
			category                     VARCHAR(100),
			default_labor_minutes        NUMERIC(10,2) NOT NULL DEFAULT 0,
			default_labor_rate           NUMERIC(10,2) NOT NULL DEFAULT 0,
			default_parts_markup_percent NUMERIC(5,2) NOT NULL DEFAULT 30,
			steps                        JSONB NOT NULL DEFAULT '[]',
			required_parts               JSONB NOT NULL DEFAULT '[]',
			checklist_items              JSONB NOT NULL DEFAULT '[]',
			is_active                    BOOLEAN NOT NULL DEFAULT TRUE,
			is_global                    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at                   TIMESTAMPTZ
		);
		CREATE INDEX job_templates_category_idx ON job_templates (category)`},
	{"jobs", `
		CREATE TABLE jobs (
			id                         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			customer_id                UUID NOT NULL REFERENCES customers (id),
			vehicle_id                 UUID NOT NULL REFERENCES vehicles (id),
			job_template_id            UUID REFERENCES job_templates (id),
			assigned_mechanic_id       UUID,
			job_number                 VARCHAR(50) NOT NULL UNIQUE,
			title                      VARCHAR(255) NOT NULL,
			description                TEXT,
			status                     VARCHAR(20) NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft','estimate','scheduled','in_progress','completed','cancelled','on_hold')),
			scheduled_start            TIMESTAMPTZ,
			scheduled_end              TIMESTAMPTZ,
			actual_start               TIMESTAMPTZ,
			actual_end                 TIMESTAMPTZ,
			estimated_duration_minutes INTEGER,
			service_location_address   VARCHAR(500),
			service_location_lat       NUMERIC(10,7),
			service_location_lng       NUMERIC(10,7),
			labor_minutes              NUMERIC(10,2) NOT NULL DEFAULT 0,
			labor_rate                 NUMERIC(10,2) NOT NULL DEFAULT 0,
			parts_total                NUMERIC(10,2) NOT NULL DEFAULT 0,
			tax_rate                   NUMERIC(5,2) NOT NULL DEFAULT 0,
			discount_amount            NUMERIC(10,2) NOT NULL DEFAULT 0,
			total                      NUMERIC(10,2) NOT NULL DEFAULT 0,
			template_snapshot          JSONB NOT NULL DEFAULT '{}',
			completed_steps            JSONB NOT NULL DEFAULT '[]',
			checklist_results          JSONB NOT NULL DEFAULT '[]',
			notes                      TEXT,
			created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at                 TIMESTAMPTZ
		);
		CREATE INDEX jobs_customer_id_idx ON jobs (customer_id);
		CREATE INDEX jobs_vehicle_id_idx ON jobs (vehicle_id);
		CREATE INDEX jobs_status_idx ON jobs (status);
		CREATE INDEX jobs_scheduled_start_idx ON jobs (scheduled_start)`},
	{"parts", `
		CREATE TABLE parts (
			id                       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			part_number              VARCHAR(100) NOT NULL,
			name                     VARCHAR(255) NOT NULL,
			description              TEXT,
			category                 VARCHAR(100),
			manufacturer             VARCHAR(100),
			manufacturer_part_number VARCHAR(100),
			default_cost             NUMERIC(10,2) NOT NULL DEFAULT 0,
			default_price            NUMERIC(10,2) NOT NULL DEFAULT 0,
			minimum_stock            INTEGER NOT NULL DEFAULT 0,
			reorder_point            INTEGER NOT NULL DEFAULT 0,
			specifications           JSONB NOT NULL DEFAULT '{}',
			is_active                BOOLEAN NOT NULL DEFAULT TRUE,
			created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at               TIMESTAMPTZ
		);
		CREATE INDEX parts_part_number_idx ON parts (part_number);
		CREATE INDEX parts_category_idx ON parts (category)`},
	{"inventory_items", `
		CREATE TABLE inventory_items (
			id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			part_id            UUID NOT NULL REFERENCES parts (id),
			location           VARCHAR(100) NOT NULL,
			quantity_on_hand   INTEGER NOT NULL DEFAULT 0,
			quantity_allocated INTEGER NOT NULL DEFAULT 0,
			bin_location       VARCHAR(100),
			notes              TEXT,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at         TIMESTAMPTZ,
			UNIQUE (part_id, location)
		);
		CREATE INDEX inventory_items_location_idx ON inventory_items (location)`},
	{"job_parts", `
		CREATE TABLE job_parts (
			id                   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			job_id               UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
			part_id              UUID NOT NULL REFERENCES parts (id),
			inventory_item_id    UUID REFERENCES inventory_items (id),
			quantity             INTEGER NOT NULL DEFAULT 1,
			unit_cost            NUMERIC(10,2) NOT NULL DEFAULT 0,
			unit_price           NUMERIC(10,2) NOT NULL DEFAULT 0,
			subtotal             NUMERIC(10,2) NOT NULL DEFAULT 0,
			is_customer_supplied BOOLEAN NOT NULL DEFAULT FALSE,
			notes                TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX job_parts_job_id_idx ON job_parts (job_id);
		CREATE INDEX job_parts_part_id_idx ON job_parts (part_id)`},
	{"trust_artifacts", `
		CREATE TABLE trust_artifacts (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			job_id          UUID REFERENCES jobs (id) ON DELETE CASCADE,
			vehicle_id      UUID REFERENCES vehicles (id),
			type            VARCHAR(20) NOT NULL
				CHECK (type IN ('photo','video','inspection','summary')),
			title           VARCHAR(255),
			description     TEXT,
			file_url        VARCHAR(500),
			blob_name       VARCHAR(500),
			mime_type       VARCHAR(100),
			file_size       BIGINT NOT NULL DEFAULT 0,
			inspection_data JSONB NOT NULL DEFAULT '{}',
			captured_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			captured_by     UUID,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at      TIMESTAMPTZ
		);
		CREATE INDEX trust_artifacts_job_id_idx ON trust_artifacts (job_id);
		CREATE INDEX trust_artifacts_vehicle_id_idx ON trust_artifacts (vehicle_id);
		CREATE INDEX trust_artifacts_type_idx ON trust_artifacts (type)`},
	{"route_plans", `
		CREATE TABLE route_plans (
			id                         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			assigned_mechanic_id       UUID NOT NULL,
			route_date                 DATE NOT NULL,
			stops                      JSONB NOT NULL DEFAULT '[]',
			total_distance_miles       NUMERIC(10,2) NOT NULL DEFAULT 0,
			estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
			status                     VARCHAR(20) NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft','active','completed','cancelled')),
			created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX route_plans_mechanic_idx ON route_plans (assigned_mechanic_id);
		CREATE INDEX route_plans_date_idx ON route_plans (route_date)`},
	{"invoices", `
		CREATE TABLE invoices (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			customer_id     UUID NOT NULL REFERENCES customers (id),
			invoice_number  VARCHAR(50) NOT NULL UNIQUE,
			job_ids         UUID[] NOT NULL DEFAULT '{}',
			subtotal        NUMERIC(10,2) NOT NULL,
			tax_amount      NUMERIC(10,2) NOT NULL DEFAULT 0,
			discount_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			total           NUMERIC(10,2) NOT NULL,
			amount_paid     NUMERIC(10,2) NOT NULL DEFAULT 0,
			amount_due      NUMERIC(10,2) NOT NULL,
			status          VARCHAR(20) NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft','sent','paid','partial','overdue','cancelled')),
			issue_date      DATE NOT NULL,
			due_date        DATE NOT NULL,
			paid_at         TIMESTAMPTZ,
			notes           TEXT,
			terms           TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at      TIMESTAMPTZ
		);
		CREATE INDEX invoices_customer_id_idx ON invoices (customer_id);
		CREATE INDEX invoices_status_idx ON invoices (status)`},
	{"payments", `
		CREATE TABLE payments (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			invoice_id       UUID NOT NULL REFERENCES invoices (id),
			customer_id      UUID NOT NULL REFERENCES customers (id),
			amount           NUMERIC(10,2) NOT NULL,
			method           VARCHAR(20) NOT NULL
				CHECK (method IN ('cash','check','card','stripe','other')),
			status           VARCHAR(20) NOT NULL DEFAULT 'completed'
				CHECK (status IN ('pending','completed','failed','refunded')),
			payment_date     DATE NOT NULL,
			reference_number VARCHAR(100),
			notes            TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX payments_invoice_id_idx ON payments (invoice_id);
		CREATE INDEX payments_payment_date_idx ON payments (payment_date)`},
	{"memberships", `
		CREATE TABLE memberships (
			id                          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			customer_id                 UUID NOT NULL REFERENCES customers (id),
			plan_name                   VARCHAR(255) NOT NULL,
			monthly_fee                 NUMERIC(10,2) NOT NULL,
			included_services_per_month INTEGER NOT NULL DEFAULT 0,
			discount_percent            NUMERIC(5,2) NOT NULL DEFAULT 0,
			status                      VARCHAR(20) NOT NULL DEFAULT 'active'
				CHECK (status IN ('active','paused','cancelled','expired')),
			start_date                  DATE NOT NULL,
			end_date                    DATE,
			next_billing_date           DATE,
			services_used_this_month    INTEGER NOT NULL DEFAULT 0,
			usage_period_start          DATE,
			created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX memberships_customer_id_idx ON memberships (customer_id);
		CREATE INDEX memberships_status_idx ON memberships (status)`},
}

// Provision creates the schema for a tenant and all domain tables
// inside it. Safe to call when the schema already exists (the schema
// create is IF NOT EXISTS; table creation then fails and surfaces,
// which is the desired signal for a half-provisioned tenant).
//
// The search path is set on a dedicated connection for the duration of
// the DDL and always reset to public before the connection returns to
// the pool.
func (s *Store) Provision(ctx context.Context, tenantID uuid.UUID) error {
	schema, err := schemaName(tenantID)
	if err != nil {
		return err
	}
	quoted := pgx.Identifier{schema}.Sanitize()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	slog.Info("provisioning tenant schema", "schema", schema)

	if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if _, err := conn.Exec(ctx, "SET search_path TO "+quoted); err != nil {
		return fmt.Errorf("set search path: %w", err)
	}
	// The search path must not leak into later queries on this pooled
	// connection, including on error paths.
	defer func() {
		if _, rerr := conn.Exec(context.WithoutCancel(ctx), "SET search_path TO public"); rerr != nil {
			slog.Error("reset search path failed", "schema", schema, "error", rerr)
		}
	}()

	for _, tbl := range tenantTables {
		if _, err := conn.Exec(ctx, tbl.ddl); err != nil {
			return fmt.Errorf("create table %s in %s: %w", tbl.name, schema, err)
		}
	}

	slog.Info("tenant schema provisioned", "schema", schema)
	return nil
}

// Deprovision drops a tenant's schema and everything in it. Destructive
// and irreversible; administrative cleanup only, never called from the
// request path.
func (s *Store) Deprovision(ctx context.Context, tenantID uuid.UUID) error {
	schema, err := schemaName(tenantID)
	if err != nil {
		return err
	}
	quoted := pgx.Identifier{schema}.Sanitize()

	slog.Warn("deprovisioning tenant schema", "schema", schema)

	if _, err := s.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+quoted+" CASCADE"); err != nil {
		return fmt.Errorf("drop schema %s: %w", schema, err)
	}
	return nil
}

// SchemaExists reports whether a tenant's schema has been provisioned.
func (s *Store) SchemaExists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	schema, err := schemaName(tenantID)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schema,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schema exists: %w", err)
	}
	return exists, nil
}

// ListTenantSchemas returns the names of all provisioned tenant schemas.
func (s *Store) ListTenantSchemas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name LIKE 'tenant_%' ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list tenant schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}
