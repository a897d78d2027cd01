package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
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

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// registerTenant creates a tenant row with an owner and provisions its schema.
func registerTenant(t *testing.T, s *store.Store, slug string) *models.Tenant {
	t.Helper()
	ctx := context.Background()

	tenant := &models.Tenant{
		Slug:         slug,
		BusinessName: slug + " mobile mechanics",
		ContactEmail: slug + "@example.com",
		Plan:         models.TenantPlanFree,
		Status:       models.TenantStatusTrial,
		Timezone:     "America/Los_Angeles",
		Currency:     "USD",
	}
	owner := &models.User{
		Email:        "owner@" + slug + ".example.com",
		PasswordHash: "$2a$12$notarealhashnotarealhashnotarealhash",
		Role:         models.RoleOwner,
		FullName:     "Owner " + slug,
		IsActive:     true,
	}
	require.NoError(t, s.CreateTenantWithOwner(ctx, tenant, owner))
	require.NoError(t, s.Provision(ctx, tenant.ID))
	return tenant
}

func tenantScope(t *testing.T, s *store.Store, tenantID uuid.UUID) *store.TenantStore {
	t.Helper()
	ts, err := s.ForTenant(tenantID)
	require.NoError(t, err)
	return ts
}

func createCustomer(t *testing.T, ts *store.TenantStore, phone string) *models.Customer {
	t.Helper()
	c := &models.Customer{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Phone:     phone,
	}
	require.NoError(t, ts.CreateCustomer(context.Background(), c))
	return c
}

func createVehicle(t *testing.T, ts *store.TenantStore, customerID uuid.UUID) *models.Vehicle {
	t.Helper()
	v := &models.Vehicle{
		CustomerID: customerID,
		Year:       "2019",
		Make:       "Toyota",
		Model:      "Tacoma",
	}
	require.NoError(t, ts.CreateVehicle(context.Background(), v))
	return v
}

func createJob(t *testing.T, ts *store.TenantStore, customerID, vehicleID uuid.UUID) *models.Job {
	t.Helper()
	j := &models.Job{
		CustomerID:   customerID,
		VehicleID:    vehicleID,
		Title:        "Brake pad replacement",
		LaborMinutes: 120,
		LaborRate:    85,
		TaxRate:      8,
	}
	require.NoError(t, ts.CreateJob(context.Background(), j))
	return j
}

// --- Provisioning Tests ---

func TestProvision_CreatesSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()

	tenant := registerTenant(t, s, "acme")

	exists, err := s.SchemaExists(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	schemas, err := s.ListTenantSchemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "tenant_"+tenant.ID.String())
}

func TestProvision_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()

	tenant := registerTenant(t, s, "acme")

	// A second run finds the schema in place and leaves it alone.
	err := s.Provision(ctx, tenant.ID)
	require.NoError(t, err)
}

func TestForTenant_RejectsNilUUID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)

	_, err := s.ForTenant(uuid.Nil)
	assert.ErrorIs(t, err, store.ErrInvalidTenantID)
}

// --- Registration Tests ---

func TestRegistration_SlugConflictLeavesNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()

	registerTenant(t, s, "acme")

	tenant := &models.Tenant{
		Slug:         "acme",
		BusinessName: "Other Shop",
		ContactEmail: "other@example.com",
		Plan:         models.TenantPlanFree,
		Status:       models.TenantStatusTrial,
		Timezone:     "UTC",
		Currency:     "USD",
	}
	owner := &models.User{
		Email:        "second-owner@example.com",
		PasswordHash: "hash",
		Role:         models.RoleOwner,
		IsActive:     true,
	}
	err := s.CreateTenantWithOwner(ctx, tenant, owner)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// The owner insert rolled back with the tenant insert.
	_, err = s.GetUserByEmail(ctx, "second-owner@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistration_CompensationRemovesRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()

	tenant := &models.Tenant{
		Slug:         "doomed",
		BusinessName: "Doomed Shop",
		ContactEmail: "doomed@example.com",
		Plan:         models.TenantPlanFree,
		Status:       models.TenantStatusTrial,
		Timezone:     "UTC",
		Currency:     "USD",
	}
	owner := &models.User{
		Email:        "doomed-owner@example.com",
		PasswordHash: "hash",
		Role:         models.RoleOwner,
		IsActive:     true,
	}
	require.NoError(t, s.CreateTenantWithOwner(ctx, tenant, owner))

	// Simulate a failed provisioning run by compensating directly.
	require.NoError(t, s.DeleteUser(ctx, owner.ID))
	require.NoError(t, s.DeleteTenant(ctx, tenant.ID))

	_, err := s.GetTenantBySlug(ctx, "doomed")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "doomed-owner@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The slug is free again.
	registerTenant(t, s, "doomed")
}

// --- Isolation Tests ---

func TestTenantIsolation_DataInvisibleAcrossSchemas(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()

	t1 := registerTenant(t, s, "shop-one")
	t2 := registerTenant(t, s, "shop-two")

	ts1 := tenantScope(t, s, t1.ID)
	ts2 := tenantScope(t, s, t2.ID)

	c := createCustomer(t, ts1, "555-0100")

	// Visible in tenant one.
	got, err := ts1.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	// Invisible in tenant two, even by exact id.
	_, err = ts2.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, total, err := ts2.ListCustomers(ctx, store.CustomerFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

// --- Customer Tests ---

func TestCustomer_DuplicatePhone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	createCustomer(t, ts, "555-0100")
	err := ts.CreateCustomer(context.Background(), &models.Customer{
		FirstName: "Sam", LastName: "Lopez", Phone: "555-0100",
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestCustomer_SoftDeleteBlockedByVehicle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)

	err := ts.SoftDeleteCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrConflict)

	// Removing the vehicle clears the guard.
	require.NoError(t, ts.SoftDeleteVehicle(ctx, v.ID))
	require.NoError(t, ts.SoftDeleteCustomer(ctx, c.ID))

	_, err = ts.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Job Tests ---

func TestJob_CreateComputesNumberAndTotal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)

	datePart := time.Now().UTC().Format("20060102")
	assert.Equal(t, "JOB-"+datePart+"-0001", j.JobNumber)
	// 2h * 85/h = 170, 8% tax on 170 = 13.60
	assert.InDelta(t, 183.60, j.Total, 0.001)
	assert.Equal(t, models.JobStatusDraft, j.Status)

	j2 := createJob(t, ts, c.ID, v.ID)
	assert.Equal(t, "JOB-"+datePart+"-0002", j2.JobNumber)
}

func TestJob_CreateRejectsForeignVehicle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c1 := createCustomer(t, ts, "555-0100")
	c2 := createCustomer(t, ts, "555-0101")
	v := createVehicle(t, ts, c2.ID)

	err := ts.CreateJob(ctx, &models.Job{
		CustomerID: c1.ID, VehicleID: v.ID, Title: "Oil change",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_StatusTransitionsStampTimes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)

	got, err := ts.UpdateJobStatus(ctx, j.ID, models.JobStatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, got.ActualStart)
	assert.Nil(t, got.ActualEnd)

	got, err = ts.UpdateJobStatus(ctx, j.ID, models.JobStatusCompleted)
	require.NoError(t, err)
	assert.NotNil(t, got.ActualEnd)
}

func TestJob_SoftDeleteBlockedWhenCompleted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)

	_, err := ts.UpdateJobStatus(ctx, j.ID, models.JobStatusCompleted)
	require.NoError(t, err)

	err = ts.SoftDeleteJob(ctx, j.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestJob_UpdateRecomputesTotal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)

	discount := 30.0
	got, err := ts.UpdateJob(ctx, j.ID, store.JobUpdate{DiscountAmount: &discount})
	require.NoError(t, err)
	// (170 - 30) * 1.08 = 151.20
	assert.InDelta(t, 151.20, got.Total, 0.001)
}

// --- Template Tests ---

func TestTemplate_SpawnSnapshotIsImmutable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)

	tpl := &models.JobTemplate{
		Name:                "Front brake service",
		Slug:                "front-brake-service",
		DefaultLaborMinutes: 90,
		DefaultLaborRate:    95,
		Steps:               json.RawMessage(`[{"order":1,"title":"Remove wheels"}]`),
		IsActive:            true,
	}
	require.NoError(t, ts.CreateTemplate(ctx, tpl))

	j, err := ts.SpawnJobFromTemplate(ctx, tpl.ID, store.SpawnInput{
		CustomerID: c.ID, VehicleID: v.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Front brake service", j.Title)
	require.NotNil(t, j.JobTemplateID)
	assert.Equal(t, tpl.ID, *j.JobTemplateID)

	var snapshot models.TemplateSnapshot
	require.NoError(t, json.Unmarshal(j.TemplateSnapshot, &snapshot))
	assert.Equal(t, "Front brake service", snapshot.Name)
	assert.JSONEq(t, `[{"order":1,"title":"Remove wheels"}]`, string(snapshot.Steps))

	// Edit the template after spawning.
	newName := "Front brake service v2"
	_, err = ts.UpdateTemplate(ctx, tpl.ID, store.TemplateUpdate{
		Name:  &newName,
		Steps: json.RawMessage(`[{"order":1,"title":"Completely different"}]`),
	})
	require.NoError(t, err)

	// The job's snapshot still holds the original content.
	got, err := ts.GetJob(ctx, j.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(got.TemplateSnapshot, &snapshot))
	assert.Equal(t, "Front brake service", snapshot.Name)
	assert.JSONEq(t, `[{"order":1,"title":"Remove wheels"}]`, string(snapshot.Steps))
}

func TestTemplate_SpawnInactiveFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)

	tpl := &models.JobTemplate{
		Name: "Retired service", Slug: "retired-service", IsActive: false,
	}
	require.NoError(t, ts.CreateTemplate(ctx, tpl))

	_, err := ts.SpawnJobFromTemplate(ctx, tpl.ID, store.SpawnInput{
		CustomerID: c.ID, VehicleID: v.ID,
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestTemplate_Usage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)

	tpl := &models.JobTemplate{
		Name: "Oil change", Slug: "oil-change",
		DefaultLaborMinutes: 30, DefaultLaborRate: 80, IsActive: true,
	}
	require.NoError(t, ts.CreateTemplate(ctx, tpl))

	for i := 0; i < 3; i++ {
		_, err := ts.SpawnJobFromTemplate(ctx, tpl.ID, store.SpawnInput{
			CustomerID: c.ID, VehicleID: v.ID,
		})
		require.NoError(t, err)
	}

	stats, err := ts.TemplateUsage(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 3, stats.JobsByStatus[models.JobStatusDraft])
	assert.Nil(t, stats.AvgCompletionMinutes)
}

// --- Inventory Tests ---

func seedStock(t *testing.T, ts *store.TenantStore, onHand int) (*models.Part, *models.InventoryItem) {
	t.Helper()
	p := &models.Part{
		PartNumber: "BP-" + uuid.NewString()[:8], Name: "Brake pads",
		DefaultCost: 25, DefaultPrice: 45, IsActive: true,
	}
	require.NoError(t, ts.CreatePart(context.Background(), p))

	i := &models.InventoryItem{PartID: p.ID, Location: "Shop", QuantityOnHand: onHand}
	require.NoError(t, ts.AddInventory(context.Background(), i))
	return p, i
}

func TestInventory_AllocateConservesStock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)
	_, item := seedStock(t, ts, 10)

	jp, err := ts.AllocateToJob(ctx, item.ID, j.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, jp.Quantity)
	// 4 * 45 = 180
	assert.InDelta(t, 180.0, jp.Subtotal, 0.001)

	got, err := ts.GetInventoryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.QuantityOnHand)
	assert.Equal(t, 4, got.QuantityAllocated)
	assert.Equal(t, 6, got.Available())

	// The job picked up the parts total and a repriced grand total.
	job, err := ts.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.InDelta(t, 180.0, job.PartsTotal, 0.001)
	// (170 + 180) * 1.08 = 378
	assert.InDelta(t, 378.0, job.Total, 0.001)

	// Deallocating restores the exact prior state.
	require.NoError(t, ts.DeallocateFromJob(ctx, jp.ID))

	got, err = ts.GetInventoryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.QuantityOnHand)
	assert.Zero(t, got.QuantityAllocated)

	job, err = ts.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Zero(t, job.PartsTotal)
	assert.InDelta(t, 183.60, job.Total, 0.001)
}

func TestInventory_AllocateInsufficientFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)
	_, item := seedStock(t, ts, 3)

	_, err := ts.AllocateToJob(ctx, item.ID, j.ID, 5)
	assert.ErrorIs(t, err, store.ErrInsufficientInventory)

	// Nothing changed and no part line was written.
	got, err := ts.GetInventoryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.QuantityAllocated)

	parts, err := ts.ListJobParts(ctx, j.ID)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestInventory_AllocateToClosedJobFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)
	_, item := seedStock(t, ts, 10)

	_, err := ts.UpdateJobStatus(ctx, j.ID, models.JobStatusCancelled)
	require.NoError(t, err)

	_, err = ts.AllocateToJob(ctx, item.ID, j.ID, 1)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestInventory_Transfer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	p, source := seedStock(t, ts, 10)
	dest := &models.InventoryItem{PartID: p.ID, Location: "Van #1"}
	require.NoError(t, ts.AddInventory(ctx, dest))

	require.NoError(t, ts.TransferInventory(ctx, source.ID, dest.ID, 4))

	got, err := ts.GetInventoryItem(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.QuantityOnHand)

	got, err = ts.GetInventoryItem(ctx, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.QuantityOnHand)

	// More than available is rejected.
	err = ts.TransferInventory(ctx, source.ID, dest.ID, 100)
	assert.ErrorIs(t, err, store.ErrInsufficientInventory)
}

func TestInventory_SoftDeleteBlockedWhileAllocated(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)
	_, item := seedStock(t, ts, 10)

	jp, err := ts.AllocateToJob(ctx, item.ID, j.ID, 2)
	require.NoError(t, err)

	err = ts.SoftDeleteInventory(ctx, item.ID)
	assert.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, ts.DeallocateFromJob(ctx, jp.ID))
	require.NoError(t, ts.SoftDeleteInventory(ctx, item.ID))
}

// --- Part Tests ---

func TestPart_SoftDeleteBlockedByInventory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	p, item := seedStock(t, ts, 5)

	err := ts.SoftDeletePart(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, ts.SoftDeleteInventory(ctx, item.ID))
	require.NoError(t, ts.SoftDeletePart(ctx, p.ID))
}

func TestPart_DuplicateNumber(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	p := &models.Part{PartNumber: "FLT-100", Name: "Oil filter", IsActive: true}
	require.NoError(t, ts.CreatePart(ctx, p))

	err := ts.CreatePart(ctx, &models.Part{PartNumber: "FLT-100", Name: "Other filter"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

// --- Artifact Tests ---

func TestArtifact_CreateAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	ctx := context.Background()
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	c := createCustomer(t, ts, "555-0100")
	v := createVehicle(t, ts, c.ID)
	j := createJob(t, ts, c.ID, v.ID)

	blobName := fmt.Sprintf("tenant_%s/%s.jpg", tenant.ID, uuid.NewString())
	title := "Before photo"
	a := &models.TrustArtifact{
		JobID: &j.ID, VehicleID: &v.ID, Type: models.ArtifactTypePhoto,
		Title: &title, BlobName: &blobName, FileSize: 204800,
	}
	require.NoError(t, ts.CreateArtifact(ctx, a))

	artifacts, total, err := ts.ListArtifacts(ctx, store.ArtifactFilter{JobID: j.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, artifacts, 1)

	gotBlob, err := ts.SoftDeleteArtifact(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, gotBlob)
	assert.Equal(t, blobName, *gotBlob)

	_, err = ts.GetArtifact(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArtifact_RejectsUnknownType(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)
	tenant := registerTenant(t, s, "acme")
	ts := tenantScope(t, s, tenant.ID)

	err := ts.CreateArtifact(context.Background(), &models.TrustArtifact{Type: "hologram"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.New(pool)

	err := s.Ping(context.Background())
	assert.NoError(t, err)
}
