package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/curbsidehq/curbside/internal/api/middleware"
	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	RefreshHandler  http.HandlerFunc
	LogoutHandler   http.HandlerFunc

	ListCustomers  http.HandlerFunc
	GetCustomer    http.HandlerFunc
	CreateCustomer http.HandlerFunc
	UpdateCustomer http.HandlerFunc
	DeleteCustomer http.HandlerFunc

	ListVehicles  http.HandlerFunc
	GetVehicle    http.HandlerFunc
	CreateVehicle http.HandlerFunc
	UpdateVehicle http.HandlerFunc
	DeleteVehicle http.HandlerFunc

	ListJobs        http.HandlerFunc
	GetJob          http.HandlerFunc
	CreateJob       http.HandlerFunc
	UpdateJob       http.HandlerFunc
	UpdateJobStatus http.HandlerFunc
	DeleteJob       http.HandlerFunc
	ListJobParts    http.HandlerFunc

	ListTemplates  http.HandlerFunc
	GetTemplate    http.HandlerFunc
	CreateTemplate http.HandlerFunc
	UpdateTemplate http.HandlerFunc
	DeleteTemplate http.HandlerFunc
	SpawnJob       http.HandlerFunc
	TemplateUsage  http.HandlerFunc

	ListParts  http.HandlerFunc
	GetPart    http.HandlerFunc
	CreatePart http.HandlerFunc
	UpdatePart http.HandlerFunc
	DeletePart http.HandlerFunc

	ListInventory     http.HandlerFunc
	GetInventoryItem  http.HandlerFunc
	AddInventory      http.HandlerFunc
	UpdateInventory   http.HandlerFunc
	DeleteInventory   http.HandlerFunc
	TransferInventory http.HandlerFunc
	AllocateInventory http.HandlerFunc
	Deallocate        http.HandlerFunc

	ListArtifacts  http.HandlerFunc
	GetArtifact    http.HandlerFunc
	UploadArtifact http.HandlerFunc
	UpdateArtifact http.HandlerFunc
	DeleteArtifact http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))
	r.Post("/api/v1/auth/refresh", orNotImplemented(deps.RefreshHandler))
	r.Post("/api/v1/auth/logout", orNotImplemented(deps.LogoutHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/customers", orNotImplemented(deps.ListCustomers))
		r.Get("/api/v1/customers/{id}", orNotImplemented(deps.GetCustomer))
		r.Post("/api/v1/customers", orNotImplemented(deps.CreateCustomer))
		r.Patch("/api/v1/customers/{id}", orNotImplemented(deps.UpdateCustomer))

		r.Get("/api/v1/vehicles", orNotImplemented(deps.ListVehicles))
		r.Get("/api/v1/vehicles/{id}", orNotImplemented(deps.GetVehicle))
		r.Post("/api/v1/vehicles", orNotImplemented(deps.CreateVehicle))
		r.Patch("/api/v1/vehicles/{id}", orNotImplemented(deps.UpdateVehicle))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/api/v1/jobs/{id}", orNotImplemented(deps.GetJob))
		r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
		r.Patch("/api/v1/jobs/{id}", orNotImplemented(deps.UpdateJob))
		r.Patch("/api/v1/jobs/{id}/status", orNotImplemented(deps.UpdateJobStatus))
		r.Get("/api/v1/jobs/{id}/parts", orNotImplemented(deps.ListJobParts))

		r.Get("/api/v1/templates", orNotImplemented(deps.ListTemplates))
		r.Get("/api/v1/templates/{id}", orNotImplemented(deps.GetTemplate))
		r.Post("/api/v1/templates", orNotImplemented(deps.CreateTemplate))
		r.Patch("/api/v1/templates/{id}", orNotImplemented(deps.UpdateTemplate))
		r.Post("/api/v1/templates/{id}/spawn", orNotImplemented(deps.SpawnJob))
		r.Get("/api/v1/templates/{id}/usage", orNotImplemented(deps.TemplateUsage))

		r.Get("/api/v1/parts", orNotImplemented(deps.ListParts))
		r.Get("/api/v1/parts/{id}", orNotImplemented(deps.GetPart))
		r.Post("/api/v1/parts", orNotImplemented(deps.CreatePart))
		r.Patch("/api/v1/parts/{id}", orNotImplemented(deps.UpdatePart))

		r.Get("/api/v1/inventory", orNotImplemented(deps.ListInventory))
		r.Get("/api/v1/inventory/{id}", orNotImplemented(deps.GetInventoryItem))
		r.Post("/api/v1/inventory", orNotImplemented(deps.AddInventory))
		r.Patch("/api/v1/inventory/{id}", orNotImplemented(deps.UpdateInventory))
		r.Post("/api/v1/inventory/transfer", orNotImplemented(deps.TransferInventory))
		r.Post("/api/v1/inventory/{id}/allocate", orNotImplemented(deps.AllocateInventory))
		r.Delete("/api/v1/job-parts/{id}", orNotImplemented(deps.Deallocate))

		r.Get("/api/v1/artifacts", orNotImplemented(deps.ListArtifacts))
		r.Get("/api/v1/artifacts/{id}", orNotImplemented(deps.GetArtifact))
		r.Post("/api/v1/artifacts", orNotImplemented(deps.UploadArtifact))
		r.Patch("/api/v1/artifacts/{id}", orNotImplemented(deps.UpdateArtifact))

		// Destructive routes need an elevated role
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireRole(models.RoleOwner, models.RoleAdmin))

			r.Delete("/api/v1/customers/{id}", orNotImplemented(deps.DeleteCustomer))
			r.Delete("/api/v1/vehicles/{id}", orNotImplemented(deps.DeleteVehicle))
			r.Delete("/api/v1/jobs/{id}", orNotImplemented(deps.DeleteJob))
			r.Delete("/api/v1/templates/{id}", orNotImplemented(deps.DeleteTemplate))
			r.Delete("/api/v1/parts/{id}", orNotImplemented(deps.DeletePart))
			r.Delete("/api/v1/inventory/{id}", orNotImplemented(deps.DeleteInventory))
			r.Delete("/api/v1/artifacts/{id}", orNotImplemented(deps.DeleteArtifact))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
