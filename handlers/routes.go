package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router builds the HTTP routes. Handlers use the package-level Billing
// service, which must be set first.
func Router(user, pass string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", Health)

	// API routes with basic auth
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BasicAuth(user, pass))

		// Clients
		r.Get("/clients", ListClients)
		r.Post("/clients", CreateClient)
		r.Get("/clients/stats", GetClientStats)
		r.Get("/clients/{id}", GetClient)
		r.Put("/clients/{id}", UpdateClient)
		r.Delete("/clients/{id}", DeleteClient)

		// Invoices
		r.Get("/invoices", ListInvoices)
		r.Post("/invoices", CreateInvoice)
		r.Get("/invoices/stats", GetInvoiceStats)
		r.Get("/invoices/export", ExportInvoices)
		r.Get("/invoices/{id}", GetInvoice)
		r.Put("/invoices/{id}", UpdateInvoice)
		r.Delete("/invoices/{id}", DeleteInvoice)
		r.Post("/invoices/{id}/payments", RecordPayment)
		r.Post("/invoices/{id}/send", SendInvoice)

		// Dashboard
		r.Get("/dashboard", GetDashboard)
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}

// Health reports liveness
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  Response{data=map[string]string}
// @Router       /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
