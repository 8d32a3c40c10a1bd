package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/store"
)

// ListClients lists clients
// @Summary      List clients
// @Description  Get a paginated list of clients, newest first.
// @Tags         clients
// @Produce      json
// @Param        search  query     string  false  "Search by name, email, or address"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Page size (default 10)"
// @Success      200     {object}  Response{data=Page[models.Client]}
// @Router       /clients [get]
// @Security     BasicAuth
func ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := Billing.ListClients(r.Context(), store.ClientFilter{Search: r.URL.Query().Get("search")})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, limit := page(r)
	writeJSON(w, http.StatusOK, paginate(clients, p, limit))
}

// GetClient retrieves a single client by ID
// @Summary      Get client
// @Description  Get a specific client by ID.
// @Tags         clients
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  Response{data=models.Client}
// @Failure      404  {object}  Response{error=string}
// @Router       /clients/{id} [get]
// @Security     BasicAuth
func GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := Billing.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateClient creates a new client
// @Summary      Create client
// @Description  Create a client. E-mail addresses are unique.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        client  body      models.ClientInput  true  "Client details"
// @Success      201     {object}  Response{data=models.Client}
// @Failure      400     {object}  Response{error=string}
// @Router       /clients [post]
// @Security     BasicAuth
func CreateClient(w http.ResponseWriter, r *http.Request) {
	var input models.ClientInput
	if !decode(w, r, &input) {
		return
	}
	c, err := Billing.CreateClient(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClient updates an existing client
// @Summary      Update client
// @Description  Partially update a client.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path      string              true  "Client ID"
// @Param        client  body      models.ClientPatch  true  "Fields to change"
// @Success      200     {object}  Response{data=models.Client}
// @Failure      400     {object}  Response{error=string}
// @Failure      404     {object}  Response{error=string}
// @Router       /clients/{id} [put]
// @Security     BasicAuth
func UpdateClient(w http.ResponseWriter, r *http.Request) {
	var input models.ClientPatch
	if !decode(w, r, &input) {
		return
	}
	c, err := Billing.UpdateClient(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient deletes a client
// @Summary      Delete client
// @Description  Remove a client that has no invoices.
// @Tags         clients
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /clients/{id} [delete]
// @Security     BasicAuth
func DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := Billing.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// GetClientStats summarizes billing per client
// @Summary      Client statistics
// @Description  Billed, paid and outstanding totals for every client, largest outstanding first.
// @Tags         clients
// @Produce      json
// @Success      200  {object}  Response{data=[]stats.ClientTotals}
// @Router       /clients/stats [get]
// @Security     BasicAuth
func GetClientStats(w http.ResponseWriter, r *http.Request) {
	totals, err := Billing.ClientStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
