package admin

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterAdminRoutes registers the admin routes on a router that already
// requires an admin token.
func RegisterAdminRoutes(r *mux.Router, handler *AdminHandler) {
	r.HandleFunc("/api/admin/users", handler.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/users/{id}", handler.DeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/api/admin/users/{id}/toggle-ban", handler.ToggleBan).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/tickets", handler.ListTickets).Methods(http.MethodGet)
}
