package tickets

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterTicketRoutes registers the ticket routes on an authenticated router.
func RegisterTicketRoutes(r *mux.Router, handler *TicketHandler) {
	r.HandleFunc("/api/tickets", handler.CreateTicket).Methods(http.MethodPost)
}
