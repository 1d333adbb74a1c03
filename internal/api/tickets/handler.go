package tickets

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/email"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/storage"
)

type TicketHandler struct {
	Tickets      storage.TicketStore
	Mail         *email.Dispatcher
	SupportEmail string
	Log          *slog.Logger
}

type createRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// CreateTicket handles POST /api/tickets. The support notification is sent
// in the background; its failure never fails the request.
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	var req createRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ticket := &models.Ticket{
		UserID:    claims.UserID,
		UserEmail: claims.Email,
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
	}
	if err := h.Tickets.CreateTicket(r.Context(), ticket); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if h.SupportEmail != "" {
		msg, err := email.TicketNotification(h.SupportEmail, ticket.ID, ticket.UserEmail, ticket.Subject, ticket.Message)
		if err != nil {
			h.Log.Error("render ticket mail", "ticket", ticket.ID, "err", err)
		} else {
			h.Mail.Go("ticket", msg)
		}
	}
	respond.JSON(w, http.StatusCreated, ticket)
}
