package admin

import (
	"log/slog"
	"net/http"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/storage"
	"github.com/gorilla/mux"
)

// AdminHandler serves the admin console. Routes run behind
// middleware.RequireAdmin.
type AdminHandler struct {
	Users   storage.UserStore
	Tickets storage.TicketStore
	Log     *slog.Logger
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// DeleteUser handles DELETE /api/admin/users/{id}. Tickets go with the
// user; messages cascade in the store.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	id := mux.Vars(r)["id"]
	if id == claims.UserID {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("you cannot delete your own account"))
		return
	}
	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("user deleted", "user", id, "by", claims.UserID)
	respond.Message(w, http.StatusOK, "User deleted")
}

// ToggleBan handles POST /api/admin/users/{id}/toggle-ban.
func (h *AdminHandler) ToggleBan(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	id := mux.Vars(r)["id"]
	if id == claims.UserID {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("you cannot ban your own account"))
		return
	}
	banned, err := h.Users.ToggleBan(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("user ban toggled", "user", id, "banned", banned, "by", claims.UserID)
	respond.JSON(w, http.StatusOK, map[string]any{"id": id, "isBanned": banned})
}

func (h *AdminHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Tickets.ListTickets(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, tickets)
}
