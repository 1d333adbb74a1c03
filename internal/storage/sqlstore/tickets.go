package sqlstore

import (
	"context"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/models"
)

func (s *SQLStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}
	ticket.CreatedAt = time.Now().UTC()
	query := s.rebind(`
		INSERT INTO tickets (user_id, user_email, subject, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowContext(ctx, query,
		ticket.UserID, ticket.UserEmail, ticket.Subject, ticket.Message, ticket.Status, ticket.CreatedAt,
	).Scan(&ticket.ID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

func (s *SQLStore) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_email, subject, message, status, created_at
		FROM tickets
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserEmail, &t.Subject, &t.Message, &t.Status, &t.CreatedAt); err != nil {
			return nil, apperr.Unavailable(err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return tickets, nil
}
