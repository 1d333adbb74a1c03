// Package storage declares the persistence contracts used by the services.
package storage

import (
	"context"

	"github.com/Vasu1712/lounge-backend/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SearchUsers(ctx context.Context, selfID, query string, limit int) ([]models.Profile, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	ToggleBan(ctx context.Context, id string) (bool, error)
}

// MessageStore is the durable chat log. Every append trims its scope to the
// configured retention inside the same transaction.
type MessageStore interface {
	AppendPublicMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	AppendPrivateMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	ListPublicMessages(ctx context.Context, limit int) ([]models.Message, error)
	ListPrivateMessages(ctx context.Context, selfID, peerID string, limit int) ([]models.Message, error)
	ListRecentConversations(ctx context.Context, selfID string) ([]models.ConversationSummary, error)
	TrimRetention(ctx context.Context, scope string, limit int) (int64, error)
}

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}
