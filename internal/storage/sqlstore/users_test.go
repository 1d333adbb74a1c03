package sqlstore

import (
	"context"
	"testing"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	u := &models.User{Email: "a@example.com", Password: "hash"}
	require.NoError(t, store.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	require.Equal(t, models.RoleUser, u.Role)

	byID, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", byID.Email)
	require.Nil(t, byID.Username)
	require.False(t, byID.Banned)

	byEmail, err := store.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	exists, err := store.EmailExists(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	_, err = store.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateUserConflicts(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", strPtr("alice"))

	err := store.CreateUser(ctx, &models.User{Email: "a@example.com", Password: "x"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	err = store.CreateUser(ctx, &models.User{Email: "b@example.com", Username: strPtr("alice"), Password: "x"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	// Several users without a username are fine.
	createUser(t, store, "u2", "c@example.com", nil)
	createUser(t, store, "u3", "d@example.com", nil)
}

func TestSearchUsersExcludesSelfAndBanned(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "alice@example.com", strPtr("Alice"))
	createUser(t, store, "u2", "alina@example.com", nil)
	createUser(t, store, "u3", "bob@example.com", strPtr("ALbert"))
	createUser(t, store, "u4", "alfred@example.com", nil)
	_, err := store.ToggleBan(ctx, "u4")
	require.NoError(t, err)

	found, err := store.SearchUsers(ctx, "u1", "al", 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.ID)
	}
	require.ElementsMatch(t, []string{"u2", "u3"}, ids)
}

func TestToggleBanAndDeleteUser(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	createUser(t, store, "u2", "b@example.com", nil)

	banned, err := store.ToggleBan(ctx, "u1")
	require.NoError(t, err)
	require.True(t, banned)
	banned, err = store.ToggleBan(ctx, "u1")
	require.NoError(t, err)
	require.False(t, banned)

	_, err = store.ToggleBan(ctx, "nobody")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, store.CreateTicket(ctx, &models.Ticket{UserID: "u1", UserEmail: "a@example.com", Subject: "s", Message: "m"}))
	_, err = store.AppendPrivateMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "u2", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, "u1"))
	require.ErrorIs(t, store.DeleteUser(ctx, "u1"), apperr.ErrNotFound)

	tickets, err := store.ListTickets(ctx)
	require.NoError(t, err)
	require.Empty(t, tickets)

	msgs, err := store.ListPrivateMessages(ctx, "u2", "u1", 10)
	require.NoError(t, err)
	require.Empty(t, msgs, "messages cascade with the user")

	convs, err := store.ListRecentConversations(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, convs)
}

func TestUpdatePassword(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)

	require.NoError(t, store.UpdatePassword(ctx, "u1", "new-hash"))
	u, err := store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new-hash", u.Password)

	require.ErrorIs(t, store.UpdatePassword(ctx, "nobody", "x"), apperr.ErrNotFound)
}
