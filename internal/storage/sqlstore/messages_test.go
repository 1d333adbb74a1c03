package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestAppendPublicMessage(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", strPtr("alice"))

	msg, err := store.AppendPublicMessage(ctx, models.NewMessage{
		SenderID: "u1", SenderEmail: "a@example.com", SenderUsername: strPtr("alice"), Content: "aGVsbG8=",
	})
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())
	require.Nil(t, msg.ReceiverID)
	require.Equal(t, models.PublicScope, msg.Scope)

	list, err := store.ListPublicMessages(ctx, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, msg.ID, list[0].ID)
	require.Equal(t, "alice", *list[0].SenderUsername)
	require.Nil(t, list[0].ReceiverID)
}

func TestAppendPrivateMessageDenormalisesReceiver(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	createUser(t, store, "u2", "b@example.com", strPtr("bob"))

	msg, err := store.AppendPrivateMessage(ctx, models.NewMessage{
		SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "u2", Content: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, "u1|u2", msg.Scope)
	require.Equal(t, "b@example.com", *msg.ReceiverEmail)
	require.Equal(t, "bob", *msg.ReceiverUsername)

	for _, viewer := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		list, err := store.ListPrivateMessages(ctx, viewer[0], viewer[1], 50)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "secret", list[0].Content)
	}
}

func TestAppendPrivateMessageUnknownReceiverWritesNothing(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)

	_, err := store.AppendPrivateMessage(ctx, models.NewMessage{
		SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "ghost", Content: "hi",
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	require.Zero(t, count)
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count))
	require.Zero(t, count)
}

func TestAppendPrivateMessageToSelfIsRejected(t *testing.T) {
	store := newTestStore(t, 0)
	createUser(t, store, "u1", "a@example.com", nil)

	_, err := store.AppendPrivateMessage(context.Background(), models.NewMessage{
		SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "u1", Content: "note",
	})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRetentionKeepsNewestInOrder(t *testing.T) {
	const limit = 500
	store := newTestStore(t, limit)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)

	const total = limit + 37
	for i := 0; i < total; i++ {
		_, err := store.AppendPublicMessage(ctx, models.NewMessage{
			SenderID: "u1", SenderEmail: "a@example.com", Content: fmt.Sprintf("m%04d", i),
		})
		require.NoError(t, err)
	}

	list, err := store.ListPublicMessages(ctx, total)
	require.NoError(t, err)
	require.Len(t, list, limit)
	for i, m := range list {
		require.Equal(t, fmt.Sprintf("m%04d", total-limit+i), m.Content)
	}
}

func TestRetentionIsPerScope(t *testing.T) {
	store := newTestStore(t, 3)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	createUser(t, store, "u2", "b@example.com", nil)
	createUser(t, store, "u3", "c@example.com", nil)

	for i := 0; i < 5; i++ {
		_, err := store.AppendPrivateMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "u2", Content: fmt.Sprintf("ab%d", i)})
		require.NoError(t, err)
	}
	_, err := store.AppendPrivateMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", ReceiverID: "u3", Content: "ac0"})
	require.NoError(t, err)
	_, err = store.AppendPublicMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", Content: "pub"})
	require.NoError(t, err)

	ab, err := store.ListPrivateMessages(ctx, "u2", "u1", 100)
	require.NoError(t, err)
	require.Len(t, ab, 3)
	require.Equal(t, "ab2", ab[0].Content)
	require.Equal(t, "ab4", ab[2].Content)

	ac, err := store.ListPrivateMessages(ctx, "u1", "u3", 100)
	require.NoError(t, err)
	require.Len(t, ac, 1)

	pub, err := store.ListPublicMessages(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pub, 1)
}

func TestTrimRetentionAfterLoweringTheCap(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	for i := 0; i < 8; i++ {
		_, err := store.AppendPublicMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", Content: fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	deleted, err := store.TrimRetention(ctx, models.PublicScope, 5)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)

	deleted, err = store.TrimRetention(ctx, models.PublicScope, 5)
	require.NoError(t, err)
	require.Zero(t, deleted)

	list, err := store.ListPublicMessages(ctx, 100)
	require.NoError(t, err)
	require.Len(t, list, 5)
	require.Equal(t, "3", list[0].Content)

	_, err = store.TrimRetention(ctx, models.PublicScope, 0)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestListLimitReturnsMostRecent(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	for i := 0; i < 10; i++ {
		_, err := store.AppendPublicMessage(ctx, models.NewMessage{SenderID: "u1", SenderEmail: "a@example.com", Content: fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}
	list, err := store.ListPublicMessages(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"7", "8", "9"}, []string{list[0].Content, list[1].Content, list[2].Content})
}

func TestConcurrentPrivateMessagesShareOneScope(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	createUser(t, store, "u2", "b@example.com", nil)

	const perSide = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perSide)
	send := func(from, fromEmail, to string) {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			_, err := store.AppendPrivateMessage(ctx, models.NewMessage{SenderID: from, SenderEmail: fromEmail, ReceiverID: to, Content: "x"})
			errs <- err
		}
	}
	wg.Add(2)
	go send("u1", "a@example.com", "u2")
	go send("u2", "b@example.com", "u1")
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var scopes int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(DISTINCT scope) FROM messages").Scan(&scopes))
	require.Equal(t, 1, scopes)

	list, err := store.ListPrivateMessages(ctx, "u1", "u2", 100)
	require.NoError(t, err)
	require.Len(t, list, 2*perSide)

	var convs int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&convs))
	require.Equal(t, 1, convs)
}

func TestListRecentConversations(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	createUser(t, store, "u1", "a@example.com", nil)
	createUser(t, store, "u2", "b@example.com", strPtr("bob"))
	createUser(t, store, "u3", "c@example.com", nil)

	send := func(from, fromEmail, to, content string) {
		_, err := store.AppendPrivateMessage(ctx, models.NewMessage{SenderID: from, SenderEmail: fromEmail, ReceiverID: to, Content: content})
		require.NoError(t, err)
	}
	send("u1", "a@example.com", "u2", "first to bob")
	send("u3", "c@example.com", "u1", "from carol")
	send("u2", "b@example.com", "u1", "bob replies")

	convs, err := store.ListRecentConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)

	require.Equal(t, "u2", convs[0].PeerID)
	require.Equal(t, "bob", *convs[0].Peer.Username)
	require.Equal(t, "bob replies", convs[0].LastMessage)
	require.Equal(t, "u2", convs[0].LastSenderID)

	require.Equal(t, "u3", convs[1].PeerID)
	require.Equal(t, "c@example.com", convs[1].Peer.Email)
	require.Equal(t, "from carol", convs[1].LastMessage)

	other, err := store.ListRecentConversations(ctx, "u3")
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, "u1", other[0].PeerID)
}
