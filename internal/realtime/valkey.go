package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/valkey-io/valkey-go"
)

const Channel = "lounge:messages"

// ValkeyBroker relays messages through Valkey pub/sub so sockets attached
// to any instance see them.
type ValkeyBroker struct {
	client valkey.Client
	log    *slog.Logger
}

func NewValkeyBroker(client valkey.Client, log *slog.Logger) *ValkeyBroker {
	return &ValkeyBroker{client: client, log: log}
}

func (b *ValkeyBroker) Publish(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %d: %w", msg.ID, err)
	}
	cmd := b.client.B().Publish().Channel(Channel).Message(string(payload)).Build()
	return b.client.Do(ctx, cmd).Error()
}

func (b *ValkeyBroker) Subscribe(ctx context.Context) (<-chan models.Message, error) {
	out := make(chan models.Message, 64)
	go func() {
		defer close(out)
		cmd := b.client.B().Subscribe().Channel(Channel).Build()
		err := b.client.Receive(ctx, cmd, func(m valkey.PubSubMessage) {
			var msg models.Message
			if err := json.Unmarshal([]byte(m.Message), &msg); err != nil {
				b.log.Warn("dropping malformed realtime payload", "err", err)
				return
			}
			select {
			case out <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			b.log.Error("realtime subscription ended", "err", err)
		}
	}()
	return out, nil
}
