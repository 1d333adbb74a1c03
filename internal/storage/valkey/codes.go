package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

// CodeStore is a verify.Store shared by every instance pointing at the same
// Valkey node.
type CodeStore struct {
	client valkey.Client
	prefix string
}

func NewCodeStore(client valkey.Client) *CodeStore {
	return &CodeStore{client: client, prefix: "lounge:"}
}

func (s *CodeStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	cmd := s.client.B().Set().Key(s.prefix + key).Value(value).ExSeconds(seconds).Build()
	return s.client.Do(ctx, cmd).Error()
}

// TakeIfValid reads the value and, when it passes valid, deletes it. Two
// callers may both read a matching value but only the one whose DEL removed
// the key wins.
func (s *CodeStore) TakeIfValid(ctx context.Context, key string, valid func(string) bool) (bool, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !valid(value) {
		return false, nil
	}
	removed, err := s.client.Do(ctx, s.client.B().Del().Key(s.prefix+key).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}
