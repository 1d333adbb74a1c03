// Package verify issues and redeems the short numeric codes mailed during
// registration.
package verify

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Store is an expiring key-value store. The in-memory implementation only
// works for a single server instance: a code issued by one instance cannot
// be redeemed on another. Use the valkey implementation when scaling out.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// TakeIfValid removes and reports true only when the key exists, has not
	// expired and valid(value) holds. At most one caller wins per Put.
	TakeIfValid(ctx context.Context, key string, valid func(value string) bool) (bool, error)
}

// Codes issues six digit codes keyed by email.
type Codes struct {
	store    Store
	ttl      time.Duration
	generate func() (string, error)
}

func NewCodes(store Store, ttl time.Duration) *Codes {
	return &Codes{store: store, ttl: ttl, generate: sixDigits}
}

// Issue stores a fresh code for email, replacing any pending one.
func (c *Codes) Issue(ctx context.Context, email string) (string, error) {
	code, err := c.generate()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := c.store.Put(ctx, key(email), code, c.ttl); err != nil {
		return "", err
	}
	return code, nil
}

// Redeem consumes the pending code for email if it matches.
func (c *Codes) Redeem(ctx context.Context, email, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return c.store.TakeIfValid(ctx, key(email), func(stored string) bool {
		return stored == code
	})
}

func key(email string) string {
	return "verify:" + email
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
