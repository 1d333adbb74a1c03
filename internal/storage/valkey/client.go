// Package valkey holds the Valkey-backed implementations shared between
// server instances.
package valkey

import (
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// Open connects to a single Valkey node at addr.
func Open(addr string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", addr, err)
	}
	return client, nil
}
