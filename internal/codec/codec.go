// Package codec implements the reversible transform applied to chat message
// bodies.
//
// This is obfuscation, not encryption. The key is handed to every client by
// GET /api/config, so anyone who can reach that endpoint can read every
// message. It keeps casual readers of the database from seeing plaintext and
// nothing more.
package codec

import (
	"encoding/base64"
)

// EmptyPreview is the preview shown for a conversation that has no messages
// yet. Decode returns it untouched.
const EmptyPreview = "[no messages yet]"

var placeholders = map[string]struct{}{
	"":           {},
	EmptyPreview: {},
}

// IsPlaceholder reports whether s is a sentinel that is never encoded.
func IsPlaceholder(s string) bool {
	_, ok := placeholders[s]
	return ok
}

// Encode XORs the UTF-8 bytes of plaintext with the repeating key bytes and
// returns standard base64. An empty key disables the transform.
func Encode(plaintext, key string) string {
	if key == "" {
		return plaintext
	}
	return base64.StdEncoding.EncodeToString(xor([]byte(plaintext), []byte(key)))
}

// Decode reverses Encode. Input that is not valid base64 is returned as is,
// which keeps legacy plaintext rows readable. Corruption is not detected: a
// decodable but wrong ciphertext yields garbage text.
func Decode(encoded, key string) string {
	if key == "" || IsPlaceholder(encoded) {
		return encoded
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	return string(xor(raw, []byte(key)))
}

func xor(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// Codec binds a key so callers do not pass it around.
type Codec struct {
	key string
}

func New(key string) Codec {
	return Codec{key: key}
}

func (c Codec) Enabled() bool { return c.key != "" }

func (c Codec) Encode(plaintext string) string { return Encode(plaintext, c.key) }

func (c Codec) Decode(encoded string) string { return Decode(encoded, c.key) }
