// Package webpush implements the client side of the Web Push protocol:
// VAPID authentication tokens (RFC 8292), aes128gcm payload encryption
// (RFC 8291), and delivery to browser push service endpoints.
package webpush

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Subscriber key material sizes on the wire.
const (
	PublicKeyLen  = 65 // uncompressed P-256 point: 0x04 || X(32) || Y(32)
	PrivateKeyLen = 32 // raw P-256 scalar
	AuthSecretLen = 16
)

// DecodeKey decodes URL-safe base64 key material. Browsers are inconsistent
// about padding, so trailing '=' is stripped before decoding.
func DecodeKey(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url key: %w", err)
	}
	return b, nil
}

// EncodeKey encodes raw bytes as unpadded URL-safe base64.
func EncodeKey(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSubscriberPublicKey decodes and validates a subscriber p256dh key.
func DecodeSubscriberPublicKey(s string) ([]byte, error) {
	b, err := DecodeKey(s)
	if err != nil {
		return nil, err
	}
	if len(b) != PublicKeyLen || b[0] != 0x04 {
		return nil, fmt.Errorf("subscriber public key must be a %d-byte uncompressed point, got %d bytes", PublicKeyLen, len(b))
	}
	return b, nil
}

// DecodeAuthSecret decodes and validates a subscriber auth secret.
func DecodeAuthSecret(s string) ([]byte, error) {
	b, err := DecodeKey(s)
	if err != nil {
		return nil, err
	}
	if len(b) != AuthSecretLen {
		return nil, fmt.Errorf("auth secret must be %d bytes, got %d", AuthSecretLen, len(b))
	}
	return b, nil
}
