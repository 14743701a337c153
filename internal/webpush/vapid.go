package webpush

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime is how long a signed VAPID token stays valid. Push services
// reject anything above 24 hours.
const tokenLifetime = 12 * time.Hour

// VAPID signs authentication tokens proving this server's identity to push
// services (RFC 8292). Built once at startup; safe for concurrent use.
type VAPID struct {
	key       *ecdsa.PrivateKey
	publicB64 string
	subject   string
}

// NewVAPID constructs a signer from a base64url raw 32-byte P-256 scalar and
// its 65-byte uncompressed public point. Any malformed or mismatched key
// material is a configuration error and must abort startup.
func NewVAPID(publicB64, privateB64, subject string) (*VAPID, error) {
	if subject == "" {
		return nil, fmt.Errorf("vapid: subject is required")
	}

	priv, err := DecodeKey(privateB64)
	if err != nil {
		return nil, fmt.Errorf("vapid private key: %w", err)
	}
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("vapid private key must be %d bytes, got %d", PrivateKeyLen, len(priv))
	}

	pub, err := DecodeKey(publicB64)
	if err != nil {
		return nil, fmt.Errorf("vapid public key: %w", err)
	}
	if len(pub) != PublicKeyLen || pub[0] != 0x04 {
		return nil, fmt.Errorf("vapid public key must be a %d-byte uncompressed point, got %d bytes", PublicKeyLen, len(pub))
	}

	// Round-trip through crypto/ecdh to validate the scalar and derive the
	// public point without touching deprecated elliptic APIs.
	ecdhKey, err := ecdh.P256().NewPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("vapid private key: %w", err)
	}
	derived := ecdhKey.PublicKey().Bytes()
	if string(derived) != string(pub) {
		return nil, fmt.Errorf("vapid public key does not match private key")
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(derived[1:33]),
			Y:     new(big.Int).SetBytes(derived[33:]),
		},
		D: new(big.Int).SetBytes(priv),
	}

	return &VAPID{key: key, publicB64: EncodeKey(pub), subject: subject}, nil
}

// Token signs a VAPID JWT scoped to the push service that owns endpoint.
// The audience is the endpoint's origin; ES256 produces the raw 64-byte
// r||s signature Web Push requires.
func (v *VAPID) Token(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no origin", endpoint)
	}

	claims := jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": time.Now().Add(tokenLifetime).Unix(),
		"sub": v.subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("sign vapid token: %w", err)
	}
	return token, nil
}

// PublicKey returns the base64url application server key for the
// "k=" Authorization parameter.
func (v *VAPID) PublicKey() string {
	return v.publicB64
}

// GenerateKeyPair mints a fresh VAPID key pair, returned as base64url
// (public 65-byte point, private 32-byte scalar).
func GenerateKeyPair() (publicB64, privateB64 string, err error) {
	key, err := ecdh.P256().GenerateKey(randReader)
	if err != nil {
		return "", "", fmt.Errorf("generate vapid key pair: %w", err)
	}
	return EncodeKey(key.PublicKey().Bytes()), EncodeKey(key.Bytes()), nil
}
