package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// randReader is swapped out only in tests that need deterministic output.
var randReader io.Reader = rand.Reader

// RFC 8291 / RFC 8188 constants. The info strings are part of the wire
// contract with browser push services: byte-exact, NUL-terminated.
const (
	recordSize = 4096
	saltLen    = 16
	cekLen     = 16
	nonceLen   = 12
)

var (
	webPushInfo = []byte("WebPush: info\x00")
	cekInfo     = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo   = []byte("Content-Encoding: nonce\x00")
)

// Encrypt seals plaintext for a subscriber using the aes128gcm content
// encoding (RFC 8291). A fresh ephemeral ECDH key pair and a fresh salt are
// generated on every call; reuse of either would break confidentiality.
//
// The returned record is ready to POST as the request body:
//
//	salt(16) || rs(4, big-endian) || idlen(1) || ephemeral pub(65) || ct+tag
func Encrypt(plaintext, subscriberPub, authSecret []byte) ([]byte, error) {
	if len(subscriberPub) != PublicKeyLen || subscriberPub[0] != 0x04 {
		return nil, fmt.Errorf("subscriber public key must be a %d-byte uncompressed point", PublicKeyLen)
	}
	if len(authSecret) != AuthSecretLen {
		return nil, fmt.Errorf("auth secret must be %d bytes, got %d", AuthSecretLen, len(authSecret))
	}

	curve := ecdh.P256()
	remote, err := curve.NewPublicKey(subscriberPub)
	if err != nil {
		return nil, fmt.Errorf("subscriber public key: %w", err)
	}
	local, err := curve.GenerateKey(randReader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	localPub := local.PublicKey().Bytes()

	shared, err := local.ECDH(remote)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement: %w", err)
	}

	// IKM = HKDF(salt=auth, ikm=shared, info="WebPush: info\0"||ua_pub||as_pub)
	info := make([]byte, 0, len(webPushInfo)+2*PublicKeyLen)
	info = append(info, webPushInfo...)
	info = append(info, subscriberPub...)
	info = append(info, localPub...)
	ikm, err := deriveKey(shared, authSecret, info, 32)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	cek, err := deriveKey(ikm, salt, cekInfo, cekLen)
	if err != nil {
		return nil, err
	}
	nonce, err := deriveKey(ikm, salt, nonceInfo, nonceLen)
	if err != nil {
		return nil, err
	}

	// Single-record payload: 0x02 marks the final record, no extra padding.
	padded := make([]byte, 0, len(plaintext)+1)
	padded = append(padded, plaintext...)
	padded = append(padded, 0x02)

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm mode: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, padded, nil)

	record := make([]byte, saltLen+4+1+PublicKeyLen, saltLen+4+1+PublicKeyLen+len(ciphertext))
	copy(record, salt)
	binary.BigEndian.PutUint32(record[saltLen:], recordSize)
	record[saltLen+4] = PublicKeyLen
	copy(record[saltLen+5:], localPub)
	record = append(record, ciphertext...)

	return record, nil
}

// deriveKey runs a single HKDF-SHA256 expand to length bytes.
func deriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, fmt.Errorf("hkdf derive: %w", err)
	}
	return out, nil
}
