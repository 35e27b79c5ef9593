package services

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// sealVersion is the version byte for the sealed state format.
	// Allows future format changes while keeping old states decodable.
	sealVersion = 0x01

	// sealKeySize is the required key size for XChaCha20-Poly1305.
	sealKeySize = chacha20poly1305.KeySize
)

var (
	// ErrInvalidSealKey is returned when the sealing key is not 32 bytes.
	ErrInvalidSealKey = errors.New("state sealing key must be 32 bytes")

	// errSealMalformed is returned for undecodable or truncated envelopes.
	errSealMalformed = errors.New("malformed state envelope")

	// errSealOpenFailed is returned when authentication fails (tampered
	// envelope, wrong key, or wrong user binding).
	errSealOpenFailed = errors.New("failed to open state envelope")
)

// statePayload is what travels inside the sealed envelope. The stateID alone
// is the authorization key; ReturnURL is never trusted without a successful
// store lookup.
type statePayload struct {
	StateID   string `json:"sid"`
	ReturnURL string `json:"ru"`
}

// stateSealer seals state payloads with XChaCha20-Poly1305 under a
// server-held key. The wire format is:
//
//	base64url( version(1) || nonce(24) || ciphertext )
//
// The user ID is bound in as additional authenticated data, so an envelope
// intercepted from one user cannot open under another user's session even
// before the store lookup runs.
type stateSealer struct {
	aead cipher.AEAD
}

func newStateSealer(key []byte) (*stateSealer, error) {
	if len(key) != sealKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSealKey, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}

	return &stateSealer{aead: aead}, nil
}

// Seal encodes a payload for transport as a URL query value.
func (s *stateSealer) Seal(payload *statePayload, userID string) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal state payload: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nil, nonce, plaintext, []byte(userID))

	blob := make([]byte, 1+len(nonce)+len(ciphertext))
	blob[0] = sealVersion
	copy(blob[1:1+len(nonce)], nonce)
	copy(blob[1+len(nonce):], ciphertext)

	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// Open authenticates and decodes an envelope minted for userID.
func (s *stateSealer) Open(encoded, userID string) (*statePayload, error) {
	blob, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errSealMalformed
	}

	nonceSize := s.aead.NonceSize()
	if len(blob) < 1+nonceSize+s.aead.Overhead() {
		return nil, errSealMalformed
	}
	if blob[0] != sealVersion {
		return nil, errSealMalformed
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return nil, errSealOpenFailed
	}

	var payload statePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, errSealMalformed
	}

	return &payload, nil
}
