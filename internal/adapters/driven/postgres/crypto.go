package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// blobVersion is the version byte for the encrypted cache blob format.
	blobVersion = 0x01

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32
)

var (
	// ErrInvalidKeySize is returned when the encryption key is not 32 bytes.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

	// ErrInvalidBlobSize is returned when the encrypted blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported cache blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt cache blob")
)

// CacheEncryptor encrypts serialized token cache blobs at rest with
// AES-256-GCM. Cache bits carry refresh tokens, so rows must not be readable
// from a database dump. The stored format is:
//
//	version(1) || nonce(12) || ciphertext(N)
type CacheEncryptor struct {
	gcm cipher.AEAD
}

// NewCacheEncryptor creates a new encryptor with the given 32-byte key.
func NewCacheEncryptor(key []byte) (*CacheEncryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &CacheEncryptor{gcm: gcm}, nil
}

// Encrypt encrypts a plaintext blob for storage.
func (e *CacheEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = blobVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return blob, nil
}

// Decrypt recovers the plaintext blob from its stored form.
func (e *CacheEncryptor) Decrypt(blob []byte) ([]byte, error) {
	minSize := 1 + nonceSize + e.gcm.Overhead()
	if len(blob) < minSize {
		return nil, ErrInvalidBlobSize
	}

	if blob[0] != blobVersion {
		return nil, fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
