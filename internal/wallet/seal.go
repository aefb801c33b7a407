package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt parameters for at-rest key sealing.
	//
	// N=2^15 (~32MB RAM, tens of ms): the store is appended on every wallet
	// rotation, so derivation must stay cheap enough to sit on the rotation
	// path while still making offline brute force expensive.
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12

	sealedPrefix = "sealed:"
)

// Sealer encrypts private keys for at-rest storage in the wallet file.
// Sealing is reversible with the passphrase; the file format stays JSON.
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a sealer from a passphrase.
func NewSealer(passphrase []byte) *Sealer {
	p := make([]byte, len(passphrase))
	copy(p, passphrase)
	return &Sealer{passphrase: p}
}

// IsSealed reports whether a stored private key field is in sealed form.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}

// Seal encrypts a base58 private key into "sealed:" + base64(salt|nonce|ct).
func (s *Sealer) Seal(privateKey string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := s.cipher(salt)
	if err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nil, nonce, []byte(privateKey), nil)

	blob := make([]byte, 0, saltLen+nonceLen+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return sealedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a sealed private key back to its base58 form.
func (s *Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", errors.New("value is not sealed")
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed key: %w", err)
	}
	if len(blob) < saltLen+nonceLen+1 {
		return "", errors.New("sealed key too short")
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+nonceLen]
	ciphertext := blob[saltLen+nonceLen:]

	aesGCM, err := s.cipher(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("invalid passphrase")
	}
	return string(plaintext), nil
}

func (s *Sealer) cipher(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
