package container

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters. These follow the OWASP minimum-recommended
// configuration for interactive use and must not change without bumping
// the container version, since the salt alone does not encode them.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024 // KiB
	argonThreads = 1

	saltSize = 16
	keySize  = chacha20poly1305.KeySize
)

// deriveKey stretches password into an AEAD key over salt.
func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keySize)
}

func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// encrypt seals payload with XChaCha20-Poly1305 under a password-derived
// key and returns salt ++ nonce ++ ciphertext.
func encrypt(payload []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey(password, salt)
	defer zeroKey(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(payload)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, payload, nil), nil
}

// decrypt reverses encrypt. Every failure mode past the length check maps
// to ErrDecrypt so callers cannot tell a wrong password from tampering.
func decrypt(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < saltSize+chacha20poly1305.NonceSizeX+1 {
		return nil, ErrDecrypt
	}

	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[saltSize+chacha20poly1305.NonceSizeX:]

	key := deriveKey(password, salt)
	defer zeroKey(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
