// Package container implements the outer archive envelope: a short magic
// header identifying the format, a version byte, a flags byte, and either
// a raw zip payload or an encrypted one.
//
// Layout:
//
//	[magic][version:1][flags:1][payload...]
//
// When the encrypted flag is set the payload is
//
//	[salt:16][nonce:24][ciphertext...]
//
// Input that starts with neither the current nor the legacy magic is
// treated as a bare zip archive and passed through unchanged, so archives
// produced before the envelope existed still open.
package container

import (
	"bytes"
	"errors"
	"fmt"
)

// Version is the only container version this build reads and writes.
const Version = 1

// Flag bits in the header flags byte.
const (
	flagEncrypted = 1 << 0

	knownFlags = flagEncrypted
)

var (
	// ErrDecrypt is returned for every authenticated-decryption failure.
	// Wrong password and corrupted ciphertext are deliberately not
	// distinguishable from each other.
	ErrDecrypt = errors.New("wrong password or corrupted file")

	// ErrPasswordRequired is returned when an encrypted container is
	// opened without a password.
	ErrPasswordRequired = errors.New("archive is encrypted and requires a password")

	// ErrEmptyPassword is returned when encryption is requested with an
	// empty password.
	ErrEmptyPassword = errors.New("encryption password must not be empty")
)

// Format identifies a container dialect by its magic strings. Magic is
// written on seal; both Magic and LegacyMagic are accepted on open.
type Format struct {
	Magic       string
	LegacyMagic string
}

// Seal wraps payload in a plaintext container.
func (f Format) Seal(payload []byte) []byte {
	out := make([]byte, 0, len(f.Magic)+2+len(payload))
	out = append(out, f.Magic...)
	out = append(out, Version, 0)
	return append(out, payload...)
}

// SealWithPassword wraps payload in an encrypted container. The key is
// derived from the password with Argon2id over a fresh random salt.
func (f Format) SealWithPassword(payload []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	sealed, err := encrypt(payload, password)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(f.Magic)+2+len(sealed))
	out = append(out, f.Magic...)
	out = append(out, Version, flagEncrypted)
	return append(out, sealed...), nil
}

// Open parses raw as a container and returns the inner zip payload along
// with whether the payload was encrypted. Raw input without a recognized
// magic is returned unchanged with encrypted=false.
func (f Format) Open(raw []byte, password string) ([]byte, bool, error) {
	magic, ok := f.matchMagic(raw)
	if !ok {
		return raw, false, nil
	}

	rest := raw[len(magic):]
	if len(rest) < 2 {
		return nil, false, fmt.Errorf("truncated container header")
	}

	version := rest[0]
	if version != Version {
		return nil, false, fmt.Errorf("unsupported container version %d", version)
	}

	flags := rest[1]
	if flags&^byte(knownFlags) != 0 {
		return nil, false, fmt.Errorf("unknown container flags 0x%02x", flags)
	}

	payload := rest[2:]
	if flags&flagEncrypted == 0 {
		return payload, false, nil
	}

	if password == "" {
		return nil, true, ErrPasswordRequired
	}

	plain, err := decrypt(payload, password)
	if err != nil {
		return nil, true, err
	}
	return plain, true, nil
}

// matchMagic returns the magic string raw begins with, preferring the
// current magic when both would match.
func (f Format) matchMagic(raw []byte) (string, bool) {
	if f.Magic != "" && bytes.HasPrefix(raw, []byte(f.Magic)) {
		return f.Magic, true
	}
	if f.LegacyMagic != "" && bytes.HasPrefix(raw, []byte(f.LegacyMagic)) {
		return f.LegacyMagic, true
	}
	return "", false
}
