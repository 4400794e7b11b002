// Package vault seals files with a password-derived key.
//
// Sealed layout: magic (4) | salt (16) | nonce (24) | secretbox payload.
// The key is derived with scrypt so the password never touches disk.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// Extension is appended to a plaintext path to name its sealed copy.
const Extension = ".enc"

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var magic = []byte("LHV1")

var (
	// ErrWrongPassword is returned when the payload does not authenticate.
	ErrWrongPassword = errors.New("vault: wrong password or corrupted data")
	// ErrNotSealed is returned for input without the vault header.
	ErrNotSealed = errors.New("vault: data is not sealed")
	// ErrEmptyPassword is returned when sealing or opening without a password.
	ErrEmptyPassword = errors.New("vault: password is required")
)

func deriveKey(password string, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Seal encrypts plaintext with a key derived from password and a fresh salt.
func Seal(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

// Open reverses Seal.
func Open(sealed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	header := len(magic) + saltSize + nonceSize
	if len(sealed) < header+secretbox.Overhead || string(sealed[:len(magic)]) != string(magic) {
		return nil, ErrNotSealed
	}
	salt := sealed[len(magic) : len(magic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[len(magic)+saltSize:header])

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, sealed[header:], &nonce, key)
	if !ok {
		return nil, ErrWrongPassword
	}
	return plain, nil
}

// SealFile encrypts src into dst. dst is written via a temp file and rename.
func SealFile(src, dst, password string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	sealed, err := Seal(data, password)
	if err != nil {
		return err
	}
	return writeAtomic(dst, sealed)
}

// OpenFile decrypts src into dst.
func OpenFile(src, dst, password string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	plain, err := Open(data, password)
	if err != nil {
		return err
	}
	return writeAtomic(dst, plain)
}

// VerifyFile reports whether src opens with password without writing anything.
func VerifyFile(src, password string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	_, err = Open(data, password)
	return err
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
