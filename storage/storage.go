// Package storage provides durable key/value backends for the client
// session. Every backend treats a missing key as ("", false, nil) and
// deleting a missing key as a no-op.
package storage

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeStorageRead   = "STORAGE_READ_FAILED"
	TextCodeStorageWrite  = "STORAGE_WRITE_FAILED"
	TextCodeStorageSealed = "STORAGE_SEAL_FAILED"
)

// ErrInvalidKey is returned for empty keys
var ErrInvalidKey = goerrors.New("storage key cannot be empty", goerrors.CategoryValidation).
	WithTextCode("STORAGE_INVALID_KEY").
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidSealKey is returned when a sealing key has the wrong size.
var ErrInvalidSealKey = goerrors.New("invalid storage sealing key", goerrors.CategoryValidation).
	WithTextCode("STORAGE_INVALID_SEAL_KEY").
	WithCode(goerrors.CodeBadRequest)

// ReadError wraps a backend read failure for key.
func ReadError(err error, key string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "storage read failed").
		WithTextCode(TextCodeStorageRead).
		WithMetadata(map[string]any{"key": key})
}

// WriteError wraps a backend write failure for op.
func WriteError(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "storage write failed").
		WithTextCode(TextCodeStorageWrite).
		WithMetadata(map[string]any{"op": op})
}

// ValidateKeys rejects empty keys.
func ValidateKeys(keys ...string) error {
	for _, key := range keys {
		if key == "" {
			return ErrInvalidKey
		}
	}
	return nil
}
