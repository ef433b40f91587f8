package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/chacha20poly1305"
	"gopkg.in/yaml.v3"
)

// SealKeySize is the key size accepted by WithSealKey
const SealKeySize = chacha20poly1305.KeySize

// File persists entries as a YAML document. The file is re-read on every
// call so separate processes sharing the path observe each other's writes.
type File struct {
	mu      sync.Mutex
	path    string
	perm    os.FileMode
	sealKey []byte
	aead    cipher.AEAD
}

// FileOption customizes a File backend
type FileOption func(*File)

// WithSealKey encrypts the document with chacha20poly1305.
func WithSealKey(key []byte) FileOption {
	return func(f *File) {
		f.sealKey = append([]byte(nil), key...)
	}
}

// WithFileMode overrides the 0600 default
func WithFileMode(perm os.FileMode) FileOption {
	return func(f *File) {
		if perm != 0 {
			f.perm = perm
		}
	}
}

// NewFile returns a File backend rooted at path. The file is created lazily
// on first write.
func NewFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, goerrors.New("storage file path is required", goerrors.CategoryValidation).
			WithTextCode("STORAGE_PATH_REQUIRED").
			WithCode(goerrors.CodeBadRequest)
	}

	f := &File{path: path, perm: 0600}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.sealKey != nil {
		if len(f.sealKey) != SealKeySize {
			return nil, ErrInvalidSealKey.Clone().WithMetadata(map[string]any{
				"expected": SealKeySize,
				"got":      len(f.sealKey),
			})
		}
		aead, err := chacha20poly1305.New(f.sealKey)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "new chacha20 cipher").
				WithTextCode(TextCodeStorageSealed)
		}
		f.aead = aead
	}

	return f, nil
}

// GenerateSealKey returns a random key for WithSealKey.
func GenerateSealKey() ([]byte, error) {
	key := make([]byte, SealKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("storage: generate key: %w", err)
	}
	return key, nil
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

// Sealed reports whether the document is encrypted
func (f *File) Sealed() bool {
	return f.aead != nil
}

// Get returns the value stored under key
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	if err := ValidateKeys(key); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", false, ReadError(err, key)
	}
	val, ok := data[key]
	return val, ok, nil
}

// Set stores value under key
func (f *File) Set(_ context.Context, key, value string) error {
	if err := ValidateKeys(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return WriteError(err, "set")
	}
	data[key] = value
	if err := f.save(data); err != nil {
		return WriteError(err, "set")
	}
	return nil
}

// Delete removes keys. The file is left untouched when none of them exist.
func (f *File) Delete(_ context.Context, keys ...string) error {
	if err := ValidateKeys(keys...); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return WriteError(err, "delete")
	}

	changed := false
	for _, key := range keys {
		if _, ok := data[key]; ok {
			delete(data, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := f.save(data); err != nil {
		return WriteError(err, "delete")
	}
	return nil
}

func (f *File) load() (map[string]string, error) {
	data := map[string]string{}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return data, nil
	}

	if f.aead != nil {
		if raw, err = f.open(raw); err != nil {
			return nil, err
		}
	}

	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", f.path, err)
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

func (f *File) save(data map[string]string) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}

	if f.aead != nil {
		if raw, err = f.seal(raw); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}

	// write to a sibling and rename so readers never see a torn document
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(f.perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, f.aead.NonceSize(), f.aead.NonceSize()+len(plain)+f.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return f.aead.Seal(nonce, nonce, plain, nil), nil
}

func (f *File) open(sealed []byte) ([]byte, error) {
	size := f.aead.NonceSize()
	if len(sealed) < size {
		return nil, goerrors.New("sealed storage document is truncated", goerrors.CategoryInternal).
			WithTextCode(TextCodeStorageSealed)
	}
	plain, err := f.aead.Open(nil, sealed[:size], sealed[size:], nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to open sealed storage document").
			WithTextCode(TextCodeStorageSealed)
	}
	return plain, nil
}
