package storage

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt is returned when an encrypted file cannot be opened with the
// configured key.
var ErrDecrypt = errors.New("storage: cannot decrypt session file")

// File keeps all keys in one JSON document. Writes go to a temp file that is
// renamed over the original. With a key set the document is sealed with
// nacl/secretbox.
type File struct {
	path string
	key  *[32]byte

	mu   sync.Mutex
	data map[string]string
}

// NewFile opens or creates the session file at path. key may be nil.
func NewFile(path string, key *[32]byte) (*File, error) {
	f := &File{path: path, key: key, data: make(map[string]string)}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if f.key != nil {
		if len(raw) < nonceSize {
			return ErrDecrypt
		}
		var nonce [nonceSize]byte
		copy(nonce[:], raw[:nonceSize])
		opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, f.key)
		if !ok {
			return ErrDecrypt
		}
		raw = opened
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return fmt.Errorf("storage: decode %s: %w", f.path, err)
	}
	return nil
}

func (f *File) flush() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return err
	}
	if f.key != nil {
		var nonce [nonceSize]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return err
		}
		raw = secretbox.Seal(nonce[:], raw, &nonce, f.key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.data[key]; ok && cur == value {
		return nil
	}
	f.data[key] = value
	return f.flush()
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flush()
}

// Close is a no-op; every write is already flushed.
func (f *File) Close() error { return nil }
