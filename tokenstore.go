package smartsheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoToken is returned by a TokenStore that holds nothing.
var ErrNoToken = errors.New("smartsheet: no token stored")

// TokenStore is the interface for persisting OAuth tokens.
type TokenStore interface {
	SaveToken(ctx context.Context, token *Token) error
	LoadToken(ctx context.Context) (*Token, error)
}

// FileTokenStore stores a token in a JSON file readable only by its owner.
type FileTokenStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileTokenStore creates a new FileTokenStore.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file path.
func (f *FileTokenStore) Path() string {
	return f.path
}

// SaveToken writes the token to the file.
func (f *FileTokenStore) SaveToken(ctx context.Context, token *Token) error {
	if token == nil {
		return invalidArgument("token cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return &SerializationError{Err: err}
	}

	// Write to a temporary file first, then rename for atomicity
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save token file: %w", err)
	}
	return nil
}

// LoadToken reads the token from the file. A missing file yields ErrNoToken.
func (f *FileTokenStore) LoadToken(ctx context.Context) (*Token, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, &SerializationError{Err: err}
	}
	if token.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

// Delete removes the token file.
func (f *FileTokenStore) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps a token in memory (useful for testing).
type MemoryTokenStore struct {
	token *Token
	mu    sync.RWMutex
}

// NewMemoryTokenStore creates a new in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// SaveToken stores a copy of token.
func (m *MemoryTokenStore) SaveToken(ctx context.Context, token *Token) error {
	if token == nil {
		return invalidArgument("token cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *token
	m.token = &t
	return nil
}

// LoadToken returns a copy of the stored token.
func (m *MemoryTokenStore) LoadToken(ctx context.Context) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return nil, ErrNoToken
	}
	t := *m.token
	return &t, nil
}

// Delete removes the stored token.
func (m *MemoryTokenStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return nil
}
