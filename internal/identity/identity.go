// Package identity supplies the user id that scopes every graph request.
// Callers resolve it once and pass it down; nothing reads it globally.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Provider returns the current user id.
type Provider interface {
	UserID() (string, error)
}

// Static always returns the same id.
type Static string

// UserID implements Provider.
func (s Static) UserID() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", errors.New("empty user id")
	}
	return string(s), nil
}

// File is an anonymous device identity: a random uuid created on first use
// and kept in a file so later runs see the same user.
type File struct {
	Path string

	mu sync.Mutex
	id string
}

// DefaultPath returns ~/.starfield/device_id.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".starfield", "device_id"), nil
}

// NewFile returns a File at path, or at DefaultPath when path is empty.
func NewFile(path string) (*File, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &File{Path: path}, nil
}

// UserID implements Provider.
func (f *File) UserID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.id != "" {
		return f.id, nil
	}

	data, err := os.ReadFile(f.Path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr == nil {
			f.id = id
			return id, nil
		}
		// Unreadable contents are replaced with a fresh id.
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	f.id = id
	return id, nil
}
