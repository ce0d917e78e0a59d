// Package localstore keeps small device-local values in a YAML file: the
// cached color theme and whether the last session was signed in.
package localstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const authenticated = "authenticated"

type values struct {
	ColorTheme string `yaml:"colorTheme,omitempty"`
	AuthState  string `yaml:"authState,omitempty"`
}

// File is a YAML-backed key-value store. An empty path keeps the values in
// memory only.
type File struct {
	mu     sync.RWMutex
	path   string
	values values
}

// Open loads path. A missing file is treated as empty.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local file: %w", err)
	}

	if err := yaml.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("failed to parse local file yaml: %w", err)
	}
	return f, nil
}

// Path returns the backing file, empty for an in-memory store.
func (f *File) Path() string {
	return f.path
}

func (f *File) ColorTheme() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.ColorTheme
}

func (f *File) SetColorTheme(theme string) error {
	return f.update(func(v *values) { v.ColorTheme = theme })
}

// WasAuthenticated reports whether the last session on this device was
// signed in.
func (f *File) WasAuthenticated() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.AuthState == authenticated
}

func (f *File) SetAuthenticated(ok bool) error {
	return f.update(func(v *values) {
		v.AuthState = ""
		if ok {
			v.AuthState = authenticated
		}
	})
}

func (f *File) update(fn func(*values)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(&f.values)
	if f.path == "" {
		return nil
	}
	return f.save()
}

// save writes through a temp file so a crash never leaves a torn file.
func (f *File) save() error {
	data, err := yaml.Marshal(&f.values)
	if err != nil {
		return fmt.Errorf("failed to encode local file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".bookboard-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write local file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write local file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write local file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace local file: %w", err)
	}
	return nil
}
