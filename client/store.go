package client

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore keeps tokens in a YAML file readable only by the owner.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (Tokens, error) {
	var t Tokens
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	return t, yaml.Unmarshal(b, &t)
}

func (s FileStore) Save(t Tokens) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, b, 0o600)
}

// MemoryStore holds tokens for the lifetime of the process.
type MemoryStore struct {
	Tokens Tokens
}

func (m *MemoryStore) Load() (Tokens, error) { return m.Tokens, nil }

func (m *MemoryStore) Save(t Tokens) error {
	m.Tokens = t
	return nil
}
