package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/models"
)

// Store é um mapa CNPJ→status carregado uma vez no início do job e
// persistido uma vez no final. Somente statuses resolvidos (SIM/NÃO)
// são armazenados; ERRO nunca entra no cache para que seja reconsultado.
type Store interface {
	Load(ctx context.Context) (map[string]models.Status, error)
	Save(ctx context.Context, entries map[string]models.Status) error
}

// FileStore persists the cache as a flat JSON object on disk.
type FileStore struct {
	path   string
	logger *logrus.Logger
}

// NewFileStore creates a file-backed cache store
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the cache file. A missing or malformed file yields an empty
// map, never an error: the cache is an optimization, not a dependency.
func (s *FileStore) Load(_ context.Context) (map[string]models.Status, error) {
	entries := make(map[string]models.Status)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Warn("Failed to read cache file, starting empty")
		}
		return entries, nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Malformed cache file, starting empty")
		return entries, nil
	}

	for key, value := range raw {
		status := models.Status(value)
		if !status.Resolved() {
			continue
		}
		entries[key] = status
	}

	s.logger.WithFields(logrus.Fields{
		"path":    s.path,
		"entries": len(entries),
	}).Info("Cache loaded")

	return entries, nil
}

// Save overwrites the whole cache file atomically. Unresolved entries are
// dropped silently.
func (s *FileStore) Save(_ context.Context, entries map[string]models.Status) error {
	raw := make(map[string]string, len(entries))
	for key, status := range entries {
		if !status.Resolved() {
			continue
		}
		raw[key] = string(status)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".simples_cache_*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    s.path,
		"entries": len(raw),
	}).Info("Cache saved")

	return nil
}

// Stats returns entry count and backend info for the cache admin endpoints.
func (s *FileStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"backend": "file",
		"path":    s.path,
		"entries": len(entries),
	}, nil
}

// Delete removes a single CNPJ from the cache file.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.Save(ctx, entries)
}

// Clear removes every entry.
func (s *FileStore) Clear(ctx context.Context) error {
	return s.Save(ctx, map[string]models.Status{})
}
