package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
)

const (
	artifactFile = "model.bin"
	metaFile     = "meta.json"
)

// FSStore implements ArtifactStore on the local filesystem. Each symbol owns
// a directory holding the artifact blob and the metadata document. Writes go
// to a temp file first and are renamed into place, so a concurrent reader
// sees either the old file or the new one. The metadata is renamed last: its
// stamp is the commit point for the pair.
type FSStore struct {
	dir string
	l   *applogger.Logger
}

// NewFSStore creates a store rooted at dir, creating it if missing.
func NewFSStore(dir string, l *applogger.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &models.PersistenceError{Op: "init", Err: err}
	}
	return &FSStore{dir: dir, l: l}, nil
}

func (s *FSStore) Save(ctx context.Context, symbol string, artifact []byte, meta *models.ModelMetadata) error {
	if err := ctx.Err(); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}

	symDir := filepath.Join(s.dir, sanitizeSymbol(symbol))
	if err := os.MkdirAll(symDir, 0o755); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}

	if err := writeAtomic(filepath.Join(symDir, artifactFile), artifact); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}

	mb, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}
	if err := writeAtomic(filepath.Join(symDir, metaFile), mb); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}

	if s.l != nil {
		s.l.Info("artifact saved",
			applogger.String("symbol", symbol),
			applogger.Int64("stamp", meta.Stamp),
			applogger.Int("artifact_bytes", len(artifact)),
		)
	}
	return nil
}

func (s *FSStore) Load(ctx context.Context, symbol string) ([]byte, *models.ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, &models.PersistenceError{Op: "load", Err: err}
	}

	symDir := filepath.Join(s.dir, sanitizeSymbol(symbol))
	meta, err := s.readMeta(symDir)
	if err != nil {
		return nil, nil, err
	}

	artifact, err := os.ReadFile(filepath.Join(symDir, artifactFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &models.PersistenceError{Op: "load", Err: models.ErrNotFound}
		}
		return nil, nil, &models.PersistenceError{Op: "load", Err: err}
	}

	stamp, err := artifactStamp(artifact)
	if err != nil {
		return nil, nil, &models.PersistenceError{Op: "load", Err: err}
	}
	if stamp != meta.Stamp {
		return nil, nil, &models.PersistenceError{
			Op:  "load",
			Err: fmt.Errorf("stamp mismatch for %s: artifact %d, metadata %d", symbol, stamp, meta.Stamp),
		}
	}
	return artifact, meta, nil
}

func (s *FSStore) Metadata(ctx context.Context, symbol string) (*models.ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "metadata", Err: err}
	}
	return s.readMeta(filepath.Join(s.dir, sanitizeSymbol(symbol)))
}

func (s *FSStore) Close() error { return nil }

func (s *FSStore) readMeta(symDir string) (*models.ModelMetadata, error) {
	b, err := os.ReadFile(filepath.Join(symDir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.PersistenceError{Op: "load", Err: models.ErrNotFound}
		}
		return nil, &models.PersistenceError{Op: "load", Err: err}
	}
	var meta models.ModelMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, &models.PersistenceError{Op: "load", Err: fmt.Errorf("decode metadata: %w", err)}
	}
	return &meta, nil
}

// artifactStamp peeks only at the stamp field of the encoded bundle, so the
// store stays ignorant of the full artifact encoding.
func artifactStamp(artifact []byte) (int64, error) {
	var probe struct {
		Stamp int64 `json:"stamp"`
	}
	if err := json.Unmarshal(artifact, &probe); err != nil {
		return 0, fmt.Errorf("decode artifact stamp: %w", err)
	}
	return probe.Stamp, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func sanitizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var b strings.Builder
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
