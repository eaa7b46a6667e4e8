package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
)

// ManifestStorage implements the ManifestStorage interface for Badger.
// Manifests are keyed by file name: the knowledge directory is flat, so the
// file name identifies the document across re-index runs even when its
// generated document ID changes.
type ManifestStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewManifestStorage creates a new ManifestStorage instance.
func NewManifestStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ManifestStorage {
	return &ManifestStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ManifestStorage) GetManifest(fileName string) (*models.IndexManifest, error) {
	var manifest models.IndexManifest
	if err := s.db.Store().Get(fileName, &manifest); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manifest for %s: %w", fileName, err)
	}
	return &manifest, nil
}

func (s *ManifestStorage) SaveManifest(manifest *models.IndexManifest) error {
	if manifest.FileName == "" {
		return fmt.Errorf("manifest file name is required")
	}
	if err := s.db.Store().Upsert(manifest.FileName, manifest); err != nil {
		return fmt.Errorf("failed to save manifest for %s: %w", manifest.FileName, err)
	}
	return nil
}

func (s *ManifestStorage) ListManifests() ([]*models.IndexManifest, error) {
	var manifests []models.IndexManifest
	if err := s.db.Store().Find(&manifests, nil); err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	result := make([]*models.IndexManifest, len(manifests))
	for i := range manifests {
		result[i] = &manifests[i]
	}
	return result, nil
}

func (s *ManifestStorage) DeleteManifest(fileName string) error {
	if err := s.db.Store().Delete(fileName, &models.IndexManifest{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete manifest for %s: %w", fileName, err)
	}
	return nil
}
