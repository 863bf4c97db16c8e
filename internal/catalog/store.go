package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradeflow/logger"
	"tradeflow/models"
)

// SnapshotSchemaVersion marks the on-disk layout of persisted catalogs.
// Bump it whenever the Catalog shape changes; stale snapshots are then
// discarded on load instead of being migrated in place.
const SnapshotSchemaVersion = 1

// Snapshot is the persisted form of a built catalog.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	FetchedAt     time.Time      `json:"fetched_at"`
	Catalog       models.Catalog `json:"catalog"`
}

// Store persists catalog snapshots as JSON so a restart can subscribe before
// the first REST refresh completes.
type Store struct {
	path string
	log  *logger.Log
}

func NewStore(path string) *Store {
	return &Store{path: path, log: logger.GetLogger()}
}

// Load reads the persisted snapshot. A missing file or a snapshot written
// under a different schema version yields (nil, nil): the caller falls back
// to a fresh fetch.
func (s *Store) Load() (*models.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse catalog snapshot: %w", err)
	}

	if snap.SchemaVersion != SnapshotSchemaVersion {
		s.log.WithComponent("catalog_store").WithFields(logger.Fields{
			"found":    snap.SchemaVersion,
			"expected": SnapshotSchemaVersion,
		}).Warn("discarding catalog snapshot with incompatible schema version")
		return nil, nil
	}

	if snap.Catalog.Products == nil {
		snap.Catalog.Products = map[string]string{}
	}
	if snap.Catalog.Specs == nil {
		snap.Catalog.Specs = map[string]float64{}
	}
	return &snap.Catalog, nil
}

// Save writes the catalog under the current schema version.
func (s *Store) Save(catalog *models.Catalog) error {
	snap := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		FetchedAt:     time.Now().UTC(),
		Catalog:       *catalog,
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write catalog snapshot: %w", err)
	}
	return nil
}
