package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tradeflow/models"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	store := NewStore(path)

	catalog := Build(sampleLists())
	if err := store.Save(catalog); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(catalog, loaded) {
		t.Fatalf("loaded catalog differs:\n%+v\n%+v", catalog, loaded)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	catalog, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if catalog != nil {
		t.Fatalf("expected nil catalog, got %+v", catalog)
	}
}

func TestStoreDiscardsIncompatibleSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	snap := Snapshot{
		SchemaVersion: SnapshotSchemaVersion + 1,
		FetchedAt:     time.Now(),
		Catalog:       models.Catalog{Products: map[string]string{"BTCUSD": "BTC-USDT"}},
	}
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	catalog, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if catalog != nil {
		t.Fatalf("expected incompatible snapshot to be discarded, got %+v", catalog)
	}
}
