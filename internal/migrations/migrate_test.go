package migrations

import (
	"path/filepath"
	"testing"

	"github.com/Simplici0/woodshop/internal/db"
)

func TestUpAppliesEveryMigrationOnce(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	for i := 0; i < 2; i++ {
		if err := Up(database, "../../migrations"); err != nil {
			t.Fatalf("run migrations (pass %d): %v", i, err)
		}
	}

	version, err := Version(database)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 4 {
		t.Fatalf("version=%d, want 4", version)
	}

	for _, table := range []string{"users", "rate_config", "products", "product_components", "clients", "suppliers", "projects", "sales", "purchases", "transactions", "quotes"} {
		var n int
		if err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			t.Fatalf("lookup table %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}
