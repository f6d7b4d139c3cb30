package seed

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/woodshop/internal/auth"
	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/money"
)

const defaultTaxPercent = 19

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// DemoCatalog adds a small cabinet BOM for trying the cost rollup.
	DemoCatalog bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// DemoProducts is the catalog inserted when Config.DemoCatalog is set.
func DemoProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "pine-board", Name: "Pine Board", SKU: "MAT-PINE-01", Type: catalog.RawMaterial, UnitCost: 10, Stock: 40, MinStock: 10, Unit: "board"},
		{ID: "screw", Name: "Screw", SKU: "MAT-SCREW-01", Type: catalog.RawMaterial, UnitCost: 0.5, Stock: 500, MinStock: 100, Unit: "unit"},
		{ID: "drawer", Name: "Drawer", SKU: "SUB-DRAWER-01", Type: catalog.Subassembly, Unit: "unit", Components: []catalog.Component{
			catalog.Uses("pine-board", 2),
			catalog.Uses("screw", 4),
		}},
		{ID: "cabinet", Name: "Cabinet", SKU: "FG-CABINET-01", Type: catalog.FinishedGood, SalePrice: 60, Unit: "unit", Components: []catalog.Component{
			catalog.Uses("drawer", 1),
			catalog.Uses("pine-board", 1),
		}},
	}
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureRateConfig(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.DemoCatalog {
		for _, p := range DemoProducts() {
			if err := ensureProduct(tx, p, &stats); err != nil {
				_ = tx.Rollback()
				return Stats{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// seedAdmin inserts the admin user, or upgrades its stored hash to bcrypt
// when it still uses a legacy format and the configured password matches.
func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var stored string
	err := tx.QueryRow(`SELECT password_hash FROM users WHERE email = ? LIMIT 1`, email).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hash); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check admin user existence: %w", err)
	}

	if !auth.NeedsRehash(stored) || !auth.VerifyPassword(stored, password) {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := tx.Exec(`UPDATE users SET password_hash = ? WHERE email = ?`, hash, email); err != nil {
		return fmt.Errorf("upgrade admin password hash: %w", err)
	}
	stats.Updates++
	return nil
}

func ensureRateConfig(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM rate_config WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check rate config existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO rate_config (
			id,
			labor_hourly_rate,
			overhead_fixed,
			overhead_percent,
			rework_percent,
			waste_percent,
			margin_percent,
			tax_percent,
			currency
		)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
	`, 0, 0, 0, 0, 0, 0, defaultTaxPercent, money.DefaultCurrency); err != nil {
		return fmt.Errorf("insert rate config singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureProduct(tx *sql.Tx, p catalog.Product, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE id = ? LIMIT 1)`, p.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check product %s existence: %w", p.ID, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO products (id, name, sku, type, unit_cost, sale_price, stock, min_stock, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.SKU, string(p.Type), p.UnitCost, p.SalePrice, p.Stock, p.MinStock, p.Unit); err != nil {
		return fmt.Errorf("insert product %s: %w", p.ID, err)
	}
	for i, c := range p.Components {
		if _, err := tx.Exec(`
			INSERT INTO product_components (parent_id, position, component_id, quantity)
			VALUES (?, ?, ?, ?)
		`, p.ID, i, c.ProductID, c.Quantity); err != nil {
			return fmt.Errorf("insert component %s of %s: %w", c.ProductID, p.ID, err)
		}
	}
	stats.Inserts++
	return nil
}
