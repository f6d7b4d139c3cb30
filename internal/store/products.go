package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/woodshop/internal/catalog"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ImportStats counts rows written by ImportProducts.
type ImportStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ListProducts returns every product with its components, ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return loadProducts(ctx, s.db)
}

// GetProduct returns one product with its components.
func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	return getProduct(ctx, s.db, id)
}

// Snapshot loads the whole catalog for cost rollups.
func (s *Store) Snapshot(ctx context.Context) (*catalog.Catalog, error) {
	return snapshot(ctx, s.db)
}

// CreateProduct inserts p, generating an ID when p.ID is empty.
func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := catalog.Validate(p); err != nil {
		return catalog.Product{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check product existence: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: product %s already exists", ErrConflict, p.ID)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, sku, type, unit_cost, sale_price, stock, min_stock, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, p.SKU, string(p.Type), p.UnitCost, p.SalePrice, p.Stock, p.MinStock, p.Unit); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		return replaceComponents(ctx, tx, p.ID, p.Components)
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return s.GetProduct(ctx, p.ID)
}

// UpdateProduct overwrites the stored product with p, components included.
func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if err := catalog.Validate(p); err != nil {
		return catalog.Product{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET name = ?, sku = ?, type = ?, unit_cost = ?, sale_price = ?, stock = ?, min_stock = ?, unit = ?, updated_at = ?
			WHERE id = ?
		`, p.Name, p.SKU, string(p.Type), p.UnitCost, p.SalePrice, p.Stock, p.MinStock, p.Unit, formatTime(time.Now()), p.ID)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: product %s", ErrNotFound, p.ID)
		}

		return replaceComponents(ctx, tx, p.ID, p.Components)
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return s.GetProduct(ctx, p.ID)
}

// SetComponents replaces the bill of materials of product id. Edges that
// would make the product reach itself are refused with catalog.ErrCycle.
func (s *Store) SetComponents(ctx context.Context, id string, comps []catalog.Component) (catalog.Product, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Components = comps
		if err := catalog.Validate(p); err != nil {
			return err
		}
		return replaceComponents(ctx, tx, id, comps)
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product that no other product uses.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var parents int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT parent_id) FROM product_components WHERE component_id = ?`, id).Scan(&parents); err != nil {
			return fmt.Errorf("count product parents: %w", err)
		}
		if parents > 0 {
			return fmt.Errorf("%w: product %s is a component of %d product(s)", ErrConflict, id, parents)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return nil
	})
}

// ImportProducts upserts products in one transaction. Imported component
// lists are stored as given: references to unknown products and cycles are
// left for the cost engine to report.
func (s *Store) ImportProducts(ctx context.Context, products []catalog.Product) (ImportStats, error) {
	var stats ImportStats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, p := range products {
			if err := catalog.Validate(p); err != nil {
				return err
			}

			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, p.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check product existence: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, name, sku, type, unit_cost, sale_price, stock, min_stock, unit)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					sku = excluded.sku,
					type = excluded.type,
					unit_cost = excluded.unit_cost,
					sale_price = excluded.sale_price,
					stock = excluded.stock,
					min_stock = excluded.min_stock,
					unit = excluded.unit,
					updated_at = ?
			`, p.ID, p.Name, p.SKU, string(p.Type), p.UnitCost, p.SalePrice, p.Stock, p.MinStock, p.Unit, now); err != nil {
				return fmt.Errorf("upsert product %s: %w", p.ID, err)
			}

			if err := writeComponents(ctx, tx, p.ID, p.Components); err != nil {
				return err
			}

			if exists {
				stats.Updated++
			} else {
				stats.Inserted++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

// replaceComponents checks comps against the stored graph and rewrites them.
func replaceComponents(ctx context.Context, tx *sql.Tx, parentID string, comps []catalog.Component) error {
	if len(comps) > 0 {
		cat, err := snapshot(ctx, tx)
		if err != nil {
			return err
		}
		if cat.WouldCycle(parentID, comps) {
			return fmt.Errorf("%w: components of %s lead back to it", catalog.ErrCycle, parentID)
		}
	}
	return writeComponents(ctx, tx, parentID, comps)
}

func writeComponents(ctx context.Context, tx *sql.Tx, parentID string, comps []catalog.Component) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_components WHERE parent_id = ?`, parentID); err != nil {
		return fmt.Errorf("clear components of %s: %w", parentID, err)
	}
	for i, c := range comps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_components (parent_id, position, component_id, quantity)
			VALUES (?, ?, ?, ?)
		`, parentID, i, c.ProductID, c.Quantity); err != nil {
			return fmt.Errorf("insert component %s of %s: %w", c.ProductID, parentID, err)
		}
	}
	return nil
}

func snapshot(ctx context.Context, q querier) (*catalog.Catalog, error) {
	products, err := loadProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(products)
	if err != nil {
		return nil, fmt.Errorf("build catalog snapshot: %w", err)
	}
	return cat, nil
}

func getProduct(ctx context.Context, q querier, id string) (catalog.Product, error) {
	var (
		p   catalog.Product
		typ string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, name, sku, type, unit_cost, sale_price, stock, min_stock, unit
		FROM products
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.SKU, &typ, &p.UnitCost, &p.SalePrice, &p.Stock, &p.MinStock, &p.Unit)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("query product %s: %w", id, err)
	}
	p.Type = catalog.ProductType(typ)

	rows, err := q.QueryContext(ctx, `
		SELECT component_id, quantity
		FROM product_components
		WHERE parent_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("query components of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c catalog.Component
		if err := rows.Scan(&c.ProductID, &c.Quantity); err != nil {
			return catalog.Product{}, fmt.Errorf("scan component: %w", err)
		}
		p.Components = append(p.Components, c)
	}
	if err := rows.Err(); err != nil {
		return catalog.Product{}, fmt.Errorf("iterate components: %w", err)
	}
	return p, nil
}

func loadProducts(ctx context.Context, q querier) ([]catalog.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, sku, type, unit_cost, sale_price, stock, min_stock, unit
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			p   catalog.Product
			typ string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &typ, &p.UnitCost, &p.SalePrice, &p.Stock, &p.MinStock, &p.Unit); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Type = catalog.ProductType(typ)
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	rows.Close()

	compRows, err := q.QueryContext(ctx, `
		SELECT parent_id, component_id, quantity
		FROM product_components
		ORDER BY parent_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	defer compRows.Close()

	for compRows.Next() {
		var (
			parentID string
			c        catalog.Component
		)
		if err := compRows.Scan(&parentID, &c.ProductID, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		if i, ok := index[parentID]; ok {
			products[i].Components = append(products[i].Components, c)
		}
	}
	if err := compRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return products, nil
}
