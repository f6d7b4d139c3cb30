// Package supabase reads the product catalog from the hosted Postgres
// database the web front end writes to.
package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Simplici0/woodshop/internal/catalog"
)

const defaultSchema = "public"

// Source loads catalog snapshots from Postgres.
type Source struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	schema string
}

// Option configures a Source.
type Option func(*Source)

// WithSchema reads the tables from schema instead of public.
func WithSchema(schema string) Option {
	return func(s *Source) { s.schema = schema }
}

// WithLogger sets the logger used for skipped rows.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Source, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Source{pool: pool, logger: zap.NewNop(), schema: defaultSchema}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Source) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// LoadCatalog reads products and their components. Rows are not validated:
// the hosted tables accept whatever the browser sends, so bad values are left
// for the cost engine to report instead of failing the whole load.
func (s *Source) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id::text,
			COALESCE(name, ''),
			COALESCE(sku, ''),
			COALESCE(type, ''),
			COALESCE(cost_price, 0)::float8,
			COALESCE(sale_price, 0)::float8,
			COALESCE(stock, 0)::float8,
			COALESCE(min_stock, 0)::float8,
			COALESCE(unit, '')
		FROM `+s.table("products")+`
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	index := make(map[string]int)
	for rows.Next() {
		var (
			p   catalog.Product
			typ string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &typ, &p.UnitCost, &p.SalePrice, &p.Stock, &p.MinStock, &p.Unit); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if parsed, err := catalog.ParseProductType(typ); err == nil {
			p.Type = parsed
		} else {
			s.logger.Warn("product has unknown type",
				zap.String("product_id", p.ID),
				zap.String("type", typ),
			)
			p.Type = catalog.ProductType(strings.TrimSpace(typ))
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	compRows, err := s.pool.Query(ctx, `
		SELECT parent_id::text, component_id::text, COALESCE(quantity, 0)::float8
		FROM `+s.table("product_components")+`
		ORDER BY parent_id, position`)
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
		i, ok := index[parentID]
		if !ok {
			s.logger.Warn("component row for unknown parent", zap.String("parent_id", parentID))
			continue
		}
		products[i].Components = append(products[i].Components, c)
	}
	if err := compRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}

	s.logger.Debug("loaded catalog from postgres", zap.Int("products", len(products)))
	return catalog.Unvalidated(products), nil
}
