package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// Quote is a priced job frozen at creation time. Reading it back never
// recalculates: later changes to rates or product costs do not affect it.
type Quote struct {
	ID            int64             `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Title         string            `json:"title"`
	Notes         string            `json:"notes"`
	ClientID      string            `json:"client_id,omitempty"`
	ProductID     string            `json:"product_id"`
	ProductName   string            `json:"product_name"`
	Quantity      float64           `json:"quantity"`
	UnitCost      float64           `json:"unit_cost"`
	LaborMinutes  float64           `json:"labor_minutes"`
	WastePercent  float64           `json:"waste_percent"`
	MarginPercent float64           `json:"margin_percent"`
	TaxEnabled    bool              `json:"tax_enabled"`
	TaxPercent    float64           `json:"tax_percent"`
	Currency      string            `json:"currency"`
	Breakdown     pricing.Breakdown `json:"breakdown"`
	Totals        pricing.Totals    `json:"totals"`
}

// QuoteListItem is the summary row shown in quote listings.
type QuoteListItem struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Total     float64   `json:"total"`
}

// CreateQuote stores q with its breakdown and totals as JSON snapshots and
// returns the assigned ID.
func (s *Store) CreateQuote(ctx context.Context, q Quote) (int64, error) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	if err := checkReference(ctx, s.db, "clients", "client", q.ClientID); err != nil {
		return 0, err
	}
	totalsJSON, err := json.Marshal(q.Totals)
	if err != nil {
		return 0, fmt.Errorf("encode quote totals: %w", err)
	}
	breakdownJSON, err := json.Marshal(q.Breakdown)
	if err != nil {
		return 0, fmt.Errorf("encode quote breakdown: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			created_at, title, notes, client_id, product_id, product_name, quantity, unit_cost_snapshot,
			labor_minutes, waste_percent, margin_percent, tax_enabled, tax_percent_snapshot, currency,
			totals_json, breakdown_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatTime(q.CreatedAt), nullString(q.Title), nullString(q.Notes), nullString(q.ClientID),
		q.ProductID, q.ProductName, q.Quantity, q.UnitCost,
		q.LaborMinutes, q.WastePercent, q.MarginPercent, q.TaxEnabled, q.TaxPercent, q.Currency,
		string(totalsJSON), string(breakdownJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read quote id: %w", err)
	}
	return id, nil
}

// ListQuotes returns quotes newest first. A non-empty query filters by title
// or notes.
func (s *Store) ListQuotes(ctx context.Context, query string) ([]QuoteListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			created_at,
			COALESCE(title, ''),
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteListItem, 0)
	for rows.Next() {
		var (
			item       QuoteListItem
			createdAt  sqlTime
			totalsJSON string
		)
		if err := rows.Scan(&item.ID, &createdAt, &item.Title, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.CreatedAt = createdAt.Time
		item.Total = extractTotalFromJSON(totalsJSON)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// GetQuote reads the stored snapshot of quote id.
func (s *Store) GetQuote(ctx context.Context, id int64) (Quote, error) {
	var (
		q             Quote
		createdAt     sqlTime
		totalsJSON    string
		breakdownJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, created_at, COALESCE(title, ''), COALESCE(notes, ''), COALESCE(client_id, ''),
			product_id, product_name, quantity, unit_cost_snapshot, labor_minutes,
			waste_percent, margin_percent, tax_enabled, tax_percent_snapshot, currency,
			totals_json, breakdown_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(
		&q.ID, &createdAt, &q.Title, &q.Notes, &q.ClientID,
		&q.ProductID, &q.ProductName, &q.Quantity, &q.UnitCost, &q.LaborMinutes,
		&q.WastePercent, &q.MarginPercent, &q.TaxEnabled, &q.TaxPercent, &q.Currency,
		&totalsJSON, &breakdownJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, fmt.Errorf("%w: quote %d", ErrNotFound, id)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("query quote %d: %w", id, err)
	}
	q.CreatedAt = createdAt.Time

	if err := json.Unmarshal([]byte(breakdownJSON), &q.Breakdown); err != nil {
		return Quote{}, fmt.Errorf("decode quote breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &q.Totals); err != nil {
		return Quote{}, fmt.Errorf("decode quote totals: %w", err)
	}
	if q.Totals.Total == 0 {
		q.Totals.Total = extractTotalFromJSON(totalsJSON)
	}
	return q, nil
}

// extractTotalFromJSON accepts the total under any of the keys older
// snapshots used.
func extractTotalFromJSON(totalsJSON string) float64 {
	var values map[string]float64
	if err := json.Unmarshal([]byte(totalsJSON), &values); err != nil {
		return 0
	}

	for _, key := range []string{"total", "grand_total", "final_total"} {
		if total, ok := values[key]; ok {
			return total
		}
	}

	return 0
}
