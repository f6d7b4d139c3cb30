package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/woodshop/internal/money"
	"github.com/Simplici0/woodshop/internal/pricing"
)

// RateConfig is the singleton row of shop-wide pricing defaults.
type RateConfig struct {
	LaborHourlyRate float64 `json:"labor_hourly_rate"`
	OverheadFixed   float64 `json:"overhead_fixed"`
	OverheadPercent float64 `json:"overhead_percent"`
	ReworkPercent   float64 `json:"rework_percent"`
	WastePercent    float64 `json:"waste_percent"`
	MarginPercent   float64 `json:"margin_percent"`
	TaxPercent      float64 `json:"tax_percent"`
	Currency        string  `json:"currency"`
}

// Global maps the rate config onto calculator inputs.
func (rc RateConfig) Global() pricing.GlobalInput {
	return pricing.GlobalInput{
		LaborHourlyRate: rc.LaborHourlyRate,
		OverheadFixed:   rc.OverheadFixed,
		OverheadPercent: rc.OverheadPercent,
		ReworkPercent:   rc.ReworkPercent,
		WastePercent:    rc.WastePercent,
		MarginPercent:   rc.MarginPercent,
		TaxPercent:      rc.TaxPercent,
	}
}

// EnsureRateConfig inserts the default singleton row when it is missing.
func (s *Store) EnsureRateConfig(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_config (id, currency)
		VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING
	`, money.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("insert default rate_config: %w", err)
	}
	return nil
}

// GetRateConfig returns the singleton, creating it with defaults first.
func (s *Store) GetRateConfig(ctx context.Context) (RateConfig, error) {
	if err := s.EnsureRateConfig(ctx); err != nil {
		return RateConfig{}, err
	}

	var rc RateConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT labor_hourly_rate, overhead_fixed, overhead_percent, rework_percent, waste_percent, margin_percent, tax_percent, currency
		FROM rate_config
		WHERE id = 1
	`).Scan(
		&rc.LaborHourlyRate,
		&rc.OverheadFixed,
		&rc.OverheadPercent,
		&rc.ReworkPercent,
		&rc.WastePercent,
		&rc.MarginPercent,
		&rc.TaxPercent,
		&rc.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RateConfig{}, fmt.Errorf("%w: rate_config singleton", ErrNotFound)
		}
		return RateConfig{}, fmt.Errorf("query rate_config: %w", err)
	}
	return rc, nil
}

// UpdateRateConfig overwrites the singleton. An empty currency keeps the default.
func (s *Store) UpdateRateConfig(ctx context.Context, rc RateConfig) error {
	if err := s.EnsureRateConfig(ctx); err != nil {
		return err
	}
	if rc.Currency == "" {
		rc.Currency = money.DefaultCurrency
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE rate_config
		SET
			labor_hourly_rate = ?,
			overhead_fixed = ?,
			overhead_percent = ?,
			rework_percent = ?,
			waste_percent = ?,
			margin_percent = ?,
			tax_percent = ?,
			currency = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		rc.LaborHourlyRate,
		rc.OverheadFixed,
		rc.OverheadPercent,
		rc.ReworkPercent,
		rc.WastePercent,
		rc.MarginPercent,
		rc.TaxPercent,
		rc.Currency,
	)
	if err != nil {
		return fmt.Errorf("update rate_config: %w", err)
	}
	return nil
}
