package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the column order written by WriteCSV. ReadCSV matches columns by
// name, so extra or reordered columns are fine.
var CSVHeader = []string{"id", "name", "sku", "type", "unit_cost", "sale_price", "stock", "min_stock", "unit", "components"}

// RowError describes a CSV row that was skipped.
type RowError struct {
	Line int
	ID   string
	Err  error
}

func (e RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.ID, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ReadCSV parses products from r. Rows that fail to parse or validate are
// returned as RowErrors and skipped; the returned error is only set when the
// input as a whole is unreadable.
func ReadCSV(r io.Reader) ([]Product, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "name", "type"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("csv header is missing column %q", required)
		}
	}

	var (
		products []Product
		rowErrs  []RowError
		seen     = make(map[string]int)
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrs = append(rowErrs, RowError{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		p, err := parseRow(field)
		if err == nil {
			err = Validate(p)
		}
		if err == nil {
			if first, dup := seen[p.ID]; dup {
				err = fmt.Errorf("%w: already defined on line %d", ErrDuplicateID, first)
			}
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, ID: field("id"), Err: err})
			continue
		}
		seen[p.ID] = line
		products = append(products, p)
	}

	return products, rowErrs, nil
}

func parseRow(field func(string) string) (Product, error) {
	typ, err := ParseProductType(field("type"))
	if err != nil {
		return Product{}, err
	}
	p := Product{
		ID:   field("id"),
		Name: field("name"),
		SKU:  field("sku"),
		Type: typ,
		Unit: field("unit"),
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"unit_cost", &p.UnitCost},
		{"sale_price", &p.SalePrice},
		{"stock", &p.Stock},
		{"min_stock", &p.MinStock},
	} {
		if *f.dst, err = parseNumber(field(f.name), f.name); err != nil {
			return Product{}, err
		}
	}

	p.Components, err = ParseComponents(field("components"))
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// parseNumber accepts an empty cell as zero and a comma as decimal separator.
func parseNumber(raw, name string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric, got %q", name, raw)
	}
	return v, nil
}

// ParseComponents parses the "id:qty;id:qty" component notation.
func ParseComponents(raw string) ([]Component, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var comps []Component
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, qtyRaw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("component %q must be written as id:quantity", part)
		}
		qty, err := parseNumber(strings.TrimSpace(qtyRaw), "component quantity")
		if err != nil {
			return nil, err
		}
		comps = append(comps, Component{ProductID: strings.TrimSpace(id), Quantity: qty})
	}
	return comps, nil
}

// FormatComponents is the inverse of ParseComponents.
func FormatComponents(comps []Component) string {
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, c.ProductID+":"+formatFloat(c.Quantity))
	}
	return strings.Join(parts, ";")
}

// WriteCSV writes products with CSVHeader.
func WriteCSV(w io.Writer, products []Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		record := []string{
			p.ID,
			p.Name,
			p.SKU,
			string(p.Type),
			formatFloat(p.UnitCost),
			formatFloat(p.SalePrice),
			formatFloat(p.Stock),
			formatFloat(p.MinStock),
			p.Unit,
			FormatComponents(p.Components),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
