// Package dashboard derives summary figures from already-loaded collections.
// It performs no I/O.
package dashboard

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/costing"
	"github.com/Simplici0/woodshop/internal/ledger"
)

const (
	DefaultRecentLimit = 5
	DefaultLowStock    = 5
)

// Input holds the collections the dashboard aggregates over.
type Input struct {
	Catalog      *catalog.Catalog
	Clients      []ledger.Client
	Suppliers    []ledger.Supplier
	Projects     []ledger.Project
	Sales        []ledger.Sale
	Purchases    []ledger.Purchase
	Transactions []ledger.Transaction
}

// Options tune Compute. Zero values select the defaults.
type Options struct {
	// Now anchors the current month and overdue checks.
	Now time.Time
	// LowStockDefault replaces a product MinStock of 0. Nil selects
	// DefaultLowStock; a pointer to 0 leaves such products at 0.
	LowStockDefault *float64
	RecentLimit     int
	// Reporter receives rollup issues met while valuing inventory.
	Reporter costing.Reporter
}

type LowStockItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Stock     float64 `json:"stock"`
	MinStock  float64 `json:"min_stock"`
}

type Activity struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount,omitempty"`
	At          time.Time `json:"at"`
}

type Stats struct {
	ClientCount        int            `json:"client_count"`
	SupplierCount      int            `json:"supplier_count"`
	ProductCount       int            `json:"product_count"`
	ActiveProjects     int            `json:"active_projects"`
	MonthlyRevenue     float64        `json:"monthly_revenue"`
	MonthlyExpenses    float64        `json:"monthly_expenses"`
	MonthlyProfit      float64        `json:"monthly_profit"`
	PendingReceivables float64        `json:"pending_receivables"`
	PendingPayables    float64        `json:"pending_payables"`
	OverdueCount       int            `json:"overdue_count"`
	LowStockCount      int            `json:"low_stock_count"`
	LowStock           []LowStockItem `json:"low_stock"`
	InventoryValue     float64        `json:"inventory_value"`
	Recent             []Activity     `json:"recent"`
}

// Compute aggregates in. Each product is valued with its own rollup, so a
// bad BOM only affects that product's share of the inventory value.
func Compute(in Input, opts Options) Stats {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	lowStockDefault := float64(DefaultLowStock)
	if opts.LowStockDefault != nil && *opts.LowStockDefault >= 0 {
		lowStockDefault = *opts.LowStockDefault
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	st := Stats{
		ClientCount:   len(in.Clients),
		SupplierCount: len(in.Suppliers),
		ProductCount:  in.Catalog.Len(),
		LowStock:      make([]LowStockItem, 0),
	}

	for _, p := range in.Projects {
		if p.Status.Active() {
			st.ActiveProjects++
		}
	}

	inMonth := monthMatcher(opts.Now)
	for _, s := range in.Sales {
		if s.Status != ledger.SaleCancelled && inMonth(s.SoldAt) {
			st.MonthlyRevenue += s.Total
		}
	}
	for _, p := range in.Purchases {
		if p.Status != ledger.PurchaseCancelled && inMonth(p.PurchasedAt) {
			st.MonthlyExpenses += p.Total
		}
	}
	for _, t := range in.Transactions {
		if t.Pending() {
			switch t.Kind {
			case ledger.Income:
				st.PendingReceivables += t.Amount
			case ledger.Expense:
				st.PendingPayables += t.Amount
			}
			if t.Overdue(opts.Now) {
				st.OverdueCount++
			}
			continue
		}
		if !inMonth(*t.PaidAt) {
			continue
		}
		switch t.Kind {
		case ledger.Income:
			st.MonthlyRevenue += t.Amount
		case ledger.Expense:
			st.MonthlyExpenses += t.Amount
		}
	}
	st.MonthlyProfit = st.MonthlyRevenue - st.MonthlyExpenses

	for _, p := range in.Catalog.Products() {
		minStock := p.MinStock
		if minStock == 0 {
			minStock = lowStockDefault
		}
		if p.Stock <= minStock {
			st.LowStock = append(st.LowStock, LowStockItem{ProductID: p.ID, Name: p.Name, Stock: p.Stock, MinStock: minStock})
		}
		if p.Stock > 0 {
			st.InventoryValue += p.Stock * costing.ComputeCost(in.Catalog, p.ID, opts.Reporter)
		}
	}
	st.LowStockCount = len(st.LowStock)

	st.Recent = recentActivity(in, opts.RecentLimit)
	return st
}

func monthMatcher(now time.Time) func(time.Time) bool {
	y, m, _ := now.Date()
	loc := now.Location()
	return func(t time.Time) bool {
		ty, tm, _ := t.In(loc).Date()
		return ty == y && tm == m
	}
}

func recentActivity(in Input, limit int) []Activity {
	feed := make([]Activity, 0, len(in.Clients)+len(in.Projects)+len(in.Sales)+len(in.Purchases))
	for _, c := range in.Clients {
		feed = append(feed, Activity{Kind: "client", ID: c.ID, Description: "New client " + c.Name, At: c.CreatedAt})
	}
	for _, p := range in.Projects {
		feed = append(feed, Activity{Kind: "project", ID: p.ID, Description: fmt.Sprintf("Project %s (%s)", p.Name, p.Status), Amount: p.Budget, At: p.CreatedAt})
	}
	for _, s := range in.Sales {
		feed = append(feed, Activity{Kind: "sale", ID: s.ID, Description: "Sale " + string(s.Status), Amount: s.Total, At: s.SoldAt})
	}
	for _, p := range in.Purchases {
		feed = append(feed, Activity{Kind: "purchase", ID: p.ID, Description: "Purchase " + string(p.Status), Amount: p.Total, At: p.PurchasedAt})
	}

	slices.SortStableFunc(feed, func(a, b Activity) int {
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed
}

// FilterByDateRange keeps the items whose date falls between from and to,
// both inclusive and compared by calendar day. A zero bound is open.
func FilterByDateRange[T any](items []T, date func(T) time.Time, from, to time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		d := day(date(it))
		if !from.IsZero() && d.Before(day(from)) {
			continue
		}
		if !to.IsZero() && d.After(day(to)) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
