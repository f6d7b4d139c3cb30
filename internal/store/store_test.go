package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/costing"
	"github.com/Simplici0/woodshop/internal/db"
	"github.com/Simplici0/woodshop/internal/ledger"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(database, "../../migrations"))
	return New(database)
}

func seedWorkshop(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	for _, p := range []catalog.Product{
		{ID: "pine", Name: "Pine Board", Type: catalog.RawMaterial, UnitCost: 10, Stock: 40, MinStock: 10},
		{ID: "screw", Name: "Screw", Type: catalog.RawMaterial, UnitCost: 0.5, Stock: 500},
		{ID: "drawer", Name: "Drawer", Type: catalog.Subassembly, Components: []catalog.Component{
			catalog.Uses("pine", 2), catalog.Uses("screw", 4),
		}},
		{ID: "cabinet", Name: "Cabinet", Type: catalog.FinishedGood, SalePrice: 60, Components: []catalog.Component{
			catalog.Uses("drawer", 1), catalog.Uses("pine", 1),
		}},
	} {
		_, err := s.CreateProduct(ctx, p)
		require.NoError(t, err, p.ID)
	}
}

func TestCreateProductKeepsComponentOrder(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)

	got, err := s.GetProduct(context.Background(), "drawer")
	require.NoError(t, err)
	assert.Equal(t, "Drawer", got.Name)
	assert.Equal(t, catalog.Subassembly, got.Type)
	assert.Equal(t, []catalog.Component{{ProductID: "pine", Quantity: 2}, {ProductID: "screw", Quantity: 4}}, got.Components)
}

func TestCreateProductGeneratesID(t *testing.T) {
	s := newTestStore(t)

	got, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Oak Board", Type: catalog.RawMaterial, UnitCost: 18})
	require.NoError(t, err)
	assert.Len(t, got.ID, 36)
}

func TestCreateProductRejectsDuplicateAndInvalid(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, catalog.Product{ID: "pine", Name: "Pine again", Type: catalog.RawMaterial})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateProduct(ctx, catalog.Product{ID: "bad", Name: "Bad", Type: catalog.RawMaterial, UnitCost: -1})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)
}

func TestSnapshotFeedsCostRollup(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)

	cat, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, cat.Len())
	assert.InDelta(t, 22.0, costing.ComputeCost(cat, "drawer", nil), 1e-9)
	assert.InDelta(t, 32.0, costing.ComputeCost(cat, "cabinet", nil), 1e-9)
}

func TestSetComponentsRejectsCycle(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	_, err := s.SetComponents(ctx, "drawer", []catalog.Component{catalog.Uses("cabinet", 1)})
	assert.ErrorIs(t, err, catalog.ErrCycle)

	_, err = s.SetComponents(ctx, "drawer", []catalog.Component{catalog.Uses("drawer", 1)})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)

	got, err := s.GetProduct(ctx, "drawer")
	require.NoError(t, err)
	assert.Len(t, got.Components, 2, "rejected write must leave the BOM untouched")
}

func TestSetComponentsReplacesBOM(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	got, err := s.SetComponents(ctx, "drawer", []catalog.Component{catalog.Uses("pine", 3)})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Component{{ProductID: "pine", Quantity: 3}}, got.Components)

	_, err = s.SetComponents(ctx, "pine", []catalog.Component{catalog.Uses("screw", 1)})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)

	_, err = s.SetComponents(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProduct(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, "pine")
	require.NoError(t, err)
	p.UnitCost = 12
	updated, err := s.UpdateProduct(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 12.0, updated.UnitCost)

	_, err = s.UpdateProduct(ctx, catalog.Product{ID: "nope", Name: "Nope", Type: catalog.RawMaterial})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteProduct(ctx, "pine"), ErrConflict)
	assert.ErrorIs(t, s.DeleteProduct(ctx, "nope"), ErrNotFound)

	require.NoError(t, s.DeleteProduct(ctx, "cabinet"))
	_, err := s.GetProduct(ctx, "cabinet")
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM product_components WHERE parent_id = 'cabinet'`).Scan(&n))
	assert.Zero(t, n)
}

func TestImportProductsUpsertsAndKeepsDanglingReferences(t *testing.T) {
	s := newTestStore(t)
	seedWorkshop(t, s)
	ctx := context.Background()

	stats, err := s.ImportProducts(ctx, []catalog.Product{
		{ID: "pine", Name: "Pine Board", Type: catalog.RawMaterial, UnitCost: 11},
		{ID: "shelf", Name: "Shelf", Type: catalog.Subassembly, Components: []catalog.Component{
			catalog.Uses("pine", 1), catalog.Uses("ghost", 2),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Inserted: 1, Updated: 1}, stats)

	cat, err := s.Snapshot(ctx)
	require.NoError(t, err)

	c := &costing.Collector{}
	assert.InDelta(t, 11.0, costing.ComputeCost(cat, "shelf", c), 1e-9)
	require.Len(t, c.Issues(), 1)
	assert.Equal(t, costing.IssueMissing, c.Issues()[0].Kind)
}

func TestImportProductsIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ImportProducts(ctx, []catalog.Product{
		{ID: "oak", Name: "Oak", Type: catalog.RawMaterial, UnitCost: 20},
		{ID: "", Name: "No ID", Type: catalog.RawMaterial},
	})
	require.Error(t, err)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestLedgerRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

	client, err := s.CreateClient(ctx, ledger.Client{Name: "Ana", CreatedAt: day})
	require.NoError(t, err)
	_, err = s.CreateSupplier(ctx, ledger.Supplier{Name: "Maderas SAS", CreatedAt: day})
	require.NoError(t, err)
	project, err := s.CreateProject(ctx, ledger.Project{ClientID: client.ID, Name: "Kitchen", Status: ledger.ProjectInProgress, CreatedAt: day})
	require.NoError(t, err)
	_, err = s.CreateSale(ctx, ledger.Sale{ClientID: client.ID, ProjectID: project.ID, Total: 300, SoldAt: day})
	require.NoError(t, err)
	_, err = s.CreatePurchase(ctx, ledger.Purchase{Total: 120, PurchasedAt: day})
	require.NoError(t, err)
	paid := day.Add(time.Hour)
	_, err = s.CreateTransaction(ctx, ledger.Transaction{Kind: ledger.Income, Amount: 50, DueDate: day, PaidAt: &paid})
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, ledger.Transaction{Kind: ledger.Expense, Amount: 80, DueDate: day.AddDate(0, 0, 5)})
	require.NoError(t, err)

	l, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, l.Clients, 1)
	assert.Equal(t, day, l.Clients[0].CreatedAt)
	assert.Len(t, l.Suppliers, 1)
	require.Len(t, l.Projects, 1)
	assert.Equal(t, client.ID, l.Projects[0].ClientID)
	assert.Equal(t, ledger.ProjectInProgress, l.Projects[0].Status)
	require.Len(t, l.Sales, 1)
	assert.Equal(t, ledger.SaleCompleted, l.Sales[0].Status)
	assert.Equal(t, day, l.Sales[0].SoldAt)
	assert.Len(t, l.Purchases, 1)
	require.Len(t, l.Transactions, 2)
	require.NotNil(t, l.Transactions[0].PaidAt)
	assert.Equal(t, paid, *l.Transactions[0].PaidAt)
	assert.Nil(t, l.Transactions[1].PaidAt)
}

func TestLedgerWritesValidateRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateClient(ctx, ledger.Client{})
	assert.ErrorIs(t, err, ledger.ErrInvalid)
	_, err = s.CreateProject(ctx, ledger.Project{Name: "Kitchen", Status: "paused"})
	assert.ErrorIs(t, err, ledger.ErrInvalid)
	_, err = s.CreateSale(ctx, ledger.Sale{Total: -1})
	assert.ErrorIs(t, err, ledger.ErrInvalid)
	_, err = s.CreateTransaction(ctx, ledger.Transaction{Kind: ledger.Income, Amount: 5})
	assert.ErrorIs(t, err, ledger.ErrInvalid)

	l, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, l.Clients)
	assert.Empty(t, l.Projects)
	assert.Empty(t, l.Sales)
	assert.Empty(t, l.Transactions)
}

func TestLedgerWritesRejectUnknownReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProject(ctx, ledger.Project{ClientID: "c-1", Name: "Kitchen"})
	assert.ErrorIs(t, err, ErrUnknownReference)
	_, err = s.CreateSale(ctx, ledger.Sale{ProjectID: "p-1", Total: 10})
	assert.ErrorIs(t, err, ErrUnknownReference)
	_, err = s.CreatePurchase(ctx, ledger.Purchase{SupplierID: "s-1", Total: 10})
	assert.ErrorIs(t, err, ErrUnknownReference)
	_, err = s.CreateQuote(ctx, Quote{ClientID: "c-1", ProductID: "cabinet", Quantity: 1, Currency: "COP"})
	assert.ErrorIs(t, err, ErrUnknownReference)

	client, err := s.CreateClient(ctx, ledger.Client{Name: "Ana"})
	require.NoError(t, err)
	_, err = s.CreateQuote(ctx, Quote{ClientID: client.ID, ProductID: "cabinet", Quantity: 1, Currency: "COP"})
	assert.NoError(t, err)
}

func TestRateConfigDefaultsAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rc, err := s.GetRateConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, RateConfig{Currency: "COP"}, rc)

	rc.LaborHourlyRate = 18000
	rc.MarginPercent = 30
	rc.Currency = ""
	require.NoError(t, s.UpdateRateConfig(ctx, rc))

	got, err := s.GetRateConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18000.0, got.LaborHourlyRate)
	assert.Equal(t, 30.0, got.Global().MarginPercent)
	assert.Equal(t, "COP", got.Currency)
}

func TestListQuotesOrdersByDateDescAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(created time.Time, title, notes string, total float64) {
		t.Helper()
		_, err := s.CreateQuote(ctx, Quote{
			CreatedAt: created, Title: title, Notes: notes,
			ProductID: "cabinet", Quantity: 1, Currency: "COP",
			Totals: pricing.Totals{Total: total},
		})
		require.NoError(t, err)
	}
	mk(time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC), "Older", "pino", 100)
	mk(time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC), "Newest", "roble", 300)
	mk(time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC), "Middle", "", 200)

	all, err := s.ListQuotes(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Newest", "Middle", "Older"}, []string{all[0].Title, all[1].Title, all[2].Title})
	assert.Equal(t, 300.0, all[0].Total)

	filtered, err := s.ListQuotes(ctx, "pino")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Older", filtered[0].Title)
}

func TestGetQuoteReadsSnapshotWithoutRecalculation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateQuote(ctx, Quote{
		Title: "Cocina Ana", ProductID: "cabinet", ProductName: "Cabinet",
		Quantity: 3, UnitCost: 32, WastePercent: 7, MarginPercent: 35,
		TaxEnabled: true, TaxPercent: 19, Currency: "COP",
		Breakdown: pricing.Breakdown{MaterialCost: 123.45},
		Totals:    pricing.Totals{Total: 999.99},
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRateConfig(ctx, RateConfig{MarginPercent: 90}))

	q, err := s.GetQuote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 123.45, q.Breakdown.MaterialCost)
	assert.Equal(t, 999.99, q.Totals.Total)
	assert.Equal(t, 35.0, q.MarginPercent)
	assert.True(t, q.TaxEnabled)
	assert.Equal(t, "Cabinet", q.ProductName)

	_, err = s.GetQuote(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractTotalFromJSONAcceptsLegacyKeys(t *testing.T) {
	assert.Equal(t, 10.0, extractTotalFromJSON(`{"total":10}`))
	assert.Equal(t, 11.0, extractTotalFromJSON(`{"grand_total":11}`))
	assert.Equal(t, 12.0, extractTotalFromJSON(`{"final_total":12}`))
	assert.Equal(t, 0.0, extractTotalFromJSON(`not json`))
}
