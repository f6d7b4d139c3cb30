package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/woodshop/internal/ledger"
)

// Ledger is every commercial record the dashboard aggregates over.
type Ledger struct {
	Clients      []ledger.Client
	Suppliers    []ledger.Supplier
	Projects     []ledger.Project
	Sales        []ledger.Sale
	Purchases    []ledger.Purchase
	Transactions []ledger.Transaction
}

// LoadLedger reads all ledger collections.
func (s *Store) LoadLedger(ctx context.Context) (Ledger, error) {
	var (
		l   Ledger
		err error
	)
	if l.Clients, err = s.ListClients(ctx); err != nil {
		return Ledger{}, err
	}
	if l.Suppliers, err = s.ListSuppliers(ctx); err != nil {
		return Ledger{}, err
	}
	if l.Projects, err = s.ListProjects(ctx); err != nil {
		return Ledger{}, err
	}
	if l.Sales, err = s.ListSales(ctx); err != nil {
		return Ledger{}, err
	}
	if l.Purchases, err = s.ListPurchases(ctx); err != nil {
		return Ledger{}, err
	}
	if l.Transactions, err = s.ListTransactions(ctx); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func (s *Store) ListClients(ctx context.Context) ([]ledger.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone, created_at FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]ledger.Client, 0)
	for rows.Next() {
		var (
			c         ledger.Client
			createdAt sqlTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.CreatedAt = createdAt.Time
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone, created_at FROM suppliers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]ledger.Supplier, 0)
	for rows.Next() {
		var (
			sp        ledger.Supplier
			createdAt sqlTime
		)
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Email, &sp.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		sp.CreatedAt = createdAt.Time
		suppliers = append(suppliers, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]ledger.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(client_id, ''), name, status, budget, created_at
		FROM projects
		ORDER BY datetime(created_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]ledger.Project, 0)
	for rows.Next() {
		var (
			p         ledger.Project
			status    string
			createdAt sqlTime
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &status, &p.Budget, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = ledger.ProjectStatus(status)
		p.CreatedAt = createdAt.Time
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (s *Store) ListSales(ctx context.Context) ([]ledger.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(client_id, ''), COALESCE(project_id, ''), total, status, sold_at
		FROM sales
		ORDER BY datetime(sold_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]ledger.Sale, 0)
	for rows.Next() {
		var (
			sale   ledger.Sale
			status string
			soldAt sqlTime
		)
		if err := rows.Scan(&sale.ID, &sale.ClientID, &sale.ProjectID, &sale.Total, &status, &soldAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sale.Status = ledger.SaleStatus(status)
		sale.SoldAt = soldAt.Time
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]ledger.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(supplier_id, ''), total, status, purchased_at
		FROM purchases
		ORDER BY datetime(purchased_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]ledger.Purchase, 0)
	for rows.Next() {
		var (
			p           ledger.Purchase
			status      string
			purchasedAt sqlTime
		)
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.Total, &status, &purchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.Status = ledger.PurchaseStatus(status)
		p.PurchasedAt = purchasedAt.Time
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, description, amount, due_date, paid_at, bank_account, cost_center
		FROM transactions
		ORDER BY datetime(due_date), id
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]ledger.Transaction, 0)
	for rows.Next() {
		var (
			t       ledger.Transaction
			kind    string
			dueDate sqlTime
			paidAt  sqlTime
		)
		if err := rows.Scan(&t.ID, &kind, &t.Description, &t.Amount, &dueDate, &paidAt, &t.BankAccount, &t.CostCenter); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = ledger.TransactionKind(kind)
		t.DueDate = dueDate.Time
		t.PaidAt = paidAt.ptr()
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CreateClient inserts c, generating an ID when empty.
func (s *Store) CreateClient(ctx context.Context, c ledger.Client) (ledger.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := c.Validate(); err != nil {
		return ledger.Client{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, c.Phone, formatTime(c.CreatedAt)); err != nil {
		return ledger.Client{}, fmt.Errorf("insert client: %w", err)
	}
	return c, nil
}

// CreateSupplier inserts sp, generating an ID when empty.
func (s *Store) CreateSupplier(ctx context.Context, sp ledger.Supplier) (ledger.Supplier, error) {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}
	if err := sp.Validate(); err != nil {
		return ledger.Supplier{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sp.ID, sp.Name, sp.Email, sp.Phone, formatTime(sp.CreatedAt)); err != nil {
		return ledger.Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}
	return sp, nil
}

// CreateProject inserts p, generating an ID when empty.
func (s *Store) CreateProject(ctx context.Context, p ledger.Project) (ledger.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ledger.ProjectQuote
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return ledger.Project{}, err
	}
	if err := checkReference(ctx, s.db, "clients", "client", p.ClientID); err != nil {
		return ledger.Project{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, client_id, name, status, budget, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, nullString(p.ClientID), p.Name, string(p.Status), p.Budget, formatTime(p.CreatedAt)); err != nil {
		return ledger.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// CreateSale inserts sale, generating an ID when empty.
func (s *Store) CreateSale(ctx context.Context, sale ledger.Sale) (ledger.Sale, error) {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Status == "" {
		sale.Status = ledger.SaleCompleted
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}
	if err := sale.Validate(); err != nil {
		return ledger.Sale{}, err
	}
	if err := checkReference(ctx, s.db, "clients", "client", sale.ClientID); err != nil {
		return ledger.Sale{}, err
	}
	if err := checkReference(ctx, s.db, "projects", "project", sale.ProjectID); err != nil {
		return ledger.Sale{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, project_id, total, status, sold_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sale.ID, nullString(sale.ClientID), nullString(sale.ProjectID), sale.Total, string(sale.Status), formatTime(sale.SoldAt)); err != nil {
		return ledger.Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	return sale, nil
}

// CreatePurchase inserts p, generating an ID when empty.
func (s *Store) CreatePurchase(ctx context.Context, p ledger.Purchase) (ledger.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ledger.PurchaseReceived
	}
	if p.PurchasedAt.IsZero() {
		p.PurchasedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return ledger.Purchase{}, err
	}
	if err := checkReference(ctx, s.db, "suppliers", "supplier", p.SupplierID); err != nil {
		return ledger.Purchase{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, total, status, purchased_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, nullString(p.SupplierID), p.Total, string(p.Status), formatTime(p.PurchasedAt)); err != nil {
		return ledger.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}
	return p, nil
}

// CreateTransaction inserts t, generating an ID when empty.
func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	var paidAt any
	if t.PaidAt != nil {
		paidAt = formatTime(*t.PaidAt)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, description, amount, due_date, paid_at, bank_account, cost_center)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, string(t.Kind), t.Description, t.Amount, formatTime(t.DueDate), paidAt, t.BankAccount, t.CostCenter); err != nil {
		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}
