// Package ledger holds the shop's commercial records: clients, suppliers,
// projects, sales, purchases and financial transactions.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalid is returned when a record fails validation.
var ErrInvalid = errors.New("invalid record")

type ProjectStatus string

const (
	ProjectQuote      ProjectStatus = "quote"
	ProjectApproved   ProjectStatus = "approved"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectQuote, ProjectApproved, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Active reports whether work on the project is committed but not finished.
func (s ProjectStatus) Active() bool {
	return s == ProjectApproved || s == ProjectInProgress
}

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

func (s SaleStatus) Valid() bool {
	return s == SalePending || s == SaleCompleted || s == SaleCancelled
}

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseReceived  PurchaseStatus = "received"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) Valid() bool {
	return s == PurchasePending || s == PurchaseReceived || s == PurchaseCancelled
}

type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID        string        `json:"id"`
	ClientID  string        `json:"client_id,omitempty"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	Budget    float64       `json:"budget"`
	CreatedAt time.Time     `json:"created_at"`
}

type Sale struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"client_id,omitempty"`
	ProjectID string     `json:"project_id,omitempty"`
	Total     float64    `json:"total"`
	Status    SaleStatus `json:"status"`
	SoldAt    time.Time  `json:"sold_at"`
}

type Purchase struct {
	ID          string         `json:"id"`
	SupplierID  string         `json:"supplier_id,omitempty"`
	Total       float64        `json:"total"`
	Status      PurchaseStatus `json:"status"`
	PurchasedAt time.Time      `json:"purchased_at"`
}

// Transaction is a receivable (Income) or payable (Expense). A nil PaidAt
// means it is still pending.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description,omitempty"`
	Amount      float64         `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	BankAccount string          `json:"bank_account,omitempty"`
	CostCenter  string          `json:"cost_center,omitempty"`
}

func (t Transaction) Pending() bool {
	return t.PaidAt == nil
}

// Overdue reports whether t is unpaid and its due date is before now's day.
func (t Transaction) Overdue(now time.Time) bool {
	if !t.Pending() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today)
}

func (c Client) Validate() error {
	return validateParty(c.Name)
}

func (s Supplier) Validate() error {
	return validateParty(s.Name)
}

func (p Project) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !p.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown project status %q", p.Status))
	}
	errs = appendAmount(errs, "budget", p.Budget)
	return joinInvalid(errs)
}

func (s Sale) Validate() error {
	var errs []error
	if !s.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown sale status %q", s.Status))
	}
	errs = appendAmount(errs, "total", s.Total)
	return joinInvalid(errs)
}

func (p Purchase) Validate() error {
	var errs []error
	if !p.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown purchase status %q", p.Status))
	}
	errs = appendAmount(errs, "total", p.Total)
	return joinInvalid(errs)
}

func (t Transaction) Validate() error {
	var errs []error
	if !t.Kind.Valid() {
		errs = append(errs, fmt.Errorf("unknown transaction kind %q", t.Kind))
	}
	errs = appendAmount(errs, "amount", t.Amount)
	if t.DueDate.IsZero() {
		errs = append(errs, errors.New("due_date is required"))
	}
	if t.PaidAt != nil && t.PaidAt.IsZero() {
		errs = append(errs, errors.New("paid_at must be a date"))
	}
	return joinInvalid(errs)
}

func validateParty(name string) error {
	if strings.TrimSpace(name) == "" {
		return joinInvalid([]error{errors.New("name is required")})
	}
	return nil
}

func appendAmount(errs []error, field string, v float64) []error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return append(errs, fmt.Errorf("%s must be a non-negative number, got %v", field, v))
	}
	return errs
}

func joinInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
