package costing

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// IssueKind classifies a data anomaly met during a rollup.
type IssueKind int

const (
	// IssueCycle means the product is already on the ancestor chain.
	IssueCycle IssueKind = iota + 1
	// IssueMissing means a component references a product absent from the snapshot.
	IssueMissing
	// IssueBadQuantity means a component quantity was negative or not finite.
	IssueBadQuantity
	// IssueBadUnitCost means a raw material carried a negative or non-finite cost.
	IssueBadUnitCost
)

func (k IssueKind) String() string {
	switch k {
	case IssueCycle:
		return "cycle"
	case IssueMissing:
		return "missing"
	case IssueBadQuantity:
		return "bad_quantity"
	case IssueBadUnitCost:
		return "bad_unit_cost"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue is a soft failure. The affected edge or product contributed 0.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	ProductID string    `json:"product_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	// Path is the ancestor chain at detection time, root first, not
	// including ProductID.
	Path []string `json:"path,omitempty"`
}

func (i Issue) String() string {
	chain := strings.Join(append(append([]string(nil), i.Path...), i.ProductID), " -> ")
	switch i.Kind {
	case IssueCycle:
		return fmt.Sprintf("cyclic reference detected at product %s (%s)", i.ProductID, chain)
	case IssueMissing:
		if i.ParentID == "" {
			return fmt.Sprintf("product %s not found", i.ProductID)
		}
		return fmt.Sprintf("missing component %s referenced by %s", i.ProductID, i.ParentID)
	case IssueBadQuantity:
		return fmt.Sprintf("invalid quantity for component %s of %s, treated as 0", i.ProductID, i.ParentID)
	case IssueBadUnitCost:
		return fmt.Sprintf("invalid unit cost for raw material %s, treated as 0", i.ProductID)
	default:
		return fmt.Sprintf("%s at %s", i.Kind, chain)
	}
}

// MarshalText lets Issue kinds appear as strings in JSON.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the names produced by MarshalText.
func (k *IssueKind) UnmarshalText(b []byte) error {
	for _, kind := range []IssueKind{IssueCycle, IssueMissing, IssueBadQuantity, IssueBadUnitCost} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown issue kind %q", b)
}

// Reporter receives rollup diagnostics.
type Reporter interface {
	Report(Issue)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Issue)

// Report calls f(i).
func (f ReporterFunc) Report(i Issue) { f(i) }

// Discard drops every issue.
var Discard Reporter = ReporterFunc(func(Issue) {})

// Collector keeps issues in memory. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

// Report appends i.
func (c *Collector) Report(i Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, i)
}

// Issues returns a copy of the collected issues in report order.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Issue(nil), c.issues...)
}

// Multi fans an issue out to every non-nil reporter.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(i Issue) {
		for _, r := range reporters {
			if r != nil {
				r.Report(i)
			}
		}
	})
}

// LogReporter writes each issue as a warning.
func LogReporter(logger *zap.Logger) Reporter {
	return ReporterFunc(func(i Issue) {
		logger.Warn(i.String(),
			zap.Stringer("kind", i.Kind),
			zap.String("product_id", i.ProductID),
			zap.String("parent_id", i.ParentID),
			zap.Strings("path", i.Path),
		)
	})
}
