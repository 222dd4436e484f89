package quotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/conectapr/backend-b2b/internal/common"
	"github.com/conectapr/backend-b2b/internal/obs"
	"github.com/conectapr/backend-b2b/internal/quote"
)

// ErrInvalidStatusTransition is returned when a moderation update would move
// a quotation backwards or out of a terminal state.
var ErrInvalidStatusTransition = errors.New("quotation: invalid status transition")

type storeProvider interface {
	Create(ctx context.Context, companyID string, items []Item) (Quotation, error)
	GetByID(ctx context.Context, id string) (Quotation, error)
	GetByIDWithItems(ctx context.Context, id string) (Quotation, error)
	ListForCompany(ctx context.Context, companyID string, page, perPage int) ([]Quotation, int64, error)
	ListAll(ctx context.Context, page, perPage int) ([]Quotation, int64, error)
	SetProcessed(ctx context.Context, id string, adminNotes string, total decimal.Decimal) error
	UpdateStatusNotes(ctx context.Context, id string, status Status, adminNotes *string) (Quotation, error)
}

// Service bridges the pure pricing engine to persisted quotation state.
type Service struct {
	Store  storeProvider
	Engine *quote.Engine
	Lookup quote.ProductLookup
}

// WithCalculations pairs a quotation with its freshly computed comparison.
type WithCalculations struct {
	Quotation    Quotation                 `json:"quotation"`
	Calculations quote.ComparisonResult    `json:"calculations"`
	Summary      quote.FormattedComparison `json:"formattedSummary"`
}

// CanAccess is the ownership predicate for read access: admins see every
// quotation, companies only their own.
func CanAccess(caller common.Caller, q Quotation) bool {
	return caller.IsAdmin() || caller.ID == q.CompanyID
}

// Create stores a new pending quotation for the calling company. Only the
// customer role may create quotations, and every referenced product must
// exist.
func (s *Service) Create(ctx context.Context, caller common.Caller, items []Item) (Quotation, error) {
	if s.Store == nil {
		return Quotation{}, errors.New("quotation store not configured")
	}
	if caller.Role != common.RoleCustomer {
		return Quotation{}, common.Forbidden("only customers can create quotations")
	}
	if s.Lookup != nil {
		for _, item := range items {
			if _, err := s.Lookup.Resolve(ctx, item.ProductID); err != nil {
				return Quotation{}, err
			}
		}
	}
	return s.Store.Create(ctx, caller.ID, items)
}

// List returns the quotations visible to the caller.
func (s *Service) List(ctx context.Context, caller common.Caller, page, perPage int) ([]Quotation, int64, error) {
	if s.Store == nil {
		return nil, 0, errors.New("quotation store not configured")
	}
	if caller.IsAdmin() {
		return s.Store.ListAll(ctx, page, perPage)
	}
	return s.Store.ListForCompany(ctx, caller.ID, page, perPage)
}

// Get loads one quotation with items, enforcing the ownership predicate.
func (s *Service) Get(ctx context.Context, caller common.Caller, id string) (Quotation, error) {
	q, err := s.Store.GetByIDWithItems(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !CanAccess(caller, q) {
		return Quotation{}, common.Forbidden("access denied")
	}
	return q, nil
}

// GetWithCalculations loads a quotation and recomputes its pricing from
// scratch with default routing context. Previously stored totals are
// deliberately ignored.
func (s *Service) GetWithCalculations(ctx context.Context, id string) (WithCalculations, error) {
	q, err := s.Store.GetByIDWithItems(ctx, id)
	if err != nil {
		return WithCalculations{}, err
	}
	lines := make([]quote.LineRequest, 0, len(q.Items))
	for _, item := range q.Items {
		lines = append(lines, quote.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	calc, err := s.Engine.PriceComparison(ctx, lines, quote.Options{})
	if err != nil {
		return WithCalculations{}, err
	}
	return WithCalculations{
		Quotation:    q,
		Calculations: calc,
		Summary:      quote.FormatComparison(calc),
	}, nil
}

// PersistCalculations writes the reconciliation result back onto the
// quotation: status becomes processed and the summary note replaces any
// prior admin notes.
func (s *Service) PersistCalculations(ctx context.Context, id string, calc quote.ComparisonResult) error {
	note := fmt.Sprintf("Quote calculated - Total: R$ %s, Savings: R$ %s",
		calc.GrandTotal.StringFixed(2), calc.TotalSavings.StringFixed(2))
	return s.Store.SetProcessed(ctx, id, note, calc.GrandTotal)
}

// Process runs the full reconciliation: recompute, persist, reload. It is
// the only path that moves a quotation into the processed state.
func (s *Service) Process(ctx context.Context, id string) (WithCalculations, error) {
	result, err := s.GetWithCalculations(ctx, id)
	if err != nil {
		obs.ObserveQuoteCalculation("error", 0)
		return WithCalculations{}, err
	}
	if err := s.PersistCalculations(ctx, id, result.Calculations); err != nil {
		if obs.QuotationsProcessedTotal != nil {
			obs.QuotationsProcessedTotal.WithLabelValues("error").Inc()
		}
		return WithCalculations{}, err
	}
	updated, err := s.Store.GetByIDWithItems(ctx, id)
	if err != nil {
		return WithCalculations{}, err
	}
	result.Quotation = updated
	if obs.QuotationsProcessedTotal != nil {
		obs.QuotationsProcessedTotal.WithLabelValues("ok").Inc()
	}
	obs.ObserveQuoteCalculation("ok", len(result.Calculations.Items))
	return result, nil
}

// AdminUpdate applies a moderation change to status and notes, honouring
// the forward-only lifecycle.
func (s *Service) AdminUpdate(ctx context.Context, id string, status Status, adminNotes *string) (Quotation, error) {
	current, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !AllowedTransition(current.Status, status) {
		return Quotation{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}
	return s.Store.UpdateStatusNotes(ctx, id, status, adminNotes)
}
