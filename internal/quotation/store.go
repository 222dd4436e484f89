package quotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/conectapr/backend-b2b/internal/common"
)

// Status enumerates the quotation lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusProcessed, StatusCompleted, StatusRejected:
		return Status(raw), true
	default:
		return "", false
	}
}

// AllowedTransition reports whether a status change respects the forward
// lifecycle: pending -> processed -> completed, with rejected reachable
// from any non-terminal state.
func AllowedTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusProcessed || to == StatusRejected
	case StatusProcessed:
		return to == StatusCompleted || to == StatusRejected
	default:
		return false
	}
}

// Item is one persisted quotation line.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Quotation is the persisted quote request owned by a company account.
type Quotation struct {
	ID          string           `json:"id"`
	CompanyID   string           `json:"companyId"`
	Status      Status           `json:"status"`
	AdminNotes  *string          `json:"adminNotes"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	Items       []Item           `json:"items,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Store persists quotations in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a quotation store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a pending quotation with its line items in one transaction.
func (s *Store) Create(ctx context.Context, companyID string, items []Item) (Quotation, error) {
	cid, err := toUUID(companyID)
	if err != nil {
		return Quotation{}, common.BadRequest("invalid company id", err, nil)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Quotation{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var q Quotation
	row := tx.QueryRow(ctx,
		`INSERT INTO quotations (company_id, status) VALUES ($1, $2)
		 RETURNING id, company_id, status, created_at, updated_at`,
		cid, StatusPending)
	var qid, qcid uuid.UUID
	if err := row.Scan(&qid, &qcid, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return Quotation{}, fmt.Errorf("insert quotation: %w", err)
	}
	q.ID = qid.String()
	q.CompanyID = qcid.String()

	for _, item := range items {
		pid, err := toUUID(item.ProductID)
		if err != nil {
			return Quotation{}, common.BadRequest("invalid product id", err, map[string]any{"productId": item.ProductID})
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO quotation_items (quotation_id, product_id, quantity) VALUES ($1, $2, $3)`,
			qid, pid, item.Quantity); err != nil {
			return Quotation{}, fmt.Errorf("insert quotation item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Quotation{}, err
	}
	q.Items = items
	return q, nil
}

// GetByID loads a quotation without its line items.
func (s *Store) GetByID(ctx context.Context, id string) (Quotation, error) {
	qid, err := toUUID(id)
	if err != nil {
		return Quotation{}, common.NotFound("quotation not found", err)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_id, status, admin_notes, total_amount::text, created_at, updated_at
		 FROM quotations WHERE id = $1`, qid)
	return scanQuotation(row)
}

// GetByIDWithItems loads a quotation together with its line items.
func (s *Store) GetByIDWithItems(ctx context.Context, id string) (Quotation, error) {
	q, err := s.GetByID(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, quantity FROM quotation_items WHERE quotation_id = $1 ORDER BY created_at, product_id`,
		uuid.MustParse(q.ID))
	if err != nil {
		return Quotation{}, fmt.Errorf("list quotation items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		var item Item
		if err := rows.Scan(&pid, &item.Quantity); err != nil {
			return Quotation{}, err
		}
		item.ProductID = pid.String()
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

// ListForCompany returns a page of quotations owned by one company, newest first.
func (s *Store) ListForCompany(ctx context.Context, companyID string, page, perPage int) ([]Quotation, int64, error) {
	cid, err := toUUID(companyID)
	if err != nil {
		return nil, 0, common.BadRequest("invalid company id", err, nil)
	}
	return s.list(ctx,
		`SELECT id, company_id, status, admin_notes, total_amount::text, created_at, updated_at
		 FROM quotations WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		`SELECT COUNT(*) FROM quotations WHERE company_id = $1`,
		[]any{cid}, page, perPage)
}

// ListAll returns a page of all quotations, newest first.
func (s *Store) ListAll(ctx context.Context, page, perPage int) ([]Quotation, int64, error) {
	return s.list(ctx,
		`SELECT id, company_id, status, admin_notes, total_amount::text, created_at, updated_at
		 FROM quotations ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		`SELECT COUNT(*) FROM quotations`,
		nil, page, perPage)
}

func (s *Store) list(ctx context.Context, listSQL, countSQL string, args []any, page, perPage int) ([]Quotation, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var total int64
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotations: %w", err)
	}
	rows, err := s.pool.Query(ctx, listSQL, append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	out := make([]Quotation, 0, perPage)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetProcessed writes the reconciliation result: status, summary note and
// total in a single UPDATE so the record is never half-updated.
func (s *Store) SetProcessed(ctx context.Context, id string, adminNotes string, total decimal.Decimal) error {
	qid, err := toUUID(id)
	if err != nil {
		return common.NotFound("quotation not found", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE quotations SET status = $2, admin_notes = $3, total_amount = $4, updated_at = now() WHERE id = $1`,
		qid, StatusProcessed, adminNotes, total.StringFixed(2))
	if err != nil {
		return fmt.Errorf("update quotation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("quotation not found", nil)
	}
	return nil
}

// UpdateStatusNotes applies a moderation update to status and notes.
func (s *Store) UpdateStatusNotes(ctx context.Context, id string, status Status, adminNotes *string) (Quotation, error) {
	qid, err := toUUID(id)
	if err != nil {
		return Quotation{}, common.NotFound("quotation not found", err)
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE quotations
		 SET status = $2, admin_notes = COALESCE($3, admin_notes), updated_at = now()
		 WHERE id = $1
		 RETURNING id, company_id, status, admin_notes, total_amount::text, created_at, updated_at`,
		qid, status, adminNotes)
	q, err := scanQuotation(row)
	if err != nil {
		return Quotation{}, err
	}
	return q, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (Quotation, error) {
	var q Quotation
	var qid, cid uuid.UUID
	var notes *string
	var totalText *string
	if err := row.Scan(&qid, &cid, &q.Status, &notes, &totalText, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, common.NotFound("quotation not found", err)
		}
		return Quotation{}, err
	}
	q.ID = qid.String()
	q.CompanyID = cid.String()
	q.AdminNotes = notes
	if totalText != nil {
		total, err := decimal.NewFromString(*totalText)
		if err == nil {
			q.TotalAmount = &total
		}
	}
	return q, nil
}

func toUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}
