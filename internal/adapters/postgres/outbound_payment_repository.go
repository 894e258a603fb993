package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

const outboundPaymentColumns = `object_id, created, updated, paid, account, payment_id, basket_id, message,
	transaction_status, product, amount, currency, from_bank_account, from_bank,
	to_bank_account, to_bank, to_bank_account_name, text_message`

// OutboundPaymentRepository implements ports.OutboundPaymentRepository on PostgreSQL
type OutboundPaymentRepository struct {
	db      DBTX
	clock   timeutil.Clock
	timeout time.Duration
}

var _ ports.OutboundPaymentRepository = (*OutboundPaymentRepository)(nil)

// NewOutboundPaymentRepository creates a repository over db (a pool or a transaction)
func NewOutboundPaymentRepository(db DBTX, clock timeutil.Clock, timeout time.Duration) *OutboundPaymentRepository {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &OutboundPaymentRepository{db: db, clock: clock, timeout: timeout}
}

func (r *OutboundPaymentRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts the record, assigning ObjectID, Created and Updated when empty
func (r *OutboundPaymentRepository) Create(ctx context.Context, payment *models.OutboundPayment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if payment.ObjectID == "" {
		payment.ObjectID = uuid.NewString()
	}
	id, err := uuid.Parse(payment.ObjectID)
	if err != nil {
		return fmt.Errorf("invalid object id %q: %w", payment.ObjectID, err)
	}
	now := r.clock.Now().UTC()
	if payment.Created.IsZero() {
		payment.Created = now
	}
	if payment.Updated.IsZero() {
		payment.Updated = now
	}
	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `INSERT INTO outbound_payments (`+outboundPaymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		id, payment.Created, payment.Updated, nullTime(payment.Paid), payment.Account,
		nullText(payment.PaymentID), nullText(payment.BasketID), payment.Message,
		string(payment.TransactionStatus), string(payment.Product), amount, payment.Currency,
		payment.FromBankAccount, payment.FromBank, payment.ToBankAccount, payment.ToBank,
		payment.ToBankAccountName, payment.TextMessage,
	)
	if err != nil {
		return fmt.Errorf("create outbound payment: %w", err)
	}
	return nil
}

// Get returns domain.ErrPaymentNotFound when no record exists
func (r *OutboundPaymentRepository) Get(ctx context.Context, objectID string) (*models.OutboundPayment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := uuid.Parse(objectID)
	if err != nil {
		return nil, domain.ErrPaymentNotFound
	}

	rows, err := r.db.Query(ctx, `SELECT `+outboundPaymentColumns+` FROM outbound_payments WHERE object_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get outbound payment: %w", err)
	}
	payment, err := pgx.CollectExactlyOneRow(rows, scanOutboundPayment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outbound payment: %w", err)
	}
	return payment, nil
}

// GetMany returns the records that exist among objectIDs, in created order
func (r *OutboundPaymentRepository) GetMany(ctx context.Context, objectIDs []string) ([]*models.OutboundPayment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ids := make([]string, 0, len(objectIDs))
	for _, s := range objectIDs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id.String())
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+outboundPaymentColumns+`
		FROM outbound_payments WHERE object_id = ANY($1::uuid[]) ORDER BY created, object_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get outbound payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, scanOutboundPayment)
	if err != nil {
		return nil, fmt.Errorf("get outbound payments: %w", err)
	}
	return payments, nil
}

// FindByBasket returns every record associated with basketID
func (r *OutboundPaymentRepository) FindByBasket(ctx context.Context, basketID string) ([]*models.OutboundPayment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+outboundPaymentColumns+`
		FROM outbound_payments WHERE basket_id = $1 ORDER BY created, object_id`, basketID)
	if err != nil {
		return nil, fmt.Errorf("find outbound payments of basket %s: %w", basketID, err)
	}
	payments, err := pgx.CollectRows(rows, scanOutboundPayment)
	if err != nil {
		return nil, fmt.Errorf("find outbound payments of basket %s: %w", basketID, err)
	}
	return payments, nil
}

// Update overwrites the mutable fields and bumps Updated
func (r *OutboundPaymentRepository) Update(ctx context.Context, payment *models.OutboundPayment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := uuid.Parse(payment.ObjectID)
	if err != nil {
		return domain.ErrPaymentNotFound
	}
	updated := r.clock.Now().UTC()

	tag, err := r.db.Exec(ctx, `UPDATE outbound_payments SET
			updated = $2, paid = $3, payment_id = $4, basket_id = $5, message = $6,
			transaction_status = $7, text_message = $8
		WHERE object_id = $1`,
		id, updated, nullTime(payment.Paid), nullText(payment.PaymentID), nullText(payment.BasketID),
		payment.Message, string(payment.TransactionStatus), payment.TextMessage,
	)
	if err != nil {
		return fmt.Errorf("update outbound payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	payment.Updated = updated
	return nil
}

// ClearBasket removes the basket association from every record in the basket
func (r *OutboundPaymentRepository) ClearBasket(ctx context.Context, basketID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE outbound_payments SET basket_id = NULL, updated = $2 WHERE basket_id = $1`,
		basketID, r.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear basket %s: %w", basketID, err)
	}
	return nil
}

func scanOutboundPayment(row pgx.CollectableRow) (*models.OutboundPayment, error) {
	var (
		p               models.OutboundPayment
		id              uuid.UUID
		paid            pgtype.Timestamptz
		paymentID       pgtype.Text
		basketID        pgtype.Text
		status, product string
		amount          pgtype.Numeric
	)
	err := row.Scan(
		&id, &p.Created, &p.Updated, &paid, &p.Account, &paymentID, &basketID, &p.Message,
		&status, &product, &amount, &p.Currency, &p.FromBankAccount, &p.FromBank,
		&p.ToBankAccount, &p.ToBank, &p.ToBankAccountName, &p.TextMessage,
	)
	if err != nil {
		return nil, err
	}

	p.ObjectID = id.String()
	p.Created = p.Created.UTC()
	p.Updated = p.Updated.UTC()
	p.Paid = timePtr(paid)
	p.PaymentID = paymentID.String
	p.BasketID = basketID.String
	p.TransactionStatus = models.PaymentStatus(status)
	p.Product = models.PaymentProduct(product)
	if p.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}
	return &p, nil
}
