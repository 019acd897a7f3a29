package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPaymentNotFound is returned when no payment row matches the merchant
// order id. Webhook updates never create rows.
var ErrPaymentNotFound = errors.New("payment: record not found")

// Record mirrors a row of the payments table.
type Record struct {
	ID                  uuid.UUID
	ClientName          string
	ClientEmail         string
	Amount              float64
	Currency            string
	Description         string
	Status              Status
	LiqPayOrderID       string
	LiqPayTransactionID pgtype.Text
	PaidAt              pgtype.Timestamptz
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

// Gateway is the persistence surface the webhook intake and status handlers
// depend on.
type Gateway interface {
	GetByOrderID(ctx context.Context, orderID string) (Record, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, n *Notification) (Record, error)
}

// PGGateway implements Gateway against PostgreSQL.
type PGGateway struct {
	Pool *pgxpool.Pool
}

const recordColumns = `id, client_name, client_email, amount, currency, description, status,
	liqpay_order_id, liqpay_transaction_id, paid_at, created_at, updated_at`

// GetByOrderID looks up the payment created for a merchant order id.
func (g PGGateway) GetByOrderID(ctx context.Context, orderID string) (Record, error) {
	row := g.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM payments WHERE liqpay_order_id = $1`, orderID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrPaymentNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("payment: get by order id: %w", err)
	}
	return rec, nil
}

// UpdateStatus moves an existing payment to the given status. The provider
// transaction id is recorded when the callback carries one, and paid_at is
// stamped from the callback end_date once the payment completes. A missing
// row is reported as ErrPaymentNotFound, never created.
func (g PGGateway) UpdateStatus(ctx context.Context, orderID string, status Status, n *Notification) (Record, error) {
	txID := transactionID(n)
	paidAt := paidAtFor(status, n)

	row := g.Pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2,
			liqpay_transaction_id = COALESCE($3, liqpay_transaction_id),
			paid_at = COALESCE($4, paid_at),
			updated_at = now()
		WHERE liqpay_order_id = $1
		RETURNING `+recordColumns,
		orderID, string(status), txID, paidAt,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrPaymentNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("payment: update status: %w", err)
	}
	return rec, nil
}

// transactionID picks the provider transaction identifier carried by the
// callback, falling back to the numeric payment_id when transaction_id is
// absent.
func transactionID(n *Notification) pgtype.Text {
	if n == nil {
		return pgtype.Text{}
	}
	if n.TransactionID != "" {
		return pgtype.Text{String: n.TransactionID, Valid: true}
	}
	if n.PaymentID != 0 {
		return pgtype.Text{String: fmt.Sprintf("%d", n.PaymentID), Valid: true}
	}
	return pgtype.Text{}
}

// paidAtFor derives the completion timestamp. LiqPay sends end_date as unix
// epoch seconds; when the callback omits it the receipt time is used.
func paidAtFor(status Status, n *Notification) pgtype.Timestamptz {
	if status != StatusCompleted || n == nil {
		return pgtype.Timestamptz{}
	}
	at := time.Now().UTC()
	if n.EndDate > 0 {
		at = time.Unix(n.EndDate, 0).UTC()
	}
	return pgtype.Timestamptz{Time: at, Valid: true}
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.ClientName,
		&rec.ClientEmail,
		&rec.Amount,
		&rec.Currency,
		&rec.Description,
		&status,
		&rec.LiqPayOrderID,
		&rec.LiqPayTransactionID,
		&rec.PaidAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}
