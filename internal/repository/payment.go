package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillhub/marketplace-api/internal/model"
)

type PaymentRepository interface {
	// Create inserts a new pending payment. A unique-violation on the
	// partial (order_id) index means another payment is already in flight
	// for the order; it surfaces as ErrDuplicate.
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByTranID(ctx context.Context, tranID string) (*model.Payment, error)
	ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.Payment, error)
	SetProcessing(ctx context.Context, id uuid.UUID, sessionKey string) error
	// Complete marks the payment completed and the order paid in one
	// transaction, guarded on the payment still being active.
	Complete(ctx context.Context, p *model.Payment, paymentMethod string) error
	Fail(ctx context.Context, id uuid.UUID, status model.PaymentStatus, reason string) error
}

type pgPaymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &pgPaymentRepo{pool: pool}
}

const paymentColumns = `id, order_id, buyer_id, tran_id, amount, currency, status, session_key,
	val_id, bank_tran_id, card_type, card_no, card_issuer, card_brand, risk_level, risk_title,
	failure_reason, gateway_data, completed_at, created_at, updated_at`

func (r *pgPaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.New()
	p.Status = model.PaymentPending
	query := `INSERT INTO payments (id, order_id, buyer_id, tran_id, amount, currency, status,
				  created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.OrderID, p.BuyerID, p.TranID, p.Amount, p.Currency, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create payment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *pgPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *pgPaymentRepo) GetByTranID(ctx context.Context, tranID string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tran_id = $1`, tranID)
}

func (r *pgPaymentRepo) getOne(ctx context.Context, query string, arg any) (*model.Payment, error) {
	p := &model.Payment{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.OrderID, &p.BuyerID, &p.TranID, &p.Amount, &p.Currency, &p.Status, &p.SessionKey,
		&p.ValID, &p.BankTranID, &p.CardType, &p.CardNo, &p.CardIssuer, &p.CardBrand,
		&p.RiskLevel, &p.RiskTitle, &p.FailureReason, &p.GatewayData, &p.CompletedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *pgPaymentRepo) ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.BuyerID, &p.TranID, &p.Amount, &p.Currency, &p.Status, &p.SessionKey,
			&p.ValID, &p.BankTranID, &p.CardType, &p.CardNo, &p.CardIssuer, &p.CardBrand,
			&p.RiskLevel, &p.RiskTitle, &p.FailureReason, &p.GatewayData, &p.CompletedAt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *pgPaymentRepo) SetProcessing(ctx context.Context, id uuid.UUID, sessionKey string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = 'processing', session_key = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		id, sessionKey,
	)
	if err != nil {
		return fmt.Errorf("set payment processing: %w", err)
	}
	return nil
}

func (r *pgPaymentRepo) Complete(ctx context.Context, p *model.Payment, paymentMethod string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	ct, err := tx.Exec(ctx,
		`UPDATE payments
		 SET status = 'completed', val_id = $2, bank_tran_id = $3, card_type = $4, card_no = $5,
			 card_issuer = $6, card_brand = $7, risk_level = $8, risk_title = $9,
			 gateway_data = $10, completed_at = $11, updated_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'processing')`,
		p.ID, p.ValID, p.BankTranID, p.CardType, p.CardNo, p.CardIssuer, p.CardBrand,
		p.RiskLevel, p.RiskTitle, p.GatewayData, now,
	)
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStale
	}
	p.Status = model.PaymentCompleted
	p.CompletedAt = &now

	_, err = tx.Exec(ctx,
		`UPDATE orders SET is_paid = TRUE, payment_method = $2, updated_at = NOW() WHERE id = $1`,
		p.OrderID, paymentMethod,
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgPaymentRepo) Fail(ctx context.Context, id uuid.UUID, status model.PaymentStatus, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $2, failure_reason = $3, updated_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, status, reason,
	)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	return nil
}
