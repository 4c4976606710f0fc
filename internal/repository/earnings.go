package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/model"
)

// EarningsSummary aggregates a seller's earnings over fixed windows.
type EarningsSummary struct {
	MonthlyEarnings decimal.Decimal
	MonthlyOrders   int
	YearlyEarnings  decimal.Decimal
	YearlyOrders    int
	AllTimeEarnings decimal.Decimal
	AllTimeOrders   int
	PendingPayout   decimal.Decimal
	PaidOut         decimal.Decimal
}

type EarningsRepository interface {
	ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]model.SellerEarnings, error)
	Summary(ctx context.Context, sellerID uuid.UUID) (*EarningsSummary, error)
}

type pgEarningsRepo struct{ pool *pgxpool.Pool }

func NewEarningsRepository(pool *pgxpool.Pool) EarningsRepository {
	return &pgEarningsRepo{pool: pool}
}

func (r *pgEarningsRepo) ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]model.SellerEarnings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, seller_id, order_id, gross_amount, platform_fee, net_amount,
				is_paid_out, paid_out_at, created_at, updated_at
		 FROM seller_earnings WHERE seller_id = $1 ORDER BY created_at DESC`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	var earnings []model.SellerEarnings
	for rows.Next() {
		var e model.SellerEarnings
		if err := rows.Scan(&e.ID, &e.SellerID, &e.OrderID, &e.GrossAmount, &e.PlatformFee,
			&e.NetAmount, &e.IsPaidOut, &e.PaidOutAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan earnings: %w", err)
		}
		earnings = append(earnings, e)
	}
	return earnings, nil
}

func (r *pgEarningsRepo) Summary(ctx context.Context, sellerID uuid.UUID) (*EarningsSummary, error) {
	s := &EarningsSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(net_amount) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('month', NOW())),
			COALESCE(SUM(net_amount) FILTER (WHERE created_at >= date_trunc('year', NOW())), 0),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('year', NOW())),
			COALESCE(SUM(net_amount), 0),
			COUNT(*),
			COALESCE(SUM(net_amount) FILTER (WHERE NOT is_paid_out), 0),
			COALESCE(SUM(net_amount) FILTER (WHERE is_paid_out), 0)
		 FROM seller_earnings WHERE seller_id = $1`,
		sellerID,
	).Scan(&s.MonthlyEarnings, &s.MonthlyOrders, &s.YearlyEarnings, &s.YearlyOrders,
		&s.AllTimeEarnings, &s.AllTimeOrders, &s.PendingPayout, &s.PaidOut)
	if err != nil {
		return nil, fmt.Errorf("earnings summary: %w", err)
	}
	return s, nil
}
