package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillhub/marketplace-api/internal/model"
)

type AnalyticsRepository interface {
	// ComputeSeller rebuilds a seller snapshot from the source tables. The
	// result is not persisted; pair with UpsertSeller.
	ComputeSeller(ctx context.Context, sellerID uuid.UUID) (*model.SellerAnalytics, error)
	UpsertSeller(ctx context.Context, a *model.SellerAnalytics) error
	GetSeller(ctx context.Context, sellerID uuid.UUID) (*model.SellerAnalytics, error)

	ComputeBuyer(ctx context.Context, buyerID uuid.UUID) (*model.BuyerAnalytics, error)
	UpsertBuyer(ctx context.Context, a *model.BuyerAnalytics) error
	GetBuyer(ctx context.Context, buyerID uuid.UUID) (*model.BuyerAnalytics, error)
}

type pgAnalyticsRepo struct{ pool *pgxpool.Pool }

func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &pgAnalyticsRepo{pool: pool}
}

func (r *pgAnalyticsRepo) ComputeSeller(ctx context.Context, sellerID uuid.UUID) (*model.SellerAnalytics, error) {
	a := &model.SellerAnalytics{SellerID: sellerID}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
				COUNT(*) FILTER (WHERE is_active),
				COUNT(*) FILTER (WHERE is_featured)
		 FROM services WHERE seller_id = $1`,
		sellerID,
	).Scan(&a.TotalServices, &a.ActiveServices, &a.FeaturedServices)
	if err != nil {
		return nil, fmt.Errorf("seller service counts: %w", err)
	}

	// completion rate excludes cancelled orders from the denominator; both
	// rates default to 100 when there is nothing to measure yet
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
				COUNT(*) FILTER (WHERE status = 'completed'),
				COUNT(*) FILTER (WHERE status = 'cancelled'),
				COALESCE(ROUND(AVG(total_amount) FILTER (WHERE status = 'completed'), 2), 0),
				COALESCE(ROUND(
					100.0 * COUNT(*) FILTER (WHERE status = 'completed')
					/ NULLIF(COUNT(*) FILTER (WHERE status <> 'cancelled'), 0), 2), 100),
				COALESCE(ROUND(
					100.0 * COUNT(*) FILTER (WHERE status = 'completed'
						AND (expected_delivery_date IS NULL OR actual_delivery_date <= expected_delivery_date))
					/ NULLIF(COUNT(*) FILTER (WHERE status = 'completed'), 0), 2), 100),
				COUNT(*) FILTER (WHERE placed_at >= date_trunc('month', NOW())),
				COUNT(*) FILTER (WHERE placed_at >= date_trunc('year', NOW()))
		 FROM orders WHERE seller_id = $1`,
		sellerID,
	).Scan(&a.TotalOrders, &a.CompletedOrders, &a.CancelledOrders, &a.AverageOrderValue,
		&a.CompletionRate, &a.OnTimeRate, &a.OrdersThisMonth, &a.OrdersThisYear)
	if err != nil {
		return nil, fmt.Errorf("seller order aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
				COALESCE(ROUND(AVG(rating)::numeric, 2), 0),
				COUNT(*) FILTER (WHERE rating = 1),
				COUNT(*) FILTER (WHERE rating = 2),
				COUNT(*) FILTER (WHERE rating = 3),
				COUNT(*) FILTER (WHERE rating = 4),
				COUNT(*) FILTER (WHERE rating = 5)
		 FROM reviews WHERE seller_id = $1`,
		sellerID,
	).Scan(&a.TotalReviews, &a.AverageRating,
		&a.RatingCounts[0], &a.RatingCounts[1], &a.RatingCounts[2], &a.RatingCounts[3], &a.RatingCounts[4])
	if err != nil {
		return nil, fmt.Errorf("seller review aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(net_amount), 0),
				COALESCE(SUM(platform_fee), 0),
				COALESCE(SUM(net_amount) FILTER (WHERE is_paid_out), 0),
				COALESCE(SUM(net_amount) FILTER (WHERE NOT is_paid_out), 0),
				COALESCE(SUM(net_amount) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0),
				COALESCE(SUM(net_amount) FILTER (WHERE created_at >= date_trunc('year', NOW())), 0)
		 FROM seller_earnings WHERE seller_id = $1`,
		sellerID,
	).Scan(&a.TotalEarnings, &a.TotalPlatformFees, &a.PaidOutEarnings, &a.PendingEarnings,
		&a.EarningsThisMonth, &a.EarningsThisYear)
	if err != nil {
		return nil, fmt.Errorf("seller earnings aggregates: %w", err)
	}
	return a, nil
}

func (r *pgAnalyticsRepo) UpsertSeller(ctx context.Context, a *model.SellerAnalytics) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO seller_analytics (seller_id, total_services, active_services, featured_services,
			 total_orders, completed_orders, cancelled_orders, average_order_value,
			 total_reviews, average_rating, rating_1, rating_2, rating_3, rating_4, rating_5,
			 total_earnings, total_platform_fees, paid_out_earnings, pending_earnings,
			 completion_rate, on_time_rate, orders_this_month, earnings_this_month,
			 orders_this_year, earnings_this_year, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			 $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, NOW())
		 ON CONFLICT (seller_id) DO UPDATE SET
			 total_services = EXCLUDED.total_services,
			 active_services = EXCLUDED.active_services,
			 featured_services = EXCLUDED.featured_services,
			 total_orders = EXCLUDED.total_orders,
			 completed_orders = EXCLUDED.completed_orders,
			 cancelled_orders = EXCLUDED.cancelled_orders,
			 average_order_value = EXCLUDED.average_order_value,
			 total_reviews = EXCLUDED.total_reviews,
			 average_rating = EXCLUDED.average_rating,
			 rating_1 = EXCLUDED.rating_1,
			 rating_2 = EXCLUDED.rating_2,
			 rating_3 = EXCLUDED.rating_3,
			 rating_4 = EXCLUDED.rating_4,
			 rating_5 = EXCLUDED.rating_5,
			 total_earnings = EXCLUDED.total_earnings,
			 total_platform_fees = EXCLUDED.total_platform_fees,
			 paid_out_earnings = EXCLUDED.paid_out_earnings,
			 pending_earnings = EXCLUDED.pending_earnings,
			 completion_rate = EXCLUDED.completion_rate,
			 on_time_rate = EXCLUDED.on_time_rate,
			 orders_this_month = EXCLUDED.orders_this_month,
			 earnings_this_month = EXCLUDED.earnings_this_month,
			 orders_this_year = EXCLUDED.orders_this_year,
			 earnings_this_year = EXCLUDED.earnings_this_year,
			 updated_at = NOW()
		 RETURNING updated_at`,
		a.SellerID, a.TotalServices, a.ActiveServices, a.FeaturedServices,
		a.TotalOrders, a.CompletedOrders, a.CancelledOrders, a.AverageOrderValue,
		a.TotalReviews, a.AverageRating,
		a.RatingCounts[0], a.RatingCounts[1], a.RatingCounts[2], a.RatingCounts[3], a.RatingCounts[4],
		a.TotalEarnings, a.TotalPlatformFees, a.PaidOutEarnings, a.PendingEarnings,
		a.CompletionRate, a.OnTimeRate, a.OrdersThisMonth, a.EarningsThisMonth,
		a.OrdersThisYear, a.EarningsThisYear,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert seller analytics: %w", err)
	}
	return nil
}

func (r *pgAnalyticsRepo) GetSeller(ctx context.Context, sellerID uuid.UUID) (*model.SellerAnalytics, error) {
	a := &model.SellerAnalytics{}
	err := r.pool.QueryRow(ctx,
		`SELECT seller_id, total_services, active_services, featured_services,
				total_orders, completed_orders, cancelled_orders, average_order_value,
				total_reviews, average_rating, rating_1, rating_2, rating_3, rating_4, rating_5,
				total_earnings, total_platform_fees, paid_out_earnings, pending_earnings,
				completion_rate, on_time_rate, orders_this_month, earnings_this_month,
				orders_this_year, earnings_this_year, updated_at
		 FROM seller_analytics WHERE seller_id = $1`,
		sellerID,
	).Scan(&a.SellerID, &a.TotalServices, &a.ActiveServices, &a.FeaturedServices,
		&a.TotalOrders, &a.CompletedOrders, &a.CancelledOrders, &a.AverageOrderValue,
		&a.TotalReviews, &a.AverageRating,
		&a.RatingCounts[0], &a.RatingCounts[1], &a.RatingCounts[2], &a.RatingCounts[3], &a.RatingCounts[4],
		&a.TotalEarnings, &a.TotalPlatformFees, &a.PaidOutEarnings, &a.PendingEarnings,
		&a.CompletionRate, &a.OnTimeRate, &a.OrdersThisMonth, &a.EarningsThisMonth,
		&a.OrdersThisYear, &a.EarningsThisYear, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get seller analytics: %w", err)
	}
	return a, nil
}

func (r *pgAnalyticsRepo) ComputeBuyer(ctx context.Context, buyerID uuid.UUID) (*model.BuyerAnalytics, error) {
	a := &model.BuyerAnalytics{BuyerID: buyerID}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
				COUNT(*) FILTER (WHERE status = 'completed'),
				COUNT(*) FILTER (WHERE status = 'cancelled'),
				COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0),
				COALESCE(ROUND(AVG(total_amount) FILTER (WHERE status = 'completed'), 2), 0),
				COUNT(*) FILTER (WHERE placed_at >= date_trunc('month', NOW())),
				COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'
					AND placed_at >= date_trunc('month', NOW())), 0),
				COUNT(*) FILTER (WHERE placed_at >= date_trunc('year', NOW())),
				COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'
					AND placed_at >= date_trunc('year', NOW())), 0),
				MAX(placed_at)
		 FROM orders WHERE buyer_id = $1`,
		buyerID,
	).Scan(&a.TotalOrders, &a.CompletedOrders, &a.CancelledOrders, &a.TotalSpent,
		&a.AverageOrderValue, &a.OrdersThisMonth, &a.SpentThisMonth,
		&a.OrdersThisYear, &a.SpentThisYear, &a.LastOrderAt)
	if err != nil {
		return nil, fmt.Errorf("buyer order aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(ROUND(AVG(rating)::numeric, 2), 0), MAX(created_at)
		 FROM reviews WHERE buyer_id = $1`,
		buyerID,
	).Scan(&a.TotalReviewsGiven, &a.AverageRatingGiven, &a.LastReviewAt)
	if err != nil {
		return nil, fmt.Errorf("buyer review aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM saved_services WHERE buyer_id = $1`, buyerID,
	).Scan(&a.SavedServices)
	if err != nil {
		return nil, fmt.Errorf("buyer saved count: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT c.name, COUNT(*), COALESCE(SUM(o.total_amount), 0)
		 FROM orders o
		 JOIN services s ON s.id = o.service_id
		 JOIN categories c ON c.id = s.category_id
		 WHERE o.buyer_id = $1 AND o.status = 'completed'
		 GROUP BY c.name ORDER BY COUNT(*) DESC, SUM(o.total_amount) DESC
		 LIMIT 5`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("buyer favorite categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cs model.CategorySpend
		if err := rows.Scan(&cs.Category, &cs.Orders, &cs.Total); err != nil {
			return nil, fmt.Errorf("scan favorite category: %w", err)
		}
		a.FavoriteCategories = append(a.FavoriteCategories, cs)
	}
	return a, nil
}

func (r *pgAnalyticsRepo) UpsertBuyer(ctx context.Context, a *model.BuyerAnalytics) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO buyer_analytics (buyer_id, total_orders, completed_orders, cancelled_orders,
			 total_spent, average_order_value, total_reviews_given, average_rating_given,
			 saved_services, favorite_categories, orders_this_month, spent_this_month,
			 orders_this_year, spent_this_year, last_order_at, last_review_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		 ON CONFLICT (buyer_id) DO UPDATE SET
			 total_orders = EXCLUDED.total_orders,
			 completed_orders = EXCLUDED.completed_orders,
			 cancelled_orders = EXCLUDED.cancelled_orders,
			 total_spent = EXCLUDED.total_spent,
			 average_order_value = EXCLUDED.average_order_value,
			 total_reviews_given = EXCLUDED.total_reviews_given,
			 average_rating_given = EXCLUDED.average_rating_given,
			 saved_services = EXCLUDED.saved_services,
			 favorite_categories = EXCLUDED.favorite_categories,
			 orders_this_month = EXCLUDED.orders_this_month,
			 spent_this_month = EXCLUDED.spent_this_month,
			 orders_this_year = EXCLUDED.orders_this_year,
			 spent_this_year = EXCLUDED.spent_this_year,
			 last_order_at = EXCLUDED.last_order_at,
			 last_review_at = EXCLUDED.last_review_at,
			 updated_at = NOW()
		 RETURNING updated_at`,
		a.BuyerID, a.TotalOrders, a.CompletedOrders, a.CancelledOrders,
		a.TotalSpent, a.AverageOrderValue, a.TotalReviewsGiven, a.AverageRatingGiven,
		a.SavedServices, a.FavoriteCategories, a.OrdersThisMonth, a.SpentThisMonth,
		a.OrdersThisYear, a.SpentThisYear, a.LastOrderAt, a.LastReviewAt,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert buyer analytics: %w", err)
	}
	return nil
}

func (r *pgAnalyticsRepo) GetBuyer(ctx context.Context, buyerID uuid.UUID) (*model.BuyerAnalytics, error) {
	a := &model.BuyerAnalytics{}
	err := r.pool.QueryRow(ctx,
		`SELECT buyer_id, total_orders, completed_orders, cancelled_orders, total_spent,
				average_order_value, total_reviews_given, average_rating_given, saved_services,
				favorite_categories, orders_this_month, spent_this_month, orders_this_year,
				spent_this_year, last_order_at, last_review_at, updated_at
		 FROM buyer_analytics WHERE buyer_id = $1`,
		buyerID,
	).Scan(&a.BuyerID, &a.TotalOrders, &a.CompletedOrders, &a.CancelledOrders, &a.TotalSpent,
		&a.AverageOrderValue, &a.TotalReviewsGiven, &a.AverageRatingGiven, &a.SavedServices,
		&a.FavoriteCategories, &a.OrdersThisMonth, &a.SpentThisMonth, &a.OrdersThisYear,
		&a.SpentThisYear, &a.LastOrderAt, &a.LastReviewAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get buyer analytics: %w", err)
	}
	return a, nil
}
