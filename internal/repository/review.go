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

// ReviewStats is the aggregate block returned for a service's review page.
type ReviewStats struct {
	AverageRating      string
	TotalReviews       int
	VerifiedReviews    int
	RatingDistribution map[int]int
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error)
	ListByServiceID(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]model.Review, int, error)
	ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.Review, error)
	ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, serviceID uuid.UUID) (*ReviewStats, error)
	UpsertHelpfulVote(ctx context.Context, vote *model.ReviewHelpful) error
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

const reviewColumns = `id, service_id, buyer_id, seller_id, rating, title, comment,
	is_verified, helpful_count, created_at, updated_at`

// Create inserts the review and rebuilds the service's denormalized rating
// columns in the same transaction, so no reader ever observes the review
// without the refreshed aggregate.
func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	review.ID = uuid.New()
	query := `INSERT INTO reviews (id, service_id, buyer_id, seller_id, rating, title, comment,
				  is_verified, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		review.ID, review.ServiceID, review.BuyerID, review.SellerID,
		review.Rating, review.Title, review.Comment, review.IsVerified,
	).Scan(&review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create review: %w", ErrDuplicate)
		}
		return fmt.Errorf("create review: %w", err)
	}

	if err := recomputeServiceRating(ctx, tx, review.ServiceID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	rv := &model.Review{}
	err := r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id).Scan(
		&rv.ID, &rv.ServiceID, &rv.BuyerID, &rv.SellerID, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.IsVerified, &rv.HelpfulCount, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *pgReviewRepo) ListByServiceID(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]model.Review, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE service_id = $1`, serviceID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE service_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		serviceID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews, err := scanReviews(rows)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *pgReviewRepo) ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list buyer reviews: %w", err)
	}
	defer rows.Close()
	return scanReviews(rows)
}

func (r *pgReviewRepo) ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE seller_id = $1 ORDER BY created_at DESC`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list seller reviews: %w", err)
	}
	defer rows.Close()
	return scanReviews(rows)
}

func scanReviews(rows pgx.Rows) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ID, &rv.ServiceID, &rv.BuyerID, &rv.SellerID, &rv.Rating, &rv.Title, &rv.Comment,
			&rv.IsVerified, &rv.HelpfulCount, &rv.CreatedAt, &rv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (r *pgReviewRepo) Update(ctx context.Context, review *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, title = $3, comment = $4, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		review.ID, review.Rating, review.Title, review.Comment,
	).Scan(&review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if err := recomputeServiceRating(ctx, tx, review.ServiceID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var serviceID uuid.UUID
	err = tx.QueryRow(ctx,
		`DELETE FROM reviews WHERE id = $1 RETURNING service_id`, id,
	).Scan(&serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if err := recomputeServiceRating(ctx, tx, serviceID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// recomputeServiceRating rebuilds services.average_rating and total_reviews
// from the reviews table. Runs inside the review write's transaction.
func recomputeServiceRating(ctx context.Context, tx pgx.Tx, serviceID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE services s
		 SET average_rating = COALESCE(agg.avg_rating, 0),
			 total_reviews  = COALESCE(agg.cnt, 0),
			 updated_at     = NOW()
		 FROM (
			 SELECT ROUND(AVG(rating)::numeric, 2) AS avg_rating, COUNT(*) AS cnt
			 FROM reviews WHERE service_id = $1
		 ) agg
		 WHERE s.id = $1`,
		serviceID,
	)
	if err != nil {
		return fmt.Errorf("recompute service rating: %w", err)
	}
	return nil
}

func (r *pgReviewRepo) Stats(ctx context.Context, serviceID uuid.UUID) (*ReviewStats, error) {
	stats := &ReviewStats{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0)::text, COUNT(*),
				COUNT(*) FILTER (WHERE is_verified)
		 FROM reviews WHERE service_id = $1`,
		serviceID,
	).Scan(&stats.AverageRating, &stats.TotalReviews, &stats.VerifiedReviews)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE service_id = $1 GROUP BY rating`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("review distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan review distribution: %w", err)
		}
		stats.RatingDistribution[rating] = count
	}
	return stats, nil
}

// UpsertHelpfulVote records one vote per (review, user), flipping the value
// on re-vote, then refreshes the denormalized helpful_count.
func (r *pgReviewRepo) UpsertHelpfulVote(ctx context.Context, vote *model.ReviewHelpful) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO review_helpful (review_id, user_id, is_helpful, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (review_id, user_id) DO UPDATE SET is_helpful = EXCLUDED.is_helpful`,
		vote.ReviewID, vote.UserID, vote.IsHelpful,
	)
	if err != nil {
		return fmt.Errorf("upsert helpful vote: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE reviews
		 SET helpful_count = (SELECT COUNT(*) FROM review_helpful WHERE review_id = $1 AND is_helpful)
		 WHERE id = $1`,
		vote.ReviewID,
	)
	if err != nil {
		return fmt.Errorf("recount helpful votes: %w", err)
	}
	return tx.Commit(ctx)
}
