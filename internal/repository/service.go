package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/model"
)

// ServiceFilter narrows and orders catalog listings. Zero values mean
// "no constraint".
type ServiceFilter struct {
	CategoryID   *uuid.UUID
	SellerID     *uuid.UUID
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinRating    *decimal.Decimal
	FeaturedOnly bool
	ActiveOnly   bool
	Search       string
	SortBy       string
	Limit        int
	Offset       int
}

type ServiceRepository interface {
	Create(ctx context.Context, service *model.Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	List(ctx context.Context, filter ServiceFilter) ([]model.Service, int, error)
	Update(ctx context.Context, service *model.Service) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type pgServiceRepo struct{ pool *pgxpool.Pool }

func NewServiceRepository(pool *pgxpool.Pool) ServiceRepository {
	return &pgServiceRepo{pool: pool}
}

const serviceColumns = `id, seller_id, category_id, title, description, price, delivery_days,
	requirements, features, images, is_active, is_featured, average_rating, total_reviews,
	created_at, updated_at`

func (r *pgServiceRepo) Create(ctx context.Context, service *model.Service) error {
	service.ID = uuid.New()
	query := `INSERT INTO services (id, seller_id, category_id, title, description, price,
				  delivery_days, requirements, features, images, is_active, is_featured, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, FALSE, NOW(), NOW())
			  RETURNING is_active, is_featured, average_rating, total_reviews, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		service.ID, service.SellerID, service.CategoryID, service.Title, service.Description,
		service.Price, service.DeliveryDays, service.Requirements, service.Features, service.Images,
	).Scan(&service.IsActive, &service.IsFeatured, &service.AverageRating, &service.TotalReviews,
		&service.CreatedAt, &service.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (r *pgServiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	s := &model.Service{}
	err := r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id).Scan(
		&s.ID, &s.SellerID, &s.CategoryID, &s.Title, &s.Description, &s.Price, &s.DeliveryDays,
		&s.Requirements, &s.Features, &s.Images, &s.IsActive, &s.IsFeatured,
		&s.AverageRating, &s.TotalReviews, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

func (r *pgServiceRepo) List(ctx context.Context, filter ServiceFilter) ([]model.Service, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if filter.CategoryID != nil {
		where = append(where, "category_id = "+arg(*filter.CategoryID))
	}
	if filter.SellerID != nil {
		where = append(where, "seller_id = "+arg(*filter.SellerID))
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.MinRating != nil {
		where = append(where, "average_rating >= "+arg(*filter.MinRating))
	}
	if filter.FeaturedOnly {
		where = append(where, "is_featured = TRUE")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM services WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	order := "created_at DESC"
	switch filter.SortBy {
	case "price_low":
		order = "price ASC"
	case "price_high":
		order = "price DESC"
	case "rating":
		order = "average_rating DESC, total_reviews DESC"
	case "oldest":
		order = "created_at ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM services WHERE %s ORDER BY %s LIMIT %s OFFSET %s`,
		serviceColumns, cond, order, arg(filter.Limit), arg(filter.Offset))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(
			&s.ID, &s.SellerID, &s.CategoryID, &s.Title, &s.Description, &s.Price, &s.DeliveryDays,
			&s.Requirements, &s.Features, &s.Images, &s.IsActive, &s.IsFeatured,
			&s.AverageRating, &s.TotalReviews, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, total, nil
}

func (r *pgServiceRepo) Update(ctx context.Context, service *model.Service) error {
	query := `UPDATE services
			  SET category_id = $2, title = $3, description = $4, price = $5, delivery_days = $6,
				  requirements = $7, features = $8, images = $9, is_active = $10, is_featured = $11,
				  updated_at = NOW()
			  WHERE id = $1
			  RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		service.ID, service.CategoryID, service.Title, service.Description, service.Price,
		service.DeliveryDays, service.Requirements, service.Features, service.Images,
		service.IsActive, service.IsFeatured,
	).Scan(&service.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// Deactivate is the delete operation for services. Rows are never removed so
// existing orders and reviews keep their reference.
func (r *pgServiceRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE services SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate service: %w", err)
	}
	return nil
}

