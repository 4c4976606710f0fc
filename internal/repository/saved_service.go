package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillhub/marketplace-api/internal/model"
)

type SavedServiceRepository interface {
	Save(ctx context.Context, saved *model.SavedService) error
	Remove(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error)
	IsSaved(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error)
	ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.SavedService, error)
}

type pgSavedServiceRepo struct{ pool *pgxpool.Pool }

func NewSavedServiceRepository(pool *pgxpool.Pool) SavedServiceRepository {
	return &pgSavedServiceRepo{pool: pool}
}

func (r *pgSavedServiceRepo) Save(ctx context.Context, saved *model.SavedService) error {
	saved.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO saved_services (id, buyer_id, service_id, notes, saved_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING saved_at`,
		saved.ID, saved.BuyerID, saved.ServiceID, saved.Notes,
	).Scan(&saved.SavedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save service: %w", ErrDuplicate)
		}
		return fmt.Errorf("save service: %w", err)
	}
	return nil
}

func (r *pgSavedServiceRepo) Remove(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM saved_services WHERE buyer_id = $1 AND service_id = $2`,
		buyerID, serviceID,
	)
	if err != nil {
		return false, fmt.Errorf("remove saved service: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgSavedServiceRepo) IsSaved(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error) {
	var saved bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_services WHERE buyer_id = $1 AND service_id = $2)`,
		buyerID, serviceID,
	).Scan(&saved)
	if err != nil {
		return false, fmt.Errorf("check saved service: %w", err)
	}
	return saved, nil
}

func (r *pgSavedServiceRepo) ListByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]model.SavedService, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, buyer_id, service_id, notes, saved_at
		 FROM saved_services WHERE buyer_id = $1 ORDER BY saved_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved services: %w", err)
	}
	defer rows.Close()

	var saved []model.SavedService
	for rows.Next() {
		var s model.SavedService
		if err := rows.Scan(&s.ID, &s.BuyerID, &s.ServiceID, &s.Notes, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scan saved service: %w", err)
		}
		saved = append(saved, s)
	}
	return saved, nil
}
