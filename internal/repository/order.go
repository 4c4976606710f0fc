package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/model"
)

// OrderStats summarizes a buyer's order history for the dashboard.
type OrderStats struct {
	TotalOrders      int
	PendingOrders    int
	InProgressOrders int
	CompletedOrders  int
	CancelledOrders  int
	TotalSpent       decimal.Decimal
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByBuyerID(ctx context.Context, buyerID uuid.UUID, status model.OrderStatus) ([]model.Order, error)
	ListBySellerID(ctx context.Context, sellerID uuid.UUID, status model.OrderStatus) ([]model.Order, error)
	UpdateStatusFrom(ctx context.Context, order *model.Order, expected model.OrderStatus) error
	CompleteWithEarnings(ctx context.Context, order *model.Order, expected model.OrderStatus, earnings *model.SellerEarnings) error
	BuyerStats(ctx context.Context, buyerID uuid.UUID) (*OrderStats, error)
	CompletedOrder(ctx context.Context, buyerID, serviceID uuid.UUID) (*model.Order, error)

	CreateMessage(ctx context.Context, msg *model.OrderMessage) error
	ListMessages(ctx context.Context, orderID uuid.UUID, includeInternal bool) ([]model.OrderMessage, error)
	CreateFile(ctx context.Context, file *model.OrderFile) error
	ListFiles(ctx context.Context, orderID uuid.UUID) ([]model.OrderFile, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `o.id, o.service_id, o.buyer_id, o.seller_id, o.order_number, o.status,
	o.total_amount, o.requirements, o.special_instructions, o.buyer_notes, o.seller_notes,
	o.expected_delivery_date, o.actual_delivery_date, o.placed_at, o.confirmed_at, o.started_at,
	o.completed_at, o.cancelled_at, o.is_paid, o.payment_method, o.updated_at, s.title`

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.OrderNumber = model.NewOrderNumber(order.ID)
	query := `INSERT INTO orders (id, service_id, buyer_id, seller_id, order_number, status,
				  total_amount, requirements, special_instructions, expected_delivery_date,
				  placed_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
			  RETURNING placed_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		order.ID, order.ServiceID, order.BuyerID, order.SellerID, order.OrderNumber, order.Status,
		order.TotalAmount, order.Requirements, order.SpecialInstructions, order.ExpectedDeliveryDate,
	).Scan(&order.PlacedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN services s ON s.id = o.service_id WHERE o.id = $1`,
		id,
	).Scan(
		&o.ID, &o.ServiceID, &o.BuyerID, &o.SellerID, &o.OrderNumber, &o.Status,
		&o.TotalAmount, &o.Requirements, &o.SpecialInstructions, &o.BuyerNotes, &o.SellerNotes,
		&o.ExpectedDeliveryDate, &o.ActualDeliveryDate, &o.PlacedAt, &o.ConfirmedAt, &o.StartedAt,
		&o.CompletedAt, &o.CancelledAt, &o.IsPaid, &o.PaymentMethod, &o.UpdatedAt, &o.ServiceTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) ListByBuyerID(ctx context.Context, buyerID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx, "o.buyer_id", buyerID, status)
}

func (r *pgOrderRepo) ListBySellerID(ctx context.Context, sellerID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx, "o.seller_id", sellerID, status)
}

func (r *pgOrderRepo) list(ctx context.Context, column string, userID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN services s ON s.id = o.service_id
			  WHERE ` + column + ` = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND o.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY o.placed_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID, &o.ServiceID, &o.BuyerID, &o.SellerID, &o.OrderNumber, &o.Status,
			&o.TotalAmount, &o.Requirements, &o.SpecialInstructions, &o.BuyerNotes, &o.SellerNotes,
			&o.ExpectedDeliveryDate, &o.ActualDeliveryDate, &o.PlacedAt, &o.ConfirmedAt, &o.StartedAt,
			&o.CompletedAt, &o.CancelledAt, &o.IsPaid, &o.PaymentMethod, &o.UpdatedAt, &o.ServiceTitle,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

const updateStatusQuery = `UPDATE orders
	SET status = $2, confirmed_at = $3, started_at = $4, completed_at = $5, cancelled_at = $6,
		actual_delivery_date = $7, updated_at = NOW()
	WHERE id = $1 AND status = $8`

// UpdateStatusFrom persists an already-transitioned order, guarded by the
// status it was read at. Zero rows affected means another writer got there
// first.
func (r *pgOrderRepo) UpdateStatusFrom(ctx context.Context, order *model.Order, expected model.OrderStatus) error {
	ct, err := r.pool.Exec(ctx, updateStatusQuery,
		order.ID, order.Status, order.ConfirmedAt, order.StartedAt, order.CompletedAt,
		order.CancelledAt, order.ActualDeliveryDate, expected,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// CompleteWithEarnings writes the completed status and the seller's earnings
// row in one transaction. The earnings insert is idempotent on
// (seller_id, order_id); a conflict means the row already exists and is fine.
func (r *pgOrderRepo) CompleteWithEarnings(ctx context.Context, order *model.Order, expected model.OrderStatus, earnings *model.SellerEarnings) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, updateStatusQuery,
		order.ID, order.Status, order.ConfirmedAt, order.StartedAt, order.CompletedAt,
		order.CancelledAt, order.ActualDeliveryDate, expected,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStale
	}

	earnings.ID = uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO seller_earnings (id, seller_id, order_id, gross_amount, platform_fee,
			 net_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 ON CONFLICT (seller_id, order_id) DO NOTHING`,
		earnings.ID, earnings.SellerID, earnings.OrderID,
		earnings.GrossAmount, earnings.PlatformFee, earnings.NetAmount,
	)
	if err != nil {
		return fmt.Errorf("insert seller earnings: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) BuyerStats(ctx context.Context, buyerID uuid.UUID) (*OrderStats, error) {
	stats := &OrderStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
				COUNT(*) FILTER (WHERE status = 'pending'),
				COUNT(*) FILTER (WHERE status IN ('confirmed', 'in_progress', 'review')),
				COUNT(*) FILTER (WHERE status = 'completed'),
				COUNT(*) FILTER (WHERE status = 'cancelled'),
				COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0)
		 FROM orders WHERE buyer_id = $1`,
		buyerID,
	).Scan(&stats.TotalOrders, &stats.PendingOrders, &stats.InProgressOrders,
		&stats.CompletedOrders, &stats.CancelledOrders, &stats.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("buyer order stats: %w", err)
	}
	return stats, nil
}

// CompletedOrder returns one completed order the buyer placed for the
// service, preferring paid ones. Nil when the buyer never completed one.
func (r *pgOrderRepo) CompletedOrder(ctx context.Context, buyerID, serviceID uuid.UUID) (*model.Order, error) {
	o := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN services s ON s.id = o.service_id
		 WHERE o.buyer_id = $1 AND o.service_id = $2 AND o.status = 'completed'
		 ORDER BY o.is_paid DESC, o.completed_at DESC LIMIT 1`,
		buyerID, serviceID,
	).Scan(
		&o.ID, &o.ServiceID, &o.BuyerID, &o.SellerID, &o.OrderNumber, &o.Status,
		&o.TotalAmount, &o.Requirements, &o.SpecialInstructions, &o.BuyerNotes, &o.SellerNotes,
		&o.ExpectedDeliveryDate, &o.ActualDeliveryDate, &o.PlacedAt, &o.ConfirmedAt, &o.StartedAt,
		&o.CompletedAt, &o.CancelledAt, &o.IsPaid, &o.PaymentMethod, &o.UpdatedAt, &o.ServiceTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get completed order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) CreateMessage(ctx context.Context, msg *model.OrderMessage) error {
	msg.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO order_messages (id, order_id, sender_id, message, is_internal, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		msg.ID, msg.OrderID, msg.SenderID, msg.Message, msg.IsInternal,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order message: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) ListMessages(ctx context.Context, orderID uuid.UUID, includeInternal bool) ([]model.OrderMessage, error) {
	query := `SELECT id, order_id, sender_id, message, is_internal, created_at
			  FROM order_messages WHERE order_id = $1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.OrderMessage
	for rows.Next() {
		var m model.OrderMessage
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.Message, &m.IsInternal, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *pgOrderRepo) CreateFile(ctx context.Context, file *model.OrderFile) error {
	file.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO order_files (id, order_id, uploaded_by, file_type, file_name, file_url,
			 file_size, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		file.ID, file.OrderID, file.UploadedBy, file.FileType, file.FileName,
		file.FileURL, file.FileSize, file.Description,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order file: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) ListFiles(ctx context.Context, orderID uuid.UUID) ([]model.OrderFile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, uploaded_by, file_type, file_name, file_url, file_size, description, created_at
		 FROM order_files WHERE order_id = $1 ORDER BY created_at ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order files: %w", err)
	}
	defer rows.Close()

	var files []model.OrderFile
	for rows.Next() {
		var f model.OrderFile
		if err := rows.Scan(&f.ID, &f.OrderID, &f.UploadedBy, &f.FileType, &f.FileName,
			&f.FileURL, &f.FileSize, &f.Description, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order file: %w", err)
		}
		files = append(files, f)
	}
	return files, nil
}
