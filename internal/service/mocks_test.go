package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/gateway"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

type mockUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.EmailVerifyToken = uuid.New()
	now := time.Now()
	user.EmailVerifySentAt = &now
	user.CreatedAt = now
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByVerifyToken(_ context.Context, token uuid.UUID) (*model.User, error) {
	for _, u := range m.users {
		if u.EmailVerifyToken == token {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	if u, ok := m.users[id]; ok {
		u.IsEmailVerified = true
	}
	return nil
}

type mockServiceRepo struct {
	services map[uuid.UUID]*model.Service
}

func newMockServiceRepo() *mockServiceRepo {
	return &mockServiceRepo{services: make(map[uuid.UUID]*model.Service)}
}

func (m *mockServiceRepo) Create(_ context.Context, svc *model.Service) error {
	svc.ID = uuid.New()
	svc.IsActive = true
	svc.CreatedAt = time.Now()
	m.services[svc.ID] = svc
	return nil
}

func (m *mockServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Service, error) {
	return m.services[id], nil
}

func (m *mockServiceRepo) List(_ context.Context, filter repository.ServiceFilter) ([]model.Service, int, error) {
	var out []model.Service
	for _, s := range m.services {
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		if filter.SellerID != nil && s.SellerID != *filter.SellerID {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockServiceRepo) Update(_ context.Context, svc *model.Service) error {
	m.services[svc.ID] = svc
	return nil
}

func (m *mockServiceRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if s, ok := m.services[id]; ok {
		s.IsActive = false
	}
	return nil
}

type mockOrderRepo struct {
	orders   map[uuid.UUID]*model.Order
	earnings map[uuid.UUID]*model.SellerEarnings // keyed by order id
	messages []model.OrderMessage
	files    []model.OrderFile
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:   make(map[uuid.UUID]*model.Order),
		earnings: make(map[uuid.UUID]*model.SellerEarnings),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.OrderNumber = model.NewOrderNumber(order.ID)
	order.PlacedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByBuyerID(_ context.Context, buyerID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListBySellerID(_ context.Context, sellerID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.SellerID == sellerID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatusFrom(_ context.Context, order *model.Order, expected model.OrderStatus) error {
	stored, ok := m.orders[order.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStale
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) CompleteWithEarnings(ctx context.Context, order *model.Order, expected model.OrderStatus, earnings *model.SellerEarnings) error {
	if err := m.UpdateStatusFrom(ctx, order, expected); err != nil {
		return err
	}
	if _, exists := m.earnings[earnings.OrderID]; !exists {
		earnings.ID = uuid.New()
		m.earnings[earnings.OrderID] = earnings
	}
	return nil
}

func (m *mockOrderRepo) markPaid(id uuid.UUID, paymentMethod string) {
	if o, ok := m.orders[id]; ok {
		o.IsPaid = true
		o.PaymentMethod = paymentMethod
	}
}

func (m *mockOrderRepo) BuyerStats(_ context.Context, buyerID uuid.UUID) (*repository.OrderStats, error) {
	stats := &repository.OrderStats{}
	for _, o := range m.orders {
		if o.BuyerID != buyerID {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case model.OrderCompleted:
			stats.CompletedOrders++
			stats.TotalSpent = stats.TotalSpent.Add(o.TotalAmount)
		case model.OrderCancelled:
			stats.CancelledOrders++
		case model.OrderPending:
			stats.PendingOrders++
		default:
			stats.InProgressOrders++
		}
	}
	return stats, nil
}

func (m *mockOrderRepo) CompletedOrder(_ context.Context, buyerID, serviceID uuid.UUID) (*model.Order, error) {
	var found *model.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID && o.ServiceID == serviceID && o.Status == model.OrderCompleted {
			if found == nil || (o.IsPaid && !found.IsPaid) {
				found = o
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (m *mockOrderRepo) CreateMessage(_ context.Context, msg *model.OrderMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockOrderRepo) ListMessages(_ context.Context, orderID uuid.UUID, includeInternal bool) ([]model.OrderMessage, error) {
	var out []model.OrderMessage
	for _, msg := range m.messages {
		if msg.OrderID == orderID && (includeInternal || !msg.IsInternal) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) CreateFile(_ context.Context, file *model.OrderFile) error {
	file.ID = uuid.New()
	file.CreatedAt = time.Now()
	m.files = append(m.files, *file)
	return nil
}

func (m *mockOrderRepo) ListFiles(_ context.Context, orderID uuid.UUID) ([]model.OrderFile, error) {
	var out []model.OrderFile
	for _, f := range m.files {
		if f.OrderID == orderID {
			out = append(out, f)
		}
	}
	return out, nil
}

// mockReviewRepo updates the linked services map on every write, the way the
// real repository rebuilds the aggregate inside the write's transaction.
type mockReviewRepo struct {
	reviews   map[uuid.UUID]*model.Review
	votes     map[string]*model.ReviewHelpful
	services  map[uuid.UUID]*model.Service
	createErr error
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{
		reviews: make(map[uuid.UUID]*model.Review),
		votes:   make(map[string]*model.ReviewHelpful),
	}
}

func (m *mockReviewRepo) Create(_ context.Context, review *model.Review) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.reviews {
		if r.ServiceID == review.ServiceID && r.BuyerID == review.BuyerID {
			return repository.ErrDuplicate
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	m.reviews[review.ID] = review
	m.recomputeRating(review.ServiceID)
	return nil
}

func (m *mockReviewRepo) recomputeRating(serviceID uuid.UUID) {
	svc, ok := m.services[serviceID]
	if !ok {
		return
	}
	var sum, count int64
	for _, r := range m.reviews {
		if r.ServiceID == serviceID {
			sum += int64(r.Rating)
			count++
		}
	}
	svc.TotalReviews = int(count)
	if count == 0 {
		svc.AverageRating = decimal.Zero
		return
	}
	svc.AverageRating = decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(2)
}

func (m *mockReviewRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Review, error) {
	if r, ok := m.reviews[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *mockReviewRepo) ListByServiceID(_ context.Context, serviceID uuid.UUID, _, _ int) ([]model.Review, int, error) {
	var out []model.Review
	for _, r := range m.reviews {
		if r.ServiceID == serviceID {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (m *mockReviewRepo) ListByBuyerID(_ context.Context, buyerID uuid.UUID) ([]model.Review, error) {
	var out []model.Review
	for _, r := range m.reviews {
		if r.BuyerID == buyerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) ListBySellerID(_ context.Context, sellerID uuid.UUID) ([]model.Review, error) {
	var out []model.Review
	for _, r := range m.reviews {
		if r.SellerID == sellerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) Update(_ context.Context, review *model.Review) error {
	cp := *review
	m.reviews[review.ID] = &cp
	m.recomputeRating(review.ServiceID)
	return nil
}

func (m *mockReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	if r, ok := m.reviews[id]; ok {
		delete(m.reviews, id)
		m.recomputeRating(r.ServiceID)
	}
	return nil
}

func (m *mockReviewRepo) Stats(_ context.Context, serviceID uuid.UUID) (*repository.ReviewStats, error) {
	stats := &repository.ReviewStats{
		AverageRating:      "0",
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	for _, r := range m.reviews {
		if r.ServiceID == serviceID {
			stats.TotalReviews++
			stats.RatingDistribution[r.Rating]++
			if r.IsVerified {
				stats.VerifiedReviews++
			}
		}
	}
	return stats, nil
}

func (m *mockReviewRepo) UpsertHelpfulVote(_ context.Context, vote *model.ReviewHelpful) error {
	key := vote.ReviewID.String() + ":" + vote.UserID.String()
	m.votes[key] = vote
	count := 0
	for _, v := range m.votes {
		if v.ReviewID == vote.ReviewID && v.IsHelpful {
			count++
		}
	}
	if r, ok := m.reviews[vote.ReviewID]; ok {
		r.HelpfulCount = count
	}
	return nil
}

type mockPaymentRepo struct {
	payments map[uuid.UUID]*model.Payment
	orders   *mockOrderRepo
}

func newMockPaymentRepo(orders *mockOrderRepo) *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*model.Payment), orders: orders}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *model.Payment) error {
	for _, existing := range m.payments {
		if existing.OrderID == p.OrderID && existing.Status.Active() {
			return repository.ErrDuplicate
		}
	}
	p.ID = uuid.New()
	p.Status = model.PaymentPending
	p.CreatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockPaymentRepo) GetByTranID(_ context.Context, tranID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.TranID == tranID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) ListByBuyerID(_ context.Context, buyerID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.payments {
		if p.BuyerID == buyerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) SetProcessing(_ context.Context, id uuid.UUID, sessionKey string) error {
	if p, ok := m.payments[id]; ok && p.Status == model.PaymentPending {
		p.Status = model.PaymentProcessing
		p.SessionKey = sessionKey
	}
	return nil
}

func (m *mockPaymentRepo) Complete(_ context.Context, p *model.Payment, paymentMethod string) error {
	stored, ok := m.payments[p.ID]
	if !ok || !stored.Status.Active() {
		return repository.ErrStale
	}
	now := time.Now()
	p.Status = model.PaymentCompleted
	p.CompletedAt = &now
	cp := *p
	m.payments[p.ID] = &cp
	if m.orders != nil {
		m.orders.markPaid(p.OrderID, paymentMethod)
	}
	return nil
}

func (m *mockPaymentRepo) Fail(_ context.Context, id uuid.UUID, status model.PaymentStatus, reason string) error {
	if p, ok := m.payments[id]; ok && p.Status.Active() {
		p.Status = status
		p.FailureReason = reason
	}
	return nil
}

type mockGateway struct {
	session       *gateway.SessionResult
	sessionErr    error
	validation    *gateway.ValidationResult
	validationErr error
}

func (m *mockGateway) CreateSession(_ context.Context, _ gateway.SessionParams) (*gateway.SessionResult, error) {
	return m.session, m.sessionErr
}

func (m *mockGateway) ValidatePayment(_ context.Context, _ string) (*gateway.ValidationResult, error) {
	return m.validation, m.validationErr
}
