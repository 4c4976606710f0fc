package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAccessDenied  = errors.New("access denied")
	ErrServiceUnavailable = errors.New("service is not available")
	ErrOwnService         = errors.New("cannot order own service")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrStatusNotAllowed   = errors.New("status change not allowed for role")
	ErrCancelNotAllowed   = errors.New("order can no longer be cancelled")
	ErrOrderConflict      = errors.New("order was updated concurrently")
)

type OrderService struct {
	orderRepo   repository.OrderRepository
	serviceRepo repository.ServiceRepository
	amqpCh      *amqp.Channel
}

func NewOrderService(orderRepo repository.OrderRepository, serviceRepo repository.ServiceRepository, amqpCh *amqp.Channel) *OrderService {
	return &OrderService{orderRepo: orderRepo, serviceRepo: serviceRepo, amqpCh: amqpCh}
}

func (s *OrderService) Create(ctx context.Context, buyerID uuid.UUID, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	svc, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, ErrServiceUnavailable
	}
	if svc.SellerID == buyerID {
		return nil, ErrOwnService
	}

	expected := time.Now().AddDate(0, 0, svc.DeliveryDays)
	order := &model.Order{
		ServiceID:           svc.ID,
		BuyerID:             buyerID,
		SellerID:            svc.SellerID,
		Status:              model.OrderPending,
		TotalAmount:         svc.Price,
		Requirements:        req.Requirements,
		SpecialInstructions: req.SpecialInstructions,
		ExpectedDeliveryDate: &expected,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.ServiceTitle = svc.Title

	publishEvents(ctx, s.amqpCh, orderPlacedEvents(order)...)

	resp := toOrderResponse(order)
	return &resp, nil
}

// orderPlacedEvents builds the two notifications a new order produces: the
// seller learns about the incoming order, the buyer gets a confirmation.
func orderPlacedEvents(o *model.Order) []model.NotificationEvent {
	return []model.NotificationEvent{
		{
			RecipientID: o.SellerID,
			Type:        model.NotifyOrderPlaced,
			Title:       "New Order",
			Message:     fmt.Sprintf("You received order %s for %q", o.OrderNumber, o.ServiceTitle),
			OrderID:     &o.ID,
			ServiceID:   &o.ServiceID,
		},
		{
			RecipientID: o.BuyerID,
			Type:        model.NotifyOrderPlaced,
			Title:       "Order Placed",
			Message:     fmt.Sprintf("Your order %s for %q has been placed", o.OrderNumber, o.ServiceTitle),
			OrderID:     &o.ID,
			ServiceID:   &o.ServiceID,
		},
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.getForParty(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) List(ctx context.Context, userID uuid.UUID, role model.Role, status model.OrderStatus) (*dto.OrderListResponse, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	var (
		orders []model.Order
		err    error
	)
	if role == model.RoleSeller {
		orders, err = s.orderRepo.ListBySellerID(ctx, userID, status)
	} else {
		orders, err = s.orderRepo.ListByBuyerID(ctx, userID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	resp := &dto.OrderListResponse{Total: len(orders)}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	return resp, nil
}

// UpdateStatus drives the order lifecycle. The role gate runs first, then the
// transition itself; persistence is guarded on the status the order was read
// at, so two racing updates cannot both win.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, userID uuid.UUID, role model.Role, target model.OrderStatus) (*dto.OrderResponse, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}
	if !model.AllowedForRole(role, target) {
		return nil, ErrStatusNotAllowed
	}

	order, err := s.getForParty(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if role == model.RoleBuyer && target == model.OrderCancelled && !order.CanBeCancelled() {
		return nil, ErrCancelNotAllowed
	}

	expected := order.Status
	if err := order.Transition(target, time.Now()); err != nil {
		return nil, err
	}

	if target == model.OrderCompleted {
		earnings := model.NewSellerEarnings(order.SellerID, order.ID, order.TotalAmount)
		err = s.orderRepo.CompleteWithEarnings(ctx, order, expected, earnings)
	} else {
		err = s.orderRepo.UpdateStatusFrom(ctx, order, expected)
	}
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, ErrOrderConflict
		}
		return nil, fmt.Errorf("persist status: %w", err)
	}

	if notifType, title, ok := model.NotificationForStatus(target); ok {
		recipient := order.SellerID
		if userID == order.SellerID {
			recipient = order.BuyerID
		}
		publishEvents(ctx, s.amqpCh, model.NotificationEvent{
			RecipientID: recipient,
			Type:        notifType,
			Title:       title,
			Message:     fmt.Sprintf("Order %s is now %s", order.OrderNumber, target),
			OrderID:     &order.ID,
		})
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) AddMessage(ctx context.Context, orderID, senderID uuid.UUID, req dto.CreateOrderMessageRequest) (*dto.OrderMessageResponse, error) {
	order, err := s.getForParty(ctx, orderID, senderID)
	if err != nil {
		return nil, err
	}
	// internal notes are a seller-side feature
	if req.IsInternal && senderID != order.SellerID {
		return nil, ErrOrderAccessDenied
	}

	msg := &model.OrderMessage{
		OrderID:    orderID,
		SenderID:   senderID,
		Message:    req.Message,
		IsInternal: req.IsInternal,
	}
	if err := s.orderRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if !msg.IsInternal {
		recipient := order.SellerID
		if senderID == order.SellerID {
			recipient = order.BuyerID
		}
		publishEvents(ctx, s.amqpCh, model.NotificationEvent{
			RecipientID: recipient,
			Type:        model.NotifyOrderMessage,
			Title:       "New Message",
			Message:     fmt.Sprintf("New message on order %s", order.OrderNumber),
			OrderID:     &order.ID,
		})
	}

	return &dto.OrderMessageResponse{
		ID: msg.ID, OrderID: msg.OrderID, SenderID: msg.SenderID,
		Message: msg.Message, IsInternal: msg.IsInternal, CreatedAt: msg.CreatedAt,
	}, nil
}

func (s *OrderService) ListMessages(ctx context.Context, orderID, userID uuid.UUID) ([]dto.OrderMessageResponse, error) {
	order, err := s.getForParty(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.orderRepo.ListMessages(ctx, orderID, userID == order.SellerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	resp := make([]dto.OrderMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, dto.OrderMessageResponse{
			ID: m.ID, OrderID: m.OrderID, SenderID: m.SenderID,
			Message: m.Message, IsInternal: m.IsInternal, CreatedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *OrderService) AddFile(ctx context.Context, orderID, userID uuid.UUID, req dto.CreateOrderFileRequest) (*dto.OrderFileResponse, error) {
	order, err := s.getForParty(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	file := &model.OrderFile{
		OrderID:     orderID,
		UploadedBy:  userID,
		FileType:    model.FileType(req.FileType),
		FileName:    req.FileName,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
		Description: req.Description,
	}
	if err := s.orderRepo.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	recipient := order.SellerID
	if userID == order.SellerID {
		recipient = order.BuyerID
	}
	publishEvents(ctx, s.amqpCh, model.NotificationEvent{
		RecipientID: recipient,
		Type:        model.NotifyOrderFile,
		Title:       "New File",
		Message:     fmt.Sprintf("File %q was added to order %s", file.FileName, order.OrderNumber),
		OrderID:     &order.ID,
	})

	resp := toOrderFileResponse(file)
	return &resp, nil
}

func (s *OrderService) ListFiles(ctx context.Context, orderID, userID uuid.UUID) ([]dto.OrderFileResponse, error) {
	if _, err := s.getForParty(ctx, orderID, userID); err != nil {
		return nil, err
	}
	files, err := s.orderRepo.ListFiles(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	resp := make([]dto.OrderFileResponse, 0, len(files))
	for i := range files {
		resp = append(resp, toOrderFileResponse(&files[i]))
	}
	return resp, nil
}

func (s *OrderService) BuyerStats(ctx context.Context, buyerID uuid.UUID) (*dto.OrderStatsResponse, error) {
	stats, err := s.orderRepo.BuyerStats(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("buyer stats: %w", err)
	}
	return &dto.OrderStatsResponse{
		TotalOrders:      stats.TotalOrders,
		PendingOrders:    stats.PendingOrders,
		InProgressOrders: stats.InProgressOrders,
		CompletedOrders:  stats.CompletedOrders,
		CancelledOrders:  stats.CancelledOrders,
		TotalSpent:       stats.TotalSpent,
	}, nil
}

func (s *OrderService) getForParty(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.BuyerID != userID && order.SellerID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		ServiceID:           o.ServiceID,
		ServiceTitle:        o.ServiceTitle,
		BuyerID:             o.BuyerID,
		SellerID:            o.SellerID,
		Status:              o.Status,
		TotalAmount:         o.TotalAmount,
		Requirements:        o.Requirements,
		SpecialInstructions: o.SpecialInstructions,
		IsPaid:              o.IsPaid,
		PlacedAt:            o.PlacedAt,
		ConfirmedAt:         o.ConfirmedAt,
		StartedAt:           o.StartedAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
	}
}

func toOrderFileResponse(f *model.OrderFile) dto.OrderFileResponse {
	return dto.OrderFileResponse{
		ID: f.ID, OrderID: f.OrderID, UploadedBy: f.UploadedBy,
		FileType: string(f.FileType), FileName: f.FileName, FileURL: f.FileURL,
		FileSize: f.FileSize, Description: f.Description, CreatedAt: f.CreatedAt,
	}
}
