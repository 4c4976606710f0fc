package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
)

func seedService(repo *mockServiceRepo, sellerID uuid.UUID, price int64) *model.Service {
	svc := &model.Service{
		SellerID:     sellerID,
		Title:        "Logo design",
		Price:        decimal.NewFromInt(price),
		DeliveryDays: 3,
	}
	_ = repo.Create(context.Background(), svc)
	return svc
}

func TestOrderService_Create(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	sellerID, buyerID := uuid.New(), uuid.New()
	svcModel := seedService(serviceRepo, sellerID, 500)

	svc := NewOrderService(orderRepo, serviceRepo, nil)
	resp, err := svc.Create(context.Background(), buyerID, dto.CreateOrderRequest{
		ServiceID: svcModel.ID, Requirements: "need a logo",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, resp.Status)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, sellerID, resp.SellerID)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, resp.OrderNumber)
}

func TestOrderService_Create_NotifiesBothParties(t *testing.T) {
	order := &model.Order{
		ID:           uuid.New(),
		ServiceID:    uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		OrderNumber:  "ORD-AB12CD34",
		ServiceTitle: "Logo design",
	}

	events := orderPlacedEvents(order)
	require.Len(t, events, 2)
	assert.Equal(t, order.SellerID, events[0].RecipientID)
	assert.Equal(t, order.BuyerID, events[1].RecipientID)
	for _, ev := range events {
		assert.Equal(t, model.NotifyOrderPlaced, ev.Type)
		require.NotNil(t, ev.OrderID)
		assert.Equal(t, order.ID, *ev.OrderID)
		assert.Contains(t, ev.Message, order.OrderNumber)
	}
}

func TestOrderService_Create_PriceFrozenAtOrderTime(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svcModel := seedService(serviceRepo, uuid.New(), 500)

	svc := NewOrderService(orderRepo, serviceRepo, nil)
	resp, err := svc.Create(context.Background(), uuid.New(), dto.CreateOrderRequest{
		ServiceID: svcModel.ID, Requirements: "x",
	})
	require.NoError(t, err)

	svcModel.Price = decimal.NewFromInt(900)
	order, err := svc.GetByID(context.Background(), resp.ID, resp.BuyerID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500)))
}

func TestOrderService_Create_Rejections(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	sellerID := uuid.New()
	svcModel := seedService(serviceRepo, sellerID, 100)
	svc := NewOrderService(orderRepo, serviceRepo, nil)

	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateOrderRequest{
		ServiceID: uuid.New(), Requirements: "x",
	})
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = svc.Create(context.Background(), sellerID, dto.CreateOrderRequest{
		ServiceID: svcModel.ID, Requirements: "x",
	})
	assert.ErrorIs(t, err, ErrOwnService)

	svcModel.IsActive = false
	_, err = svc.Create(context.Background(), uuid.New(), dto.CreateOrderRequest{
		ServiceID: svcModel.ID, Requirements: "x",
	})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func placedOrder(t *testing.T, svc *OrderService, serviceRepo *mockServiceRepo) (*dto.OrderResponse, uuid.UUID, uuid.UUID) {
	t.Helper()
	sellerID, buyerID := uuid.New(), uuid.New()
	svcModel := seedService(serviceRepo, sellerID, 500)
	resp, err := svc.Create(context.Background(), buyerID, dto.CreateOrderRequest{
		ServiceID: svcModel.ID, Requirements: "x",
	})
	require.NoError(t, err)
	return resp, buyerID, sellerID
}

func TestOrderService_UpdateStatus_SellerDrivesForwardPath(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, _, sellerID := placedOrder(t, svc, serviceRepo)

	for _, target := range []model.OrderStatus{
		model.OrderConfirmed, model.OrderInProgress, model.OrderReview, model.OrderCompleted,
	} {
		resp, err := svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, target)
		require.NoError(t, err, "to %s", target)
		assert.Equal(t, target, resp.Status)
	}

	// completion granted the seller exactly one earnings row at 10% fee
	e := orderRepo.earnings[order.ID]
	require.NotNil(t, e)
	assert.True(t, e.PlatformFee.Equal(decimal.NewFromInt(50)))
	assert.True(t, e.NetAmount.Equal(decimal.NewFromInt(450)))
}

func TestOrderService_UpdateStatus_RoleGates(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, buyerID, sellerID := placedOrder(t, svc, serviceRepo)

	_, err := svc.UpdateStatus(context.Background(), order.ID, buyerID, model.RoleBuyer, model.OrderConfirmed)
	assert.ErrorIs(t, err, ErrStatusNotAllowed)

	_, err = svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, model.OrderCancelled)
	assert.ErrorIs(t, err, ErrStatusNotAllowed)

	_, err = svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, model.OrderDisputed)
	assert.ErrorIs(t, err, ErrStatusNotAllowed)

	_, err = svc.UpdateStatus(context.Background(), order.ID, uuid.New(), model.RoleSeller, model.OrderConfirmed)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}

func TestOrderService_UpdateStatus_SkippingStatesRejected(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, _, sellerID := placedOrder(t, svc, serviceRepo)

	_, err := svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, model.OrderCompleted)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestOrderService_UpdateStatus_BuyerCancelWindow(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, buyerID, sellerID := placedOrder(t, svc, serviceRepo)

	_, err := svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, model.OrderConfirmed)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), order.ID, sellerID, model.RoleSeller, model.OrderInProgress)
	require.NoError(t, err)

	// too late once work started
	_, err = svc.UpdateStatus(context.Background(), order.ID, buyerID, model.RoleBuyer, model.OrderCancelled)
	assert.ErrorIs(t, err, ErrCancelNotAllowed)
}

func TestOrderService_UpdateStatus_BuyerCancelPending(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, buyerID, _ := placedOrder(t, svc, serviceRepo)

	resp, err := svc.UpdateStatus(context.Background(), order.ID, buyerID, model.RoleBuyer, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, resp.Status)
	assert.NotNil(t, resp.CancelledAt)
}

func TestOrderService_Messages(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, buyerID, sellerID := placedOrder(t, svc, serviceRepo)

	_, err := svc.AddMessage(context.Background(), order.ID, buyerID, dto.CreateOrderMessageRequest{Message: "hi"})
	require.NoError(t, err)

	// internal notes are seller-only, and hidden from the buyer
	_, err = svc.AddMessage(context.Background(), order.ID, buyerID, dto.CreateOrderMessageRequest{Message: "x", IsInternal: true})
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
	_, err = svc.AddMessage(context.Background(), order.ID, sellerID, dto.CreateOrderMessageRequest{Message: "note", IsInternal: true})
	require.NoError(t, err)

	buyerView, err := svc.ListMessages(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Len(t, buyerView, 1)

	sellerView, err := svc.ListMessages(context.Background(), order.ID, sellerID)
	require.NoError(t, err)
	assert.Len(t, sellerView, 2)

	_, err = svc.ListMessages(context.Background(), order.ID, uuid.New())
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}

func TestOrderService_Files(t *testing.T) {
	serviceRepo := newMockServiceRepo()
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, serviceRepo, nil)
	order, _, sellerID := placedOrder(t, svc, serviceRepo)

	file, err := svc.AddFile(context.Background(), order.ID, sellerID, dto.CreateOrderFileRequest{
		FileType: "deliverable", FileName: "logo.svg", FileURL: "https://cdn.example/logo.svg", FileSize: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, "deliverable", file.FileType)

	files, err := svc.ListFiles(context.Background(), order.ID, sellerID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = svc.AddFile(context.Background(), order.ID, uuid.New(), dto.CreateOrderFileRequest{
		FileType: "other", FileName: "x", FileURL: "https://x", FileSize: 1,
	})
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}
