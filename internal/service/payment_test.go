package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillhub/marketplace-api/internal/gateway"
	"github.com/skillhub/marketplace-api/internal/model"
)

type paymentFixture struct {
	svc         *PaymentService
	paymentRepo *mockPaymentRepo
	orderRepo   *mockOrderRepo
	gw          *mockGateway
	orderID     uuid.UUID
	buyerID     uuid.UUID
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		orderRepo: newMockOrderRepo(),
		buyerID:   uuid.New(),
		gw: &mockGateway{
			session: &gateway.SessionResult{
				SessionKey: "sess-1", GatewayURL: "https://pay.example/s1", RedirectURL: "https://pay.example/s1",
			},
		},
	}
	f.paymentRepo = newMockPaymentRepo(f.orderRepo)

	userRepo := newMockUserRepo()
	buyer := &model.User{Email: "buyer@example.com", FirstName: "B", LastName: "K", Role: model.RoleBuyer}
	require.NoError(t, userRepo.Create(context.Background(), buyer))
	f.buyerID = buyer.ID

	order := &model.Order{
		ServiceID: uuid.New(), BuyerID: f.buyerID, SellerID: uuid.New(),
		Status: model.OrderPending, TotalAmount: decimal.NewFromInt(500),
		ServiceTitle: "Logo design",
	}
	require.NoError(t, f.orderRepo.Create(context.Background(), order))
	f.orderID = order.ID

	f.svc = NewPaymentService(f.paymentRepo, f.orderRepo, userRepo, f.gw, "BDT", nil)
	return f
}

func TestPaymentService_Initiate(t *testing.T) {
	f := newPaymentFixture(t)
	resp, err := f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/s1", resp.RedirectURL)
	assert.Regexp(t, `^TXN_[0-9A-F]{8}_\d+$`, resp.TranID)

	payment := f.paymentRepo.payments[resp.PaymentID]
	require.NotNil(t, payment)
	assert.Equal(t, model.PaymentProcessing, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(500)))
}

func TestPaymentService_Initiate_Rejections(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.Initiate(context.Background(), uuid.New(), f.buyerID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.Initiate(context.Background(), f.orderID, uuid.New())
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	f.orderRepo.orders[f.orderID].IsPaid = true
	_, err = f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)

	f.orderRepo.orders[f.orderID].IsPaid = false
	f.orderRepo.orders[f.orderID].Status = model.OrderCancelled
	_, err = f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	assert.ErrorIs(t, err, ErrOrderNotPayable)
}

func TestPaymentService_Initiate_SecondAttemptWhileActive(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	require.NoError(t, err)

	_, err = f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	assert.ErrorIs(t, err, ErrPaymentInFlight)
}

func TestPaymentService_Initiate_GatewayFailureFreesSlot(t *testing.T) {
	f := newPaymentFixture(t)
	f.gw.session = nil
	f.gw.sessionErr = gateway.ErrRejected

	_, err := f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	require.ErrorIs(t, err, ErrGatewayError)

	// the failed payment no longer occupies the active slot
	f.gw.session = &gateway.SessionResult{SessionKey: "s2", RedirectURL: "https://pay.example/s2"}
	f.gw.sessionErr = nil
	_, err = f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	require.NoError(t, err)
}

func TestPaymentService_HandleSuccess_ValidatorUnreachable(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)
	f.gw.validationErr = errors.New("dial tcp: connection refused")

	err := f.svc.HandleSuccess(context.Background(), tranID, "val-1")
	assert.ErrorIs(t, err, ErrGatewayError)

	// the payment stays active so a later, reachable validation can finish it
	payment, getErr := f.paymentRepo.GetByTranID(context.Background(), tranID)
	require.NoError(t, getErr)
	require.NotNil(t, payment)
	assert.True(t, payment.Status.Active())
}

func initiated(t *testing.T, f *paymentFixture) string {
	t.Helper()
	resp, err := f.svc.Initiate(context.Background(), f.orderID, f.buyerID)
	require.NoError(t, err)
	return resp.TranID
}

func TestPaymentService_HandleSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)
	f.gw.validation = &gateway.ValidationResult{
		Status: "VALID", TranID: tranID, ValID: "val-1",
		Amount: decimal.NewFromInt(500), Currency: "BDT",
		BankTranID: "BANK1", CardType: "VISA",
	}

	require.NoError(t, f.svc.HandleSuccess(context.Background(), tranID, "val-1"))

	payment, err := f.paymentRepo.GetByTranID(context.Background(), tranID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, payment.Status)
	assert.Equal(t, "val-1", payment.ValID)
	assert.True(t, f.orderRepo.orders[f.orderID].IsPaid)
	assert.Equal(t, "VISA", f.orderRepo.orders[f.orderID].PaymentMethod)

	// replayed callback is a no-op
	require.NoError(t, f.svc.HandleSuccess(context.Background(), tranID, "val-1"))
}

func TestPaymentService_HandleSuccess_ValidationMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)
	f.gw.validation = &gateway.ValidationResult{
		Status: "VALID", TranID: tranID, ValID: "val-1",
		Amount: decimal.NewFromInt(100), // tampered amount
	}

	err := f.svc.HandleSuccess(context.Background(), tranID, "val-1")
	assert.ErrorIs(t, err, ErrPaymentVerification)

	payment, _ := f.paymentRepo.GetByTranID(context.Background(), tranID)
	assert.Equal(t, model.PaymentFailed, payment.Status)
	assert.False(t, f.orderRepo.orders[f.orderID].IsPaid)
}

func TestPaymentService_HandleSuccess_InvalidStatus(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)
	f.gw.validation = &gateway.ValidationResult{Status: "INVALID_TRANSACTION", TranID: tranID}

	err := f.svc.HandleSuccess(context.Background(), tranID, "val-x")
	assert.ErrorIs(t, err, ErrPaymentVerification)
}

func TestPaymentService_HandleSuccess_UnknownTranID(t *testing.T) {
	f := newPaymentFixture(t)
	err := f.svc.HandleSuccess(context.Background(), "TXN_DEADBEEF_1", "val-1")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestPaymentService_HandleFailure(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)

	require.NoError(t, f.svc.HandleFailure(context.Background(), tranID, model.PaymentCancelled, "cancelled at gateway"))
	payment, _ := f.paymentRepo.GetByTranID(context.Background(), tranID)
	assert.Equal(t, model.PaymentCancelled, payment.Status)
	assert.False(t, f.orderRepo.orders[f.orderID].IsPaid)

	// terminal payments stay terminal
	require.NoError(t, f.svc.HandleFailure(context.Background(), tranID, model.PaymentFailed, "late callback"))
	payment, _ = f.paymentRepo.GetByTranID(context.Background(), tranID)
	assert.Equal(t, model.PaymentCancelled, payment.Status)
}

func TestPaymentService_HandleIPN(t *testing.T) {
	f := newPaymentFixture(t)
	tranID := initiated(t, f)
	f.gw.validation = &gateway.ValidationResult{
		Status: "VALID", TranID: tranID, ValID: "val-9", Amount: decimal.NewFromInt(500),
	}

	require.NoError(t, f.svc.HandleIPN(context.Background(), "VALID", tranID, "val-9"))
	payment, _ := f.paymentRepo.GetByTranID(context.Background(), tranID)
	assert.Equal(t, model.PaymentCompleted, payment.Status)

	err := f.svc.HandleIPN(context.Background(), "WHATEVER", tranID, "")
	assert.Error(t, err)
}
