package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/gateway"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrOrderNotPayable     = errors.New("order cannot be paid")
	ErrPaymentInFlight     = errors.New("another payment is in progress for this order")
	ErrPaymentVerification = errors.New("payment verification failed")
	ErrPaymentConflict     = errors.New("payment was updated concurrently")
	// ErrGatewayError wraps any failure talking to the gateway itself, so
	// callers can tell a bad upstream apart from a bad request.
	ErrGatewayError = errors.New("payment gateway error")
)

// GatewayClient is the slice of the gateway the payment flow needs.
type GatewayClient interface {
	CreateSession(ctx context.Context, p gateway.SessionParams) (*gateway.SessionResult, error)
	ValidatePayment(ctx context.Context, valID string) (*gateway.ValidationResult, error)
}

type PaymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	gw          GatewayClient
	currency    string
	amqpCh      *amqp.Channel
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	gw GatewayClient,
	currency string,
	amqpCh *amqp.Channel,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		gw:          gw,
		currency:    currency,
		amqpCh:      amqpCh,
	}
}

// Initiate opens a gateway checkout session for an order. The partial unique
// index on active payments is what rejects a second concurrent attempt; there
// is no check-then-act window.
func (s *PaymentService) Initiate(ctx context.Context, orderID, buyerID uuid.UUID) (*dto.InitiatePaymentResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.BuyerID != buyerID {
		return nil, ErrOrderAccessDenied
	}
	if order.IsPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if order.Status == model.OrderCancelled {
		return nil, ErrOrderNotPayable
	}

	buyer, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil || buyer == nil {
		return nil, fmt.Errorf("get buyer: %w", err)
	}

	payment := &model.Payment{
		OrderID:  orderID,
		BuyerID:  buyerID,
		TranID:   gateway.NewTranID(),
		Amount:   order.TotalAmount,
		Currency: s.currency,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPaymentInFlight
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	session, err := s.gw.CreateSession(ctx, gateway.SessionParams{
		TranID:        payment.TranID,
		Amount:        payment.Amount,
		OrderID:       order.ID.String(),
		PaymentID:     payment.ID.String(),
		ProductName:   order.ServiceTitle,
		CustomerName:  buyer.FullName(),
		CustomerEmail: buyer.Email,
	})
	if err != nil {
		_ = s.paymentRepo.Fail(ctx, payment.ID, model.PaymentFailed, err.Error())
		return nil, fmt.Errorf("%w: open session: %v", ErrGatewayError, err)
	}

	if err := s.paymentRepo.SetProcessing(ctx, payment.ID, session.SessionKey); err != nil {
		return nil, fmt.Errorf("set processing: %w", err)
	}

	return &dto.InitiatePaymentResponse{
		PaymentID:   payment.ID,
		TranID:      payment.TranID,
		RedirectURL: session.RedirectURL,
		SessionKey:  session.SessionKey,
	}, nil
}

// HandleSuccess processes a success callback. The payment is looked up by
// tran_id only, and the validator API must vouch for the val_id before
// anything is trusted. Replays of an already completed payment are no-ops.
func (s *PaymentService) HandleSuccess(ctx context.Context, tranID, valID string) error {
	payment, err := s.paymentRepo.GetByTranID(ctx, tranID)
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if payment.Status == model.PaymentCompleted {
		return nil
	}
	if !payment.Status.Active() {
		return ErrPaymentConflict
	}

	validation, err := s.gw.ValidatePayment(ctx, valID)
	if err != nil {
		return fmt.Errorf("%w: validate: %v", ErrGatewayError, err)
	}
	if !validation.Valid() || validation.TranID != tranID || !validation.Amount.Equal(payment.Amount) {
		_ = s.paymentRepo.Fail(ctx, payment.ID, model.PaymentFailed, "gateway validation mismatch")
		return ErrPaymentVerification
	}

	payment.ValID = validation.ValID
	payment.BankTranID = validation.BankTranID
	payment.CardType = validation.CardType
	payment.CardNo = validation.CardNo
	payment.CardIssuer = validation.CardIssuer
	payment.CardBrand = validation.CardBrand
	payment.RiskLevel = validation.RiskLevel
	payment.RiskTitle = validation.RiskTitle

	method := validation.CardType
	if method == "" {
		method = "online"
	}
	if err := s.paymentRepo.Complete(ctx, payment, method); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return ErrPaymentConflict
		}
		return fmt.Errorf("complete payment: %w", err)
	}

	publishEvents(ctx, s.amqpCh,
		model.NotificationEvent{
			RecipientID: payment.BuyerID,
			Type:        model.NotifySystem,
			Title:       "Payment Successful",
			Message:     fmt.Sprintf("Payment of %s %s received", payment.Amount.StringFixed(2), payment.Currency),
			OrderID:     &payment.OrderID,
		},
	)
	return nil
}

// HandleFailure records a failed or cancelled callback. Terminal payments are
// left untouched.
func (s *PaymentService) HandleFailure(ctx context.Context, tranID string, status model.PaymentStatus, reason string) error {
	if status != model.PaymentFailed && status != model.PaymentCancelled {
		return fmt.Errorf("unexpected failure status %q", status)
	}
	payment, err := s.paymentRepo.GetByTranID(ctx, tranID)
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if payment.Status.Terminal() {
		return nil
	}
	if err := s.paymentRepo.Fail(ctx, payment.ID, status, reason); err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	return nil
}

// HandleIPN dispatches an instant payment notification on its status field.
func (s *PaymentService) HandleIPN(ctx context.Context, status, tranID, valID string) error {
	switch status {
	case "VALID", "VALIDATED":
		return s.HandleSuccess(ctx, tranID, valID)
	case "FAILED":
		return s.HandleFailure(ctx, tranID, model.PaymentFailed, "gateway reported failure")
	case "CANCELLED":
		return s.HandleFailure(ctx, tranID, model.PaymentCancelled, "cancelled at gateway")
	default:
		return fmt.Errorf("unknown IPN status %q", status)
	}
}

func (s *PaymentService) GetByID(ctx context.Context, id, buyerID uuid.UUID) (*dto.PaymentResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil || payment.BuyerID != buyerID {
		return nil, ErrPaymentNotFound
	}
	resp := toPaymentResponse(payment)
	return &resp, nil
}

func (s *PaymentService) List(ctx context.Context, buyerID uuid.UUID) (*dto.PaymentListResponse, error) {
	payments, err := s.paymentRepo.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	resp := &dto.PaymentListResponse{Total: len(payments)}
	for i := range payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(&payments[i]))
	}
	return resp, nil
}

// Methods returns the static gateway payment-method catalog.
func (s *PaymentService) Methods() []map[string]string {
	return []map[string]string{
		{"id": "card", "name": "Credit/Debit Card", "type": "card"},
		{"id": "bkash", "name": "bKash", "type": "mobile_banking"},
		{"id": "nagad", "name": "Nagad", "type": "mobile_banking"},
		{"id": "rocket", "name": "Rocket", "type": "mobile_banking"},
		{"id": "internet_banking", "name": "Internet Banking", "type": "bank"},
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		TranID:        p.TranID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		CardType:      p.CardType,
		CardBrand:     p.CardBrand,
		FailureReason: p.FailureReason,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}
