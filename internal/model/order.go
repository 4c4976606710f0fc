package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "in_progress"
	OrderReview     OrderStatus = "review"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderDisputed   OrderStatus = "disputed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderInProgress, OrderReview,
		OrderCompleted, OrderCancelled, OrderDisputed:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// ErrInvalidTransition is returned when the target status is not reachable
// from the order's current status.
var ErrInvalidTransition = errors.New("invalid order status transition")

// orderTransitions is the full state graph. Cancellation and disputes are
// reachable from every non-terminal state; the clean path is
// pending → confirmed → in_progress → review → completed.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled, OrderDisputed},
	OrderConfirmed:  {OrderInProgress, OrderCancelled, OrderDisputed},
	OrderInProgress: {OrderReview, OrderCompleted, OrderCancelled, OrderDisputed},
	OrderReview:     {OrderCompleted, OrderCancelled, OrderDisputed},
	OrderDisputed:   {OrderCompleted, OrderCancelled},
}

type Order struct {
	ID                   uuid.UUID
	ServiceID            uuid.UUID
	BuyerID              uuid.UUID
	SellerID             uuid.UUID // derived from the service at creation, never diverges
	OrderNumber          string
	Status               OrderStatus
	TotalAmount          decimal.Decimal // frozen at service price on creation
	Requirements         string
	SpecialInstructions  string
	BuyerNotes           string
	SellerNotes          string
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	PlacedAt             time.Time
	ConfirmedAt          *time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
	CancelledAt          *time.Time
	IsPaid               bool
	PaymentMethod        string
	UpdatedAt            time.Time

	// ServiceTitle is joined in by order queries for display and
	// notification text; it is not a column of the orders table.
	ServiceTitle string
}

// NewOrderNumber derives the human-readable order number from the order id.
// Assigned exactly once at creation.
func NewOrderNumber(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}

// CanBeCancelled reports whether a buyer may still cancel the order.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderPending || o.Status == OrderConfirmed
}

// CanBeCompleted reports whether the order is far enough along to complete.
func (o *Order) CanBeCompleted() bool {
	return o.Status == OrderInProgress || o.Status == OrderReview
}

// CanTransition reports whether target is reachable from the current status.
func (o *Order) CanTransition(target OrderStatus) bool {
	for _, t := range orderTransitions[o.Status] {
		if t == target {
			return true
		}
	}
	return false
}

// Transition is the single writer of both Status and its corresponding
// timestamp. It never infers status from timestamps, and sets at most one
// timestamp per call (only if not already set).
func (o *Order) Transition(target OrderStatus, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if !o.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	switch target {
	case OrderConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case OrderInProgress:
		if o.StartedAt == nil {
			o.StartedAt = &now
		}
	case OrderCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
		if o.ActualDeliveryDate == nil {
			o.ActualDeliveryDate = &now
		}
	case OrderCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
	return nil
}

// AllowedForRole reports whether the given role may request the target
// status at all. Buyers may only cancel; sellers drive the forward path.
func AllowedForRole(role Role, target OrderStatus) bool {
	switch role {
	case RoleBuyer:
		return target == OrderCancelled
	case RoleSeller:
		switch target {
		case OrderConfirmed, OrderInProgress, OrderReview, OrderCompleted:
			return true
		}
	}
	return false
}

// NotificationForStatus maps a completed transition to the counter-party
// notification describing it.
func NotificationForStatus(s OrderStatus) (NotificationType, string, bool) {
	switch s {
	case OrderConfirmed:
		return NotifyOrderConfirmed, "Order Confirmed", true
	case OrderInProgress:
		return NotifyOrderInProgress, "Order In Progress", true
	case OrderReview:
		return NotifyOrderReview, "Order In Review", true
	case OrderCompleted:
		return NotifyOrderCompleted, "Order Completed", true
	case OrderCancelled:
		return NotifyOrderCancelled, "Order Cancelled", true
	case OrderDisputed:
		return NotifyOrderDisputed, "Order Disputed", true
	}
	return "", "", false
}
