package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

type User struct {
	ID                uuid.UUID
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Role              Role
	IsEmailVerified   bool
	EmailVerifyToken  uuid.UUID
	EmailVerifySentAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	Icon        string
	CreatedAt   time.Time
}

type Service struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	CategoryID    uuid.UUID
	Title         string
	Description   string
	Price         decimal.Decimal
	DeliveryDays  int
	Requirements  string
	Features      []string
	Images        []string
	IsActive      bool
	IsFeatured    bool
	AverageRating decimal.Decimal // derived from reviews, never hand-maintained
	TotalReviews  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Review struct {
	ID           uuid.UUID
	ServiceID    uuid.UUID
	BuyerID      uuid.UUID
	SellerID     uuid.UUID // always equals the service's seller
	Rating       int
	Title        string
	Comment      string
	IsVerified   bool
	HelpfulCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ReviewHelpful struct {
	ReviewID  uuid.UUID
	UserID    uuid.UUID
	IsHelpful bool
	CreatedAt time.Time
}

type OrderMessage struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	SenderID   uuid.UUID
	Message    string
	IsInternal bool
	CreatedAt  time.Time
}

type FileType string

const (
	FileRequirement FileType = "requirement"
	FileDeliverable FileType = "deliverable"
	FileReference   FileType = "reference"
	FileOther       FileType = "other"
)

func (t FileType) Valid() bool {
	switch t {
	case FileRequirement, FileDeliverable, FileReference, FileOther:
		return true
	}
	return false
}

type OrderFile struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	UploadedBy  uuid.UUID
	FileType    FileType
	FileName    string
	FileURL     string
	FileSize    int64
	Description string
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotifyOrderPlaced     NotificationType = "order_placed"
	NotifyOrderConfirmed  NotificationType = "order_confirmed"
	NotifyOrderInProgress NotificationType = "order_in_progress"
	NotifyOrderReview     NotificationType = "order_review"
	NotifyOrderCompleted  NotificationType = "order_completed"
	NotifyOrderCancelled  NotificationType = "order_cancelled"
	NotifyOrderDisputed   NotificationType = "order_disputed"
	NotifyOrderMessage    NotificationType = "order_message"
	NotifyOrderFile       NotificationType = "order_file"
	NotifyReviewReceived  NotificationType = "review_received"
	NotifySystem          NotificationType = "system"
)

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        NotificationType
	Title       string
	Message     string
	OrderID     *uuid.UUID
	ServiceID   *uuid.UUID
	ReviewID    *uuid.UUID
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// NotificationEvent is the outbox message published after a business
// transaction commits. The dispatcher turns it into a Notification row.
type NotificationEvent struct {
	EventID     uuid.UUID        `json:"event_id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	OrderID     *uuid.UUID       `json:"order_id,omitempty"`
	ServiceID   *uuid.UUID       `json:"service_id,omitempty"`
	ReviewID    *uuid.UUID       `json:"review_id,omitempty"`
}

// PlatformFeeRate is the marketplace commission on gross order value.
var PlatformFeeRate = decimal.NewFromFloat(0.10)

type SellerEarnings struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	OrderID     uuid.UUID
	GrossAmount decimal.Decimal
	PlatformFee decimal.Decimal
	NetAmount   decimal.Decimal
	IsPaidOut   bool
	PaidOutAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSellerEarnings derives fee and net from the gross amount. The three
// values must never disagree with the fee formula.
func NewSellerEarnings(sellerID, orderID uuid.UUID, gross decimal.Decimal) *SellerEarnings {
	fee := gross.Mul(PlatformFeeRate).Round(2)
	return &SellerEarnings{
		SellerID:    sellerID,
		OrderID:     orderID,
		GrossAmount: gross,
		PlatformFee: fee,
		NetAmount:   gross.Sub(fee),
	}
}

type SavedService struct {
	ID        uuid.UUID
	BuyerID   uuid.UUID
	ServiceID uuid.UUID
	Notes     string
	SavedAt   time.Time
}

// SellerAnalytics is a materialized snapshot recomputed from source rows.
// It holds no independent truth and can always be rebuilt.
type SellerAnalytics struct {
	SellerID          uuid.UUID
	TotalServices     int
	ActiveServices    int
	FeaturedServices  int
	TotalOrders       int
	CompletedOrders   int
	CancelledOrders   int
	AverageOrderValue decimal.Decimal
	TotalReviews      int
	AverageRating     decimal.Decimal
	RatingCounts      [5]int // index 0 = one star ... index 4 = five stars
	TotalEarnings     decimal.Decimal
	TotalPlatformFees decimal.Decimal
	PaidOutEarnings   decimal.Decimal
	PendingEarnings   decimal.Decimal
	CompletionRate    decimal.Decimal
	OnTimeRate        decimal.Decimal
	OrdersThisMonth   int
	EarningsThisMonth decimal.Decimal
	OrdersThisYear    int
	EarningsThisYear  decimal.Decimal
	UpdatedAt         time.Time
}

type CategorySpend struct {
	Category string          `json:"category"`
	Orders   int             `json:"orders"`
	Total    decimal.Decimal `json:"total"`
}

type BuyerAnalytics struct {
	BuyerID            uuid.UUID
	TotalOrders        int
	CompletedOrders    int
	CancelledOrders    int
	TotalSpent         decimal.Decimal
	AverageOrderValue  decimal.Decimal
	TotalReviewsGiven  int
	AverageRatingGiven decimal.Decimal
	SavedServices      int
	FavoriteCategories []CategorySpend
	OrdersThisMonth    int
	SpentThisMonth     decimal.Decimal
	OrdersThisYear     int
	SpentThisYear      decimal.Decimal
	LastOrderAt        *time.Time
	LastReviewAt       *time.Time
	UpdatedAt          time.Time
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Active reports whether the payment still occupies the order's single
// active-payment slot.
func (s PaymentStatus) Active() bool {
	return s == PaymentPending || s == PaymentProcessing
}

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	BuyerID       uuid.UUID
	TranID        string // gateway transaction id, authoritative correlation key
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	SessionKey    string
	ValID         string
	BankTranID    string
	CardType      string
	CardNo        string
	CardIssuer    string
	CardBrand     string
	RiskLevel     string
	RiskTitle     string
	FailureReason string
	GatewayData   map[string]string
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
