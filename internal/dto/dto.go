package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/model"
)

// --- Errors ---

// ErrorBody is the machine-readable error envelope returned on every failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=buyer seller"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"is_email_verified"`
}

// --- Categories ---

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// --- Services ---

type CreateServiceRequest struct {
	CategoryID   uuid.UUID       `json:"category_id" binding:"required"`
	Title        string          `json:"title" binding:"required,max=200"`
	Description  string          `json:"description" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	DeliveryDays int             `json:"delivery_days" binding:"required,min=1"`
	Requirements string          `json:"requirements"`
	Features     []string        `json:"features"`
	Images       []string        `json:"images"`
}

type UpdateServiceRequest struct {
	CategoryID   *uuid.UUID       `json:"category_id"`
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	DeliveryDays *int             `json:"delivery_days"`
	Requirements *string          `json:"requirements"`
	Features     []string         `json:"features"`
	Images       []string         `json:"images"`
	IsActive     *bool            `json:"is_active"`
	IsFeatured   *bool            `json:"is_featured"`
}

type ListServicesRequest struct {
	Page      int              `form:"page,default=1" binding:"min=1"`
	Limit     int              `form:"limit,default=20" binding:"min=1,max=100"`
	Category  string           `form:"category"`
	MinPrice  *decimal.Decimal `form:"min_price"`
	MaxPrice  *decimal.Decimal `form:"max_price"`
	Featured  bool             `form:"featured"`
	Search    string           `form:"search"`
	SortBy    string           `form:"sort_by,default=newest" binding:"oneof=price_low price_high rating newest oldest"`
	MinRating *decimal.Decimal `form:"min_rating"`
}

type ServiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DeliveryDays  int             `json:"delivery_days"`
	Requirements  string          `json:"requirements"`
	Features      []string        `json:"features"`
	Images        []string        `json:"images"`
	IsActive      bool            `json:"is_active"`
	IsFeatured    bool            `json:"is_featured"`
	AverageRating decimal.Decimal `json:"average_rating"`
	TotalReviews  int             `json:"total_reviews"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type ReviewStatsResponse struct {
	AverageRating      decimal.Decimal `json:"average_rating"`
	TotalReviews       int             `json:"total_reviews"`
	RatingDistribution map[int]int     `json:"rating_distribution"`
	VerifiedReviews    int             `json:"verified_reviews"`
}

// --- Reviews ---

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"required,max=200"`
	Comment string `json:"comment" binding:"required,max=1000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type HelpfulVoteRequest struct {
	IsHelpful *bool `json:"is_helpful" binding:"required"`
}

type ReviewResponse struct {
	ID           uuid.UUID `json:"id"`
	ServiceID    uuid.UUID `json:"service_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Comment      string    `json:"comment"`
	IsVerified   bool      `json:"is_verified"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// --- Orders ---

type CreateOrderRequest struct {
	ServiceID           uuid.UUID `json:"service_id" binding:"required"`
	Requirements        string    `json:"requirements" binding:"required"`
	SpecialInstructions string    `json:"special_instructions"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID                  uuid.UUID         `json:"id"`
	OrderNumber         string            `json:"order_number"`
	ServiceID           uuid.UUID         `json:"service_id"`
	ServiceTitle        string            `json:"service_title,omitempty"`
	BuyerID             uuid.UUID         `json:"buyer_id"`
	SellerID            uuid.UUID         `json:"seller_id"`
	Status              model.OrderStatus `json:"status"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	Requirements        string            `json:"requirements"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
	IsPaid              bool              `json:"is_paid"`
	PlacedAt            time.Time         `json:"placed_at"`
	ConfirmedAt         *time.Time        `json:"confirmed_at,omitempty"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type CreateOrderMessageRequest struct {
	Message    string `json:"message" binding:"required,max=2000"`
	IsInternal bool   `json:"is_internal"`
}

type OrderMessageResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Message    string    `json:"message"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateOrderFileRequest struct {
	FileType    string `json:"file_type" binding:"required,oneof=requirement deliverable reference other"`
	FileName    string `json:"file_name" binding:"required,max=255"`
	FileURL     string `json:"file_url" binding:"required,url"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
	Description string `json:"description"`
}

type OrderFileResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	FileType    string    `json:"file_type"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
	FileSize    int64     `json:"file_size"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderStatsResponse struct {
	TotalOrders      int             `json:"total_orders"`
	PendingOrders    int             `json:"pending_orders"`
	InProgressOrders int             `json:"in_progress_orders"`
	CompletedOrders  int             `json:"completed_orders"`
	CancelledOrders  int             `json:"cancelled_orders"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
}

// --- Notifications ---

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	ReviewID  *uuid.UUID `json:"review_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Unread        int                    `json:"unread"`
}

// --- Dashboards ---

type EarningsResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	IsPaidOut   bool            `json:"is_paid_out"`
	PaidOutAt   *time.Time      `json:"paid_out_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PeriodSummary struct {
	Earnings decimal.Decimal `json:"earnings"`
	Orders   int             `json:"orders"`
}

type EarningsSummaryResponse struct {
	Monthly       PeriodSummary   `json:"monthly"`
	Yearly        PeriodSummary   `json:"yearly"`
	AllTime       PeriodSummary   `json:"all_time"`
	PendingPayout decimal.Decimal `json:"pending_payout"`
	PaidOut       decimal.Decimal `json:"paid_out"`
}

type SellerAnalyticsResponse struct {
	TotalServices     int                   `json:"total_services"`
	ActiveServices    int                   `json:"active_services"`
	FeaturedServices  int                   `json:"featured_services"`
	TotalOrders       int                   `json:"total_orders"`
	CompletedOrders   int                   `json:"completed_orders"`
	CancelledOrders   int                   `json:"cancelled_orders"`
	AverageOrderValue decimal.Decimal       `json:"average_order_value"`
	TotalReviews      int                   `json:"total_reviews"`
	AverageRating     decimal.Decimal       `json:"average_rating"`
	RatingCounts      map[int]int           `json:"rating_counts"`
	TotalEarnings     decimal.Decimal       `json:"total_earnings"`
	TotalPlatformFees decimal.Decimal       `json:"total_platform_fees"`
	PaidOutEarnings   decimal.Decimal       `json:"paid_out_earnings"`
	PendingEarnings   decimal.Decimal       `json:"pending_earnings"`
	CompletionRate    decimal.Decimal       `json:"completion_rate"`
	OnTimeRate        decimal.Decimal       `json:"on_time_delivery_rate"`
	OrdersThisMonth   int                   `json:"orders_this_month"`
	EarningsThisMonth decimal.Decimal       `json:"earnings_this_month"`
	OrdersThisYear    int                   `json:"orders_this_year"`
	EarningsThisYear  decimal.Decimal       `json:"earnings_this_year"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type BuyerAnalyticsResponse struct {
	TotalOrders        int                   `json:"total_orders"`
	CompletedOrders    int                   `json:"completed_orders"`
	CancelledOrders    int                   `json:"cancelled_orders"`
	TotalSpent         decimal.Decimal       `json:"total_spent"`
	AverageOrderValue  decimal.Decimal       `json:"average_order_value"`
	TotalReviewsGiven  int                   `json:"total_reviews_given"`
	AverageRatingGiven decimal.Decimal       `json:"average_rating_given"`
	SavedServices      int                   `json:"saved_services"`
	FavoriteCategories []model.CategorySpend `json:"favorite_categories"`
	OrdersThisMonth    int                   `json:"orders_this_month"`
	SpentThisMonth     decimal.Decimal       `json:"spent_this_month"`
	OrdersThisYear     int                   `json:"orders_this_year"`
	SpentThisYear      decimal.Decimal       `json:"spent_this_year"`
	LastOrderAt        *time.Time            `json:"last_order_at,omitempty"`
	LastReviewAt       *time.Time            `json:"last_review_at,omitempty"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type SpendingSummaryResponse struct {
	Monthly    PeriodSummary         `json:"monthly"`
	Yearly     PeriodSummary         `json:"yearly"`
	AllTime    PeriodSummary         `json:"all_time"`
	ByCategory []model.CategorySpend `json:"by_category"`
}

type SaveServiceRequest struct {
	ServiceID uuid.UUID `json:"service_id" binding:"required"`
	Notes     string    `json:"notes"`
}

type SavedServiceResponse struct {
	ID        uuid.UUID `json:"id"`
	ServiceID uuid.UUID `json:"service_id"`
	Notes     string    `json:"notes,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

type ToggleSaveResponse struct {
	IsSaved bool   `json:"is_saved"`
	Message string `json:"message"`
}

// --- Payments ---

type InitiatePaymentResponse struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	TranID      string    `json:"tran_id"`
	RedirectURL string    `json:"redirect_url"`
	SessionKey  string    `json:"session_key"`
}

type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	TranID        string          `json:"tran_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CardType      string          `json:"card_type,omitempty"`
	CardBrand     string          `json:"card_brand,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Total    int               `json:"total"`
}
