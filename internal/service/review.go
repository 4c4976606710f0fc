package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var (
	ErrReviewNotFound   = errors.New("review not found")
	ErrNotReviewOwner   = errors.New("not the review owner")
	ErrAlreadyReviewed  = errors.New("service already reviewed")
	ErrReviewNotAllowed = errors.New("review not allowed")
)

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	serviceRepo repository.ServiceRepository
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
	amqpCh      *amqp.Channel
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	serviceRepo repository.ServiceRepository,
	orderRepo repository.OrderRepository,
	redisClient *redis.Client,
	amqpCh *amqp.Channel,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		serviceRepo: serviceRepo,
		orderRepo:   orderRepo,
		redisClient: redisClient,
		amqpCh:      amqpCh,
	}
}

// Submit creates a review for a service the buyer has a completed order on.
// One review per (service, buyer); the storage constraint is the referee.
func (s *ReviewService) Submit(ctx context.Context, serviceID, buyerID uuid.UUID, req dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, ErrServiceNotFound
	}
	if svc.SellerID == buyerID {
		return nil, ErrReviewNotAllowed
	}

	order, err := s.orderRepo.CompletedOrder(ctx, buyerID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("check completed order: %w", err)
	}
	if order == nil {
		return nil, ErrReviewNotAllowed
	}

	review := &model.Review{
		ServiceID:  serviceID,
		BuyerID:    buyerID,
		SellerID:   svc.SellerID,
		Rating:     req.Rating,
		Title:      req.Title,
		Comment:    req.Comment,
		IsVerified: order.IsPaid,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.invalidateServiceCache(ctx, serviceID)

	publishEvents(ctx, s.amqpCh, model.NotificationEvent{
		RecipientID: svc.SellerID,
		Type:        model.NotifyReviewReceived,
		Title:       "New Review",
		Message:     fmt.Sprintf("%q received a %d-star review", svc.Title, review.Rating),
		ServiceID:   &serviceID,
		ReviewID:    &review.ID,
	})

	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) Update(ctx context.Context, reviewID, buyerID uuid.UUID, req dto.UpdateReviewRequest) (*dto.ReviewResponse, error) {
	review, err := s.ownedReview(ctx, reviewID, buyerID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Title != nil {
		review.Title = *req.Title
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.invalidateServiceCache(ctx, review.ServiceID)
	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) Delete(ctx context.Context, reviewID, buyerID uuid.UUID) error {
	review, err := s.ownedReview(ctx, reviewID, buyerID)
	if err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	s.invalidateServiceCache(ctx, review.ServiceID)
	return nil
}

// VoteHelpful records one helpful vote per user per review; re-votes flip
// the existing vote.
func (s *ReviewService) VoteHelpful(ctx context.Context, reviewID, userID uuid.UUID, isHelpful bool) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return ErrReviewNotFound
	}
	if review.BuyerID == userID {
		return ErrReviewNotAllowed
	}
	if err := s.reviewRepo.UpsertHelpfulVote(ctx, &model.ReviewHelpful{
		ReviewID: reviewID, UserID: userID, IsHelpful: isHelpful,
	}); err != nil {
		return fmt.Errorf("vote helpful: %w", err)
	}
	return nil
}

func (s *ReviewService) ListByService(ctx context.Context, serviceID uuid.UUID, page, limit int) ([]dto.ReviewResponse, int, error) {
	reviews, total, err := s.reviewRepo.ListByServiceID(ctx, serviceID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}
	return resp, total, nil
}

func (s *ReviewService) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]dto.ReviewResponse, error) {
	reviews, err := s.reviewRepo.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list buyer reviews: %w", err)
	}
	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}
	return resp, nil
}

func (s *ReviewService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]dto.ReviewResponse, error) {
	reviews, err := s.reviewRepo.ListBySellerID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller reviews: %w", err)
	}
	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}
	return resp, nil
}

func (s *ReviewService) Stats(ctx context.Context, serviceID uuid.UUID) (*dto.ReviewStatsResponse, error) {
	stats, err := s.reviewRepo.Stats(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	avg, err := decimal.NewFromString(stats.AverageRating)
	if err != nil {
		avg = decimal.Zero
	}
	return &dto.ReviewStatsResponse{
		AverageRating:      avg,
		TotalReviews:       stats.TotalReviews,
		VerifiedReviews:    stats.VerifiedReviews,
		RatingDistribution: stats.RatingDistribution,
	}, nil
}

func (s *ReviewService) ownedReview(ctx context.Context, reviewID, buyerID uuid.UUID) (*model.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	if review.BuyerID != buyerID {
		return nil, ErrNotReviewOwner
	}
	return review, nil
}

// invalidateServiceCache drops the cached service read after a review write
// changed the rating aggregate. The aggregate itself is rebuilt inside the
// review repository's transaction.
func (s *ReviewService) invalidateServiceCache(ctx context.Context, serviceID uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "service:"+serviceID.String())
	}
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:           r.ID,
		ServiceID:    r.ServiceID,
		BuyerID:      r.BuyerID,
		SellerID:     r.SellerID,
		Rating:       r.Rating,
		Title:        r.Title,
		Comment:      r.Comment,
		IsVerified:   r.IsVerified,
		HelpfulCount: r.HelpfulCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
