package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
)

type reviewFixture struct {
	svc         *ReviewService
	serviceRepo *mockServiceRepo
	orderRepo   *mockOrderRepo
	reviewRepo  *mockReviewRepo
	serviceID   uuid.UUID
	sellerID    uuid.UUID
	buyerID     uuid.UUID
}

// newReviewFixture seeds a service and a completed, paid order for the buyer.
func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		serviceRepo: newMockServiceRepo(),
		orderRepo:   newMockOrderRepo(),
		reviewRepo:  newMockReviewRepo(),
		sellerID:    uuid.New(),
		buyerID:     uuid.New(),
	}
	svcModel := seedService(f.serviceRepo, f.sellerID, 500)
	f.serviceID = svcModel.ID
	f.reviewRepo.services = f.serviceRepo.services

	order := &model.Order{
		ServiceID: f.serviceID, BuyerID: f.buyerID, SellerID: f.sellerID,
		Status: model.OrderCompleted, IsPaid: true,
	}
	require.NoError(t, f.orderRepo.Create(context.Background(), order))

	f.svc = NewReviewService(f.reviewRepo, f.serviceRepo, f.orderRepo, nil, nil)
	return f
}

func TestReviewService_Submit(t *testing.T) {
	f := newReviewFixture(t)
	resp, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 5, Title: "Great", Comment: "delivered early",
	})
	require.NoError(t, err)
	assert.Equal(t, f.sellerID, resp.SellerID)
	assert.True(t, resp.IsVerified)

	// the service aggregate moves with the review write
	svc := f.serviceRepo.services[f.serviceID]
	assert.Equal(t, 1, svc.TotalReviews)
	assert.True(t, svc.AverageRating.Equal(decimal.NewFromInt(5)), "got %s", svc.AverageRating)
}

func TestReviewService_Submit_WriteFailureSurfaces(t *testing.T) {
	f := newReviewFixture(t)
	f.reviewRepo.createErr = errors.New("tx aborted")

	_, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 5, Title: "Great", Comment: "delivered early",
	})
	require.Error(t, err)

	// nothing succeeded halfway: no review, aggregate untouched
	svc := f.serviceRepo.services[f.serviceID]
	assert.Equal(t, 0, svc.TotalReviews)
	assert.Empty(t, f.reviewRepo.reviews)
}

func TestReviewService_Submit_Duplicate(t *testing.T) {
	f := newReviewFixture(t)
	req := dto.CreateReviewRequest{Rating: 4, Title: "ok", Comment: "fine"}
	_, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, req)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), f.serviceID, f.buyerID, req)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestReviewService_Submit_RequiresCompletedOrder(t *testing.T) {
	f := newReviewFixture(t)
	stranger := uuid.New()
	_, err := f.svc.Submit(context.Background(), f.serviceID, stranger, dto.CreateReviewRequest{
		Rating: 1, Title: "bad", Comment: "never ordered",
	})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)
}

func TestReviewService_Submit_OwnServiceRejected(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.svc.Submit(context.Background(), f.serviceID, f.sellerID, dto.CreateReviewRequest{
		Rating: 5, Title: "best", Comment: "my own work",
	})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)
}

func TestReviewService_Submit_UnpaidOrderNotVerified(t *testing.T) {
	f := newReviewFixture(t)
	for _, o := range f.orderRepo.orders {
		o.IsPaid = false
	}
	resp, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 3, Title: "ok", Comment: "paid offline",
	})
	require.NoError(t, err)
	assert.False(t, resp.IsVerified)
}

func TestReviewService_UpdateAndDelete_OwnerOnly(t *testing.T) {
	f := newReviewFixture(t)
	resp, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 4, Title: "ok", Comment: "fine",
	})
	require.NoError(t, err)

	rating := 2
	_, err = f.svc.Update(context.Background(), resp.ID, uuid.New(), dto.UpdateReviewRequest{Rating: &rating})
	assert.ErrorIs(t, err, ErrNotReviewOwner)

	updated, err := f.svc.Update(context.Background(), resp.ID, f.buyerID, dto.UpdateReviewRequest{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)

	err = f.svc.Delete(context.Background(), resp.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotReviewOwner)
	require.NoError(t, f.svc.Delete(context.Background(), resp.ID, f.buyerID))

	err = f.svc.Delete(context.Background(), resp.ID, f.buyerID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestReviewService_VoteHelpful(t *testing.T) {
	f := newReviewFixture(t)
	resp, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 5, Title: "great", Comment: "yes",
	})
	require.NoError(t, err)

	// author cannot vote on their own review
	err = f.svc.VoteHelpful(context.Background(), resp.ID, f.buyerID, true)
	assert.ErrorIs(t, err, ErrReviewNotAllowed)

	voter := uuid.New()
	require.NoError(t, f.svc.VoteHelpful(context.Background(), resp.ID, voter, true))
	review, err := f.reviewRepo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, review.HelpfulCount)

	// re-vote flips rather than stacking
	require.NoError(t, f.svc.VoteHelpful(context.Background(), resp.ID, voter, false))
	review, err = f.reviewRepo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, review.HelpfulCount)
}

func TestReviewService_Stats(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.svc.Submit(context.Background(), f.serviceID, f.buyerID, dto.CreateReviewRequest{
		Rating: 5, Title: "great", Comment: "yes",
	})
	require.NoError(t, err)

	stats, err := f.svc.Stats(context.Background(), f.serviceID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReviews)
	assert.Equal(t, 1, stats.VerifiedReviews)
	assert.Equal(t, 1, stats.RatingDistribution[5])
}
