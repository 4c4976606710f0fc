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
	"github.com/skillhub/marketplace-api/internal/repository"
)

func saveReq(serviceID uuid.UUID) dto.SaveServiceRequest {
	return dto.SaveServiceRequest{ServiceID: serviceID}
}

type mockSavedRepo struct {
	saved map[uuid.UUID]*model.SavedService
}

func newMockSavedRepo() *mockSavedRepo {
	return &mockSavedRepo{saved: make(map[uuid.UUID]*model.SavedService)}
}

func (m *mockSavedRepo) Save(_ context.Context, s *model.SavedService) error {
	for _, existing := range m.saved {
		if existing.BuyerID == s.BuyerID && existing.ServiceID == s.ServiceID {
			return repository.ErrDuplicate
		}
	}
	s.ID = uuid.New()
	m.saved[s.ID] = s
	return nil
}

func (m *mockSavedRepo) Remove(_ context.Context, buyerID, serviceID uuid.UUID) (bool, error) {
	for id, s := range m.saved {
		if s.BuyerID == buyerID && s.ServiceID == serviceID {
			delete(m.saved, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSavedRepo) IsSaved(_ context.Context, buyerID, serviceID uuid.UUID) (bool, error) {
	for _, s := range m.saved {
		if s.BuyerID == buyerID && s.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSavedRepo) ListByBuyerID(_ context.Context, buyerID uuid.UUID) ([]model.SavedService, error) {
	var out []model.SavedService
	for _, s := range m.saved {
		if s.BuyerID == buyerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockEarningsRepo struct {
	rows    []model.SellerEarnings
	summary repository.EarningsSummary
}

func (m *mockEarningsRepo) ListBySellerID(_ context.Context, sellerID uuid.UUID) ([]model.SellerEarnings, error) {
	var out []model.SellerEarnings
	for _, e := range m.rows {
		if e.SellerID == sellerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEarningsRepo) Summary(_ context.Context, _ uuid.UUID) (*repository.EarningsSummary, error) {
	s := m.summary
	return &s, nil
}

type mockAnalyticsRepo struct {
	seller        *model.SellerAnalytics
	buyer         *model.BuyerAnalytics
	sellerUpserts int
	buyerUpserts  int
}

func (m *mockAnalyticsRepo) ComputeSeller(_ context.Context, sellerID uuid.UUID) (*model.SellerAnalytics, error) {
	a := *m.seller
	a.SellerID = sellerID
	return &a, nil
}

func (m *mockAnalyticsRepo) UpsertSeller(_ context.Context, a *model.SellerAnalytics) error {
	m.sellerUpserts++
	m.seller = a
	return nil
}

func (m *mockAnalyticsRepo) GetSeller(_ context.Context, _ uuid.UUID) (*model.SellerAnalytics, error) {
	return m.seller, nil
}

func (m *mockAnalyticsRepo) ComputeBuyer(_ context.Context, buyerID uuid.UUID) (*model.BuyerAnalytics, error) {
	a := *m.buyer
	a.BuyerID = buyerID
	return &a, nil
}

func (m *mockAnalyticsRepo) UpsertBuyer(_ context.Context, a *model.BuyerAnalytics) error {
	m.buyerUpserts++
	m.buyer = a
	return nil
}

func (m *mockAnalyticsRepo) GetBuyer(_ context.Context, _ uuid.UUID) (*model.BuyerAnalytics, error) {
	return m.buyer, nil
}

func newDashboardFixture() (*DashboardService, *mockSavedRepo, *mockAnalyticsRepo, *mockServiceRepo) {
	analyticsRepo := &mockAnalyticsRepo{
		seller: &model.SellerAnalytics{
			TotalOrders: 4, CompletedOrders: 3,
			CompletionRate: decimal.NewFromInt(75),
			RatingCounts:   [5]int{0, 0, 1, 1, 2},
		},
		buyer: &model.BuyerAnalytics{
			TotalOrders: 2, CompletedOrders: 2,
			TotalSpent: decimal.NewFromInt(300),
			FavoriteCategories: []model.CategorySpend{
				{Category: "Design", Orders: 2, Total: decimal.NewFromInt(300)},
			},
		},
	}
	earningsRepo := &mockEarningsRepo{
		summary: repository.EarningsSummary{
			AllTimeEarnings: decimal.NewFromInt(270),
			AllTimeOrders:   3,
			PendingPayout:   decimal.NewFromInt(270),
		},
	}
	savedRepo := newMockSavedRepo()
	serviceRepo := newMockServiceRepo()
	svc := NewDashboardService(analyticsRepo, earningsRepo, savedRepo, serviceRepo)
	return svc, savedRepo, analyticsRepo, serviceRepo
}

func TestDashboardService_SellerAnalyticsStoresSnapshot(t *testing.T) {
	svc, _, analyticsRepo, _ := newDashboardFixture()

	resp, err := svc.SellerAnalytics(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 4, resp.TotalOrders)
	assert.Equal(t, 2, resp.RatingCounts[5])
	assert.Equal(t, 1, analyticsRepo.sellerUpserts, "every read refreshes the snapshot")
}

func TestDashboardService_EarningsSummary(t *testing.T) {
	svc, _, _, _ := newDashboardFixture()

	resp, err := svc.EarningsSummary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, resp.AllTime.Orders)
	assert.True(t, resp.AllTime.Earnings.Equal(decimal.NewFromInt(270)))
	assert.True(t, resp.PendingPayout.Equal(decimal.NewFromInt(270)))
}

func TestDashboardService_SaveService(t *testing.T) {
	svc, _, _, serviceRepo := newDashboardFixture()
	ctx := context.Background()
	buyerID := uuid.New()

	listing := &model.Service{SellerID: uuid.New(), Title: "Logo", Price: decimal.NewFromInt(50)}
	require.NoError(t, serviceRepo.Create(ctx, listing))

	saved, err := svc.SaveService(ctx, buyerID, saveReq(listing.ID))
	require.NoError(t, err)
	assert.Equal(t, listing.ID, saved.ServiceID)

	_, err = svc.SaveService(ctx, buyerID, saveReq(listing.ID))
	assert.ErrorIs(t, err, ErrAlreadySaved)

	// inactive services cannot be saved
	require.NoError(t, serviceRepo.Deactivate(ctx, listing.ID))
	_, err = svc.SaveService(ctx, uuid.New(), saveReq(listing.ID))
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestDashboardService_ToggleSaveFlips(t *testing.T) {
	svc, savedRepo, _, serviceRepo := newDashboardFixture()
	ctx := context.Background()
	buyerID := uuid.New()

	listing := &model.Service{SellerID: uuid.New(), Title: "Logo", Price: decimal.NewFromInt(50)}
	require.NoError(t, serviceRepo.Create(ctx, listing))

	resp, err := svc.ToggleSave(ctx, buyerID, listing.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsSaved)

	resp, err = svc.ToggleSave(ctx, buyerID, listing.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsSaved)

	isSaved, err := savedRepo.IsSaved(ctx, buyerID, listing.ID)
	require.NoError(t, err)
	assert.False(t, isSaved)
}

func TestDashboardService_RemoveSavedMissing(t *testing.T) {
	svc, _, _, _ := newDashboardFixture()

	err := svc.RemoveSaved(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrServiceNotSaved)
}

func TestDashboardService_BuyerAnalytics(t *testing.T) {
	svc, _, analyticsRepo, _ := newDashboardFixture()

	resp, err := svc.BuyerAnalytics(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.CompletedOrders)
	require.Len(t, resp.FavoriteCategories, 1)
	assert.Equal(t, "Design", resp.FavoriteCategories[0].Category)
	assert.Equal(t, 1, analyticsRepo.buyerUpserts)
}
