package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var (
	ErrServiceNotSaved = errors.New("service not saved")
	ErrAlreadySaved    = errors.New("service already saved")
)

// DashboardService serves the seller and buyer dashboards: analytics
// snapshots, earnings and saved services. Snapshots are recomputed from the
// source tables on every read, so they can never drift.
type DashboardService struct {
	analyticsRepo repository.AnalyticsRepository
	earningsRepo  repository.EarningsRepository
	savedRepo     repository.SavedServiceRepository
	serviceRepo   repository.ServiceRepository
}

func NewDashboardService(
	analyticsRepo repository.AnalyticsRepository,
	earningsRepo repository.EarningsRepository,
	savedRepo repository.SavedServiceRepository,
	serviceRepo repository.ServiceRepository,
) *DashboardService {
	return &DashboardService{
		analyticsRepo: analyticsRepo,
		earningsRepo:  earningsRepo,
		savedRepo:     savedRepo,
		serviceRepo:   serviceRepo,
	}
}

func (s *DashboardService) SellerAnalytics(ctx context.Context, sellerID uuid.UUID) (*dto.SellerAnalyticsResponse, error) {
	a, err := s.analyticsRepo.ComputeSeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("compute seller analytics: %w", err)
	}
	if err := s.analyticsRepo.UpsertSeller(ctx, a); err != nil {
		return nil, fmt.Errorf("store seller analytics: %w", err)
	}

	return &dto.SellerAnalyticsResponse{
		TotalServices:     a.TotalServices,
		ActiveServices:    a.ActiveServices,
		FeaturedServices:  a.FeaturedServices,
		TotalOrders:       a.TotalOrders,
		CompletedOrders:   a.CompletedOrders,
		CancelledOrders:   a.CancelledOrders,
		AverageOrderValue: a.AverageOrderValue,
		TotalReviews:      a.TotalReviews,
		AverageRating:     a.AverageRating,
		RatingCounts: map[int]int{
			1: a.RatingCounts[0], 2: a.RatingCounts[1], 3: a.RatingCounts[2],
			4: a.RatingCounts[3], 5: a.RatingCounts[4],
		},
		TotalEarnings:     a.TotalEarnings,
		TotalPlatformFees: a.TotalPlatformFees,
		PaidOutEarnings:   a.PaidOutEarnings,
		PendingEarnings:   a.PendingEarnings,
		CompletionRate:    a.CompletionRate,
		OnTimeRate:        a.OnTimeRate,
		OrdersThisMonth:   a.OrdersThisMonth,
		EarningsThisMonth: a.EarningsThisMonth,
		OrdersThisYear:    a.OrdersThisYear,
		EarningsThisYear:  a.EarningsThisYear,
		UpdatedAt:         a.UpdatedAt,
	}, nil
}

func (s *DashboardService) BuyerAnalytics(ctx context.Context, buyerID uuid.UUID) (*dto.BuyerAnalyticsResponse, error) {
	a, err := s.analyticsRepo.ComputeBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("compute buyer analytics: %w", err)
	}
	if err := s.analyticsRepo.UpsertBuyer(ctx, a); err != nil {
		return nil, fmt.Errorf("store buyer analytics: %w", err)
	}

	return &dto.BuyerAnalyticsResponse{
		TotalOrders:        a.TotalOrders,
		CompletedOrders:    a.CompletedOrders,
		CancelledOrders:    a.CancelledOrders,
		TotalSpent:         a.TotalSpent,
		AverageOrderValue:  a.AverageOrderValue,
		TotalReviewsGiven:  a.TotalReviewsGiven,
		AverageRatingGiven: a.AverageRatingGiven,
		SavedServices:      a.SavedServices,
		FavoriteCategories: a.FavoriteCategories,
		OrdersThisMonth:    a.OrdersThisMonth,
		SpentThisMonth:     a.SpentThisMonth,
		OrdersThisYear:     a.OrdersThisYear,
		SpentThisYear:      a.SpentThisYear,
		LastOrderAt:        a.LastOrderAt,
		LastReviewAt:       a.LastReviewAt,
		UpdatedAt:          a.UpdatedAt,
	}, nil
}

func (s *DashboardService) Earnings(ctx context.Context, sellerID uuid.UUID) ([]dto.EarningsResponse, error) {
	earnings, err := s.earningsRepo.ListBySellerID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	resp := make([]dto.EarningsResponse, 0, len(earnings))
	for _, e := range earnings {
		resp = append(resp, dto.EarningsResponse{
			ID:          e.ID,
			OrderID:     e.OrderID,
			GrossAmount: e.GrossAmount,
			PlatformFee: e.PlatformFee,
			NetAmount:   e.NetAmount,
			IsPaidOut:   e.IsPaidOut,
			PaidOutAt:   e.PaidOutAt,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp, nil
}

func (s *DashboardService) EarningsSummary(ctx context.Context, sellerID uuid.UUID) (*dto.EarningsSummaryResponse, error) {
	summary, err := s.earningsRepo.Summary(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("earnings summary: %w", err)
	}
	return &dto.EarningsSummaryResponse{
		Monthly:       dto.PeriodSummary{Earnings: summary.MonthlyEarnings, Orders: summary.MonthlyOrders},
		Yearly:        dto.PeriodSummary{Earnings: summary.YearlyEarnings, Orders: summary.YearlyOrders},
		AllTime:       dto.PeriodSummary{Earnings: summary.AllTimeEarnings, Orders: summary.AllTimeOrders},
		PendingPayout: summary.PendingPayout,
		PaidOut:       summary.PaidOut,
	}, nil
}

func (s *DashboardService) SpendingSummary(ctx context.Context, buyerID uuid.UUID) (*dto.SpendingSummaryResponse, error) {
	a, err := s.analyticsRepo.ComputeBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("compute buyer analytics: %w", err)
	}
	return &dto.SpendingSummaryResponse{
		Monthly:    dto.PeriodSummary{Earnings: a.SpentThisMonth, Orders: a.OrdersThisMonth},
		Yearly:     dto.PeriodSummary{Earnings: a.SpentThisYear, Orders: a.OrdersThisYear},
		AllTime:    dto.PeriodSummary{Earnings: a.TotalSpent, Orders: a.TotalOrders},
		ByCategory: a.FavoriteCategories,
	}, nil
}

func (s *DashboardService) SaveService(ctx context.Context, buyerID uuid.UUID, req dto.SaveServiceRequest) (*dto.SavedServiceResponse, error) {
	svc, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, ErrServiceNotFound
	}

	saved := &model.SavedService{BuyerID: buyerID, ServiceID: req.ServiceID, Notes: req.Notes}
	if err := s.savedRepo.Save(ctx, saved); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySaved
		}
		return nil, fmt.Errorf("save service: %w", err)
	}
	return &dto.SavedServiceResponse{
		ID: saved.ID, ServiceID: saved.ServiceID, Notes: saved.Notes, SavedAt: saved.SavedAt,
	}, nil
}

// ToggleSave flips the saved state and reports the new one.
func (s *DashboardService) ToggleSave(ctx context.Context, buyerID, serviceID uuid.UUID) (*dto.ToggleSaveResponse, error) {
	removed, err := s.savedRepo.Remove(ctx, buyerID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("toggle save: %w", err)
	}
	if removed {
		return &dto.ToggleSaveResponse{IsSaved: false, Message: "service removed from saved list"}, nil
	}

	if _, err := s.SaveService(ctx, buyerID, dto.SaveServiceRequest{ServiceID: serviceID}); err != nil {
		if errors.Is(err, ErrAlreadySaved) {
			return &dto.ToggleSaveResponse{IsSaved: true, Message: "service already saved"}, nil
		}
		return nil, err
	}
	return &dto.ToggleSaveResponse{IsSaved: true, Message: "service saved"}, nil
}

func (s *DashboardService) RemoveSaved(ctx context.Context, buyerID, serviceID uuid.UUID) error {
	removed, err := s.savedRepo.Remove(ctx, buyerID, serviceID)
	if err != nil {
		return fmt.Errorf("remove saved service: %w", err)
	}
	if !removed {
		return ErrServiceNotSaved
	}
	return nil
}

func (s *DashboardService) SavedServices(ctx context.Context, buyerID uuid.UUID) ([]dto.SavedServiceResponse, error) {
	saved, err := s.savedRepo.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list saved services: %w", err)
	}
	resp := make([]dto.SavedServiceResponse, 0, len(saved))
	for _, sv := range saved {
		resp = append(resp, dto.SavedServiceResponse{
			ID: sv.ID, ServiceID: sv.ServiceID, Notes: sv.Notes, SavedAt: sv.SavedAt,
		})
	}
	return resp, nil
}
