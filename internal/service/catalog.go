package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var (
	ErrServiceNotFound  = errors.New("service not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotServiceOwner  = errors.New("not the service owner")
)

const serviceCacheTTL = 60 * time.Second

// CatalogService owns categories and service listings. Single-service reads
// go through a redis read-through cache invalidated on every write.
type CatalogService struct {
	serviceRepo  repository.ServiceRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
}

func NewCatalogService(serviceRepo repository.ServiceRepository, categoryRepo repository.CategoryRepository, redisClient *redis.Client) *CatalogService {
	return &CatalogService{serviceRepo: serviceRepo, categoryRepo: categoryRepo, redisClient: redisClient}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	resp := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, dto.CategoryResponse{
			ID: c.ID, Name: c.Name, Description: c.Description, Icon: c.Icon,
		})
	}
	return resp, nil
}

func (s *CatalogService) Create(ctx context.Context, sellerID uuid.UUID, req dto.CreateServiceRequest) (*dto.ServiceResponse, error) {
	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	svc := &model.Service{
		SellerID:     sellerID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Requirements: req.Requirements,
		Features:     req.Features,
		Images:       req.Images,
	}
	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	resp := toServiceResponse(svc)
	return &resp, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ServiceResponse, error) {
	cacheKey := "service:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ServiceResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, ErrServiceNotFound
	}

	resp := toServiceResponse(svc)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, serviceCacheTTL)
		}
	}
	return &resp, nil
}

func (s *CatalogService) List(ctx context.Context, req dto.ListServicesRequest) (*dto.ServiceListResponse, error) {
	filter := repository.ServiceFilter{
		MinPrice:     req.MinPrice,
		MaxPrice:     req.MaxPrice,
		MinRating:    req.MinRating,
		FeaturedOnly: req.Featured,
		ActiveOnly:   true,
		Search:       req.Search,
		SortBy:       req.SortBy,
		Limit:        req.Limit,
		Offset:       (req.Page - 1) * req.Limit,
	}
	if req.Category != "" {
		category, err := s.categoryRepo.GetByName(ctx, req.Category)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return &dto.ServiceListResponse{Page: req.Page, Limit: req.Limit}, nil
		}
		filter.CategoryID = &category.ID
	}

	services, total, err := s.serviceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	var items []dto.ServiceResponse
	for i := range services {
		items = append(items, toServiceResponse(&services[i]))
	}
	return &dto.ServiceListResponse{Services: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// ListBySeller includes inactive services when the seller views their own
// catalog; visitors only see active ones.
func (s *CatalogService) ListBySeller(ctx context.Context, sellerID uuid.UUID, own bool) ([]dto.ServiceResponse, error) {
	filter := repository.ServiceFilter{
		SellerID:   &sellerID,
		ActiveOnly: !own,
		SortBy:     "newest",
		Limit:      100,
	}
	services, _, err := s.serviceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list seller services: %w", err)
	}
	var items []dto.ServiceResponse
	for i := range services {
		items = append(items, toServiceResponse(&services[i]))
	}
	return items, nil
}

func (s *CatalogService) Update(ctx context.Context, id, sellerID uuid.UUID, req dto.UpdateServiceRequest) (*dto.ServiceResponse, error) {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, ErrServiceNotFound
	}
	if svc.SellerID != sellerID {
		return nil, ErrNotServiceOwner
	}

	if req.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		svc.CategoryID = *req.CategoryID
	}
	if req.Title != nil {
		svc.Title = *req.Title
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Price != nil {
		svc.Price = *req.Price
	}
	if req.DeliveryDays != nil {
		svc.DeliveryDays = *req.DeliveryDays
	}
	if req.Requirements != nil {
		svc.Requirements = *req.Requirements
	}
	if req.Features != nil {
		svc.Features = req.Features
	}
	if req.Images != nil {
		svc.Images = req.Images
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		svc.IsFeatured = *req.IsFeatured
	}

	if err := s.serviceRepo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	s.invalidateCache(ctx, id)
	resp := toServiceResponse(svc)
	return &resp, nil
}

// Delete deactivates the service rather than removing the row, so orders and
// reviews keep their reference.
func (s *CatalogService) Delete(ctx context.Context, id, sellerID uuid.UUID) error {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return ErrServiceNotFound
	}
	if svc.SellerID != sellerID {
		return ErrNotServiceOwner
	}
	if err := s.serviceRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate service: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "service:"+id.String())
	}
}

func toServiceResponse(svc *model.Service) dto.ServiceResponse {
	return dto.ServiceResponse{
		ID:            svc.ID,
		SellerID:      svc.SellerID,
		CategoryID:    svc.CategoryID,
		Title:         svc.Title,
		Description:   svc.Description,
		Price:         svc.Price,
		DeliveryDays:  svc.DeliveryDays,
		Requirements:  svc.Requirements,
		Features:      svc.Features,
		Images:        svc.Images,
		IsActive:      svc.IsActive,
		IsFeatured:    svc.IsFeatured,
		AverageRating: svc.AverageRating,
		TotalReviews:  svc.TotalReviews,
		CreatedAt:     svc.CreatedAt,
		UpdatedAt:     svc.UpdatedAt,
	}
}
