package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/middleware"
	"github.com/skillhub/marketplace-api/internal/service"
)

// DashboardHandler serves the role-scoped seller/* and buyer/* route groups.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	catalogService   *service.CatalogService
	reviewService    *service.ReviewService
	orderService     *service.OrderService
}

func NewDashboardHandler(
	dashboardService *service.DashboardService,
	catalogService *service.CatalogService,
	reviewService *service.ReviewService,
	orderService *service.OrderService,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		catalogService:   catalogService,
		reviewService:    reviewService,
		orderService:     orderService,
	}
}

func (h *DashboardHandler) SellerAnalytics(c *gin.Context) {
	resp, err := h.dashboardService.SellerAnalytics(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) SellerEarnings(c *gin.Context) {
	earnings, err := h.dashboardService.Earnings(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": earnings})
}

func (h *DashboardHandler) SellerEarningsSummary(c *gin.Context) {
	resp, err := h.dashboardService.EarningsSummary(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) SellerServices(c *gin.Context) {
	services, err := h.catalogService.ListBySeller(c.Request.Context(), middleware.GetUserID(c), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *DashboardHandler) SellerReviews(c *gin.Context) {
	reviews, err := h.reviewService.ListBySeller(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *DashboardHandler) BuyerAnalytics(c *gin.Context) {
	resp, err := h.dashboardService.BuyerAnalytics(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) BuyerSpendingSummary(c *gin.Context) {
	resp, err := h.dashboardService.SpendingSummary(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) BuyerOrderStats(c *gin.Context) {
	resp, err := h.orderService.BuyerStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) BuyerReviews(c *gin.Context) {
	reviews, err := h.reviewService.ListByBuyer(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *DashboardHandler) SaveService(c *gin.Context) {
	var req dto.SaveServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.dashboardService.SaveService(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DashboardHandler) ToggleSave(c *gin.Context) {
	var req dto.SaveServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.dashboardService.ToggleSave(c.Request.Context(), middleware.GetUserID(c), req.ServiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) RemoveSaved(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "invalid service ID")
		return
	}

	if err := h.dashboardService.RemoveSaved(c.Request.Context(), middleware.GetUserID(c), serviceID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DashboardHandler) SavedServices(c *gin.Context) {
	saved, err := h.dashboardService.SavedServices(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_services": saved})
}
