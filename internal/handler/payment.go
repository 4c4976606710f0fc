package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillhub/marketplace-api/internal/middleware"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "invalid order ID")
		return
	}

	resp, err := h.paymentService.Initiate(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentHandler) List(c *gin.Context) {
	resp, err := h.paymentService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "invalid payment ID")
		return
	}

	resp, err := h.paymentService.GetByID(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Methods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"methods": h.paymentService.Methods()})
}

// callbackParam reads a gateway callback field from the form body or, failing
// that, the query string. SSLCommerz posts form-encoded bodies but sandbox
// redirects sometimes arrive with query parameters only.
func callbackParam(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func (h *PaymentHandler) GatewaySuccess(c *gin.Context) {
	tranID := callbackParam(c, "tran_id")
	valID := callbackParam(c, "val_id")
	if tranID == "" || valID == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "tran_id and val_id are required")
		return
	}

	if err := h.paymentService.HandleSuccess(c.Request.Context(), tranID, valID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (h *PaymentHandler) GatewayFailed(c *gin.Context) {
	tranID := callbackParam(c, "tran_id")
	if tranID == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "tran_id is required")
		return
	}

	reason := callbackParam(c, "error")
	if err := h.paymentService.HandleFailure(c.Request.Context(), tranID, model.PaymentFailed, reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "failed"})
}

func (h *PaymentHandler) GatewayCancelled(c *gin.Context) {
	tranID := callbackParam(c, "tran_id")
	if tranID == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "tran_id is required")
		return
	}

	if err := h.paymentService.HandleFailure(c.Request.Context(), tranID, model.PaymentCancelled, "cancelled by user"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GatewayIPN is the server-to-server instant payment notification endpoint.
func (h *PaymentHandler) GatewayIPN(c *gin.Context) {
	status := callbackParam(c, "status")
	tranID := callbackParam(c, "tran_id")
	valID := callbackParam(c, "val_id")
	if tranID == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "tran_id is required")
		return
	}

	if err := h.paymentService.HandleIPN(c.Request.Context(), status, tranID, valID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
