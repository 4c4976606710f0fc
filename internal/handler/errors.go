package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/service"
)

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: message}})
}

// respondError maps service sentinel errors to HTTP statuses in one place so
// handlers stay thin. Unknown errors become an opaque 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		fail(c, http.StatusConflict, "user_exists", "a user with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrInvalidVerifyToken):
		fail(c, http.StatusNotFound, "invalid_token", "verification token not found")
	case errors.Is(err, service.ErrVerifyTokenExpired):
		fail(c, http.StatusGone, "token_expired", "verification token has expired")

	case errors.Is(err, service.ErrServiceNotFound):
		fail(c, http.StatusNotFound, "service_not_found", "service not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		fail(c, http.StatusNotFound, "category_not_found", "category not found")
	case errors.Is(err, service.ErrNotServiceOwner):
		fail(c, http.StatusForbidden, "not_owner", "only the service owner may do this")

	case errors.Is(err, service.ErrReviewNotFound):
		fail(c, http.StatusNotFound, "review_not_found", "review not found")
	case errors.Is(err, service.ErrNotReviewOwner):
		fail(c, http.StatusForbidden, "not_owner", "only the review author may do this")
	case errors.Is(err, service.ErrAlreadyReviewed):
		fail(c, http.StatusConflict, "already_reviewed", "this service was already reviewed")
	case errors.Is(err, service.ErrReviewNotAllowed):
		fail(c, http.StatusForbidden, "review_not_allowed", "a completed order is required to review")

	case errors.Is(err, service.ErrOrderNotFound):
		fail(c, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, service.ErrOrderAccessDenied):
		fail(c, http.StatusForbidden, "access_denied", "access denied")
	case errors.Is(err, service.ErrServiceUnavailable):
		fail(c, http.StatusUnprocessableEntity, "service_unavailable", "service is not available for ordering")
	case errors.Is(err, service.ErrOwnService):
		fail(c, http.StatusUnprocessableEntity, "own_service", "cannot order your own service")
	case errors.Is(err, service.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, "invalid_status", "unknown order status")
	case errors.Is(err, service.ErrStatusNotAllowed):
		fail(c, http.StatusForbidden, "status_not_allowed", "your role may not set this status")
	case errors.Is(err, service.ErrCancelNotAllowed):
		fail(c, http.StatusUnprocessableEntity, "cancel_not_allowed", "order can no longer be cancelled")
	case errors.Is(err, model.ErrInvalidTransition):
		fail(c, http.StatusUnprocessableEntity, "invalid_transition", "status not reachable from the current one")
	case errors.Is(err, service.ErrOrderConflict):
		fail(c, http.StatusConflict, "conflict", "order was updated concurrently, retry")

	case errors.Is(err, service.ErrNotificationNotFound):
		fail(c, http.StatusNotFound, "notification_not_found", "notification not found")

	case errors.Is(err, service.ErrServiceNotSaved):
		fail(c, http.StatusNotFound, "not_saved", "service is not in the saved list")
	case errors.Is(err, service.ErrAlreadySaved):
		fail(c, http.StatusConflict, "already_saved", "service is already saved")

	case errors.Is(err, service.ErrPaymentNotFound):
		fail(c, http.StatusNotFound, "payment_not_found", "payment not found")
	case errors.Is(err, service.ErrOrderAlreadyPaid):
		fail(c, http.StatusConflict, "already_paid", "order is already paid")
	case errors.Is(err, service.ErrOrderNotPayable):
		fail(c, http.StatusUnprocessableEntity, "not_payable", "order cannot be paid")
	case errors.Is(err, service.ErrPaymentInFlight):
		fail(c, http.StatusConflict, "payment_in_flight", "another payment is in progress for this order")
	case errors.Is(err, service.ErrPaymentVerification):
		fail(c, http.StatusBadRequest, "verification_failed", "payment could not be verified")
	case errors.Is(err, service.ErrPaymentConflict):
		fail(c, http.StatusConflict, "conflict", "payment was updated concurrently")
	case errors.Is(err, service.ErrGatewayError):
		fail(c, http.StatusBadGateway, "gateway_error", "payment gateway is unavailable, try again")

	default:
		fail(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}
