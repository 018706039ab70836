package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/service"
	"go.uber.org/zap"
)

var conflictCodes = map[error]string{
	service.ErrDuplicateBid:         "duplicate_bid",
	service.ErrOwnProject:           "own_project",
	service.ErrProjectClosed:        "project_closed",
	service.ErrProjectDeleted:       "project_deleted",
	service.ErrBidNotPending:        "bid_not_pending",
	service.ErrBidNotAccepted:       "bid_not_accepted",
	service.ErrAlreadyConfirmed:     "already_confirmed",
	service.ErrDeliveryNotConfirmed: "delivery_not_confirmed",
	service.ErrAlreadyRated:         "already_rated",
	service.ErrProfileIncomplete:    "profile_incomplete",
	service.ErrPayoutMethodMissing:  "payout_method_missing",
	service.ErrActiveProjectLimit:   "active_project_limit",
	service.ErrRoleAlreadySet:       "role_already_set",
	service.ErrWrongRole:            "wrong_role",
	service.ErrOwnDesign:            "own_design",
	service.ErrPurchaseNotPending:   "purchase_not_pending",
	service.ErrPurchaseInProgress:   "purchase_in_progress",
	service.ErrPaymentNotConfirmed:  "payment_not_confirmed",
	service.ErrPaymentFailed:        "payment_failed",
}

// respondError maps a service error onto the JSON error envelope. Unknown errors
// are logged and reported without detail.
func respondError(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		ib *service.InsufficientBalanceError
		bm *service.BelowMinimumError
	)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "resource not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "you do not have access to this resource"))
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, newFieldError(ve.Field, ve.Error()))
	case errors.As(err, &ib):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("insufficient_balance", ib.Error()))
	case errors.As(err, &bm):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("below_minimum", bm.Error()))
	}
	for target, code := range conflictCodes {
		if errors.Is(err, target) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse(code, target.Error()))
		}
	}
	zap.L().Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "something went wrong"))
}
