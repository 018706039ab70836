package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// State conflicts. Handlers report these as 400 with the message as-is.
var (
	ErrDuplicateBid         = errors.New("you already have a bid on this project")
	ErrOwnProject           = errors.New("you cannot bid on your own project")
	ErrProjectClosed        = errors.New("project is no longer accepting bids")
	ErrProjectDeleted       = errors.New("project has been deleted")
	ErrBidNotPending        = errors.New("bid is no longer pending")
	ErrBidNotAccepted       = errors.New("bid has not been accepted")
	ErrAlreadyConfirmed     = errors.New("delivery has already been confirmed")
	ErrDeliveryNotConfirmed = errors.New("delivery has not been confirmed yet")
	ErrAlreadyRated         = errors.New("you have already rated this order")
	ErrProfileIncomplete    = errors.New("complete your maker profile (name, location, printers) first")
	ErrPayoutMethodMissing  = errors.New("configure a payout method first")
	ErrActiveProjectLimit   = errors.New("active project limit reached")
	ErrRoleAlreadySet       = errors.New("role cannot be changed once set")
	ErrWrongRole            = errors.New("action not allowed for your role")
	ErrOwnDesign            = errors.New("you cannot buy your own design")
	ErrPurchaseNotPending   = errors.New("purchase is no longer pending payment")
	ErrPurchaseInProgress   = errors.New("you already have an open purchase for this design")
	ErrPaymentNotConfirmed  = errors.New("payment has not been confirmed yet")
	ErrPaymentFailed        = errors.New("payment failed or was canceled")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

type InsufficientBalanceError struct {
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available €%s", e.Available.StringFixed(2))
}

type BelowMinimumError struct {
	Method  model.PayoutMethod
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum payout for %s is €%s", e.Method, e.Minimum.StringFixed(2))
}

// IsStateConflict reports whether err is one of the state-conflict sentinels.
func IsStateConflict(err error) bool {
	for _, target := range []error{
		ErrDuplicateBid, ErrOwnProject, ErrProjectClosed, ErrProjectDeleted,
		ErrBidNotPending, ErrBidNotAccepted, ErrAlreadyConfirmed, ErrDeliveryNotConfirmed,
		ErrAlreadyRated, ErrProfileIncomplete, ErrPayoutMethodMissing, ErrActiveProjectLimit,
		ErrRoleAlreadySet, ErrWrongRole, ErrOwnDesign, ErrPurchaseNotPending, ErrPurchaseInProgress,
		ErrPaymentNotConfirmed, ErrPaymentFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var ib *InsufficientBalanceError
	var bm *BelowMinimumError
	return errors.As(err, &ib) || errors.As(err, &bm)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
