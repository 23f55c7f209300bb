package service

import (
	"errors"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
)

// Cart mutation errors. Each maps to a distinct user-facing message.
var (
	ErrInvalidQuantity       = domain.Errorf(domain.EINVALID, "", "Quantity must be between %d and %d.", domain.MinLineQuantity, domain.MaxLineQuantity)
	ErrProductNotFound       = domain.Errorf(domain.ENOTFOUND, "", "Product not found.")
	ErrOutOfStock            = domain.Errorf(domain.EINVALID, "", "Product is out of stock.")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrQuantityLimitExceeded = domain.Errorf(domain.EINVALID, "", "Maximum quantity per product is %d.", domain.MaxLineQuantity)
	ErrCartItemNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Cart item not found.")
)

// Catalog and order errors.
var (
	ErrCategoryNotFound = domain.Errorf(domain.ENOTFOUND, "", "Category not found.")
	ErrOrderNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Order not found.")
)

// ErrSessionUnavailable is returned when no guest session can be allocated.
var ErrSessionUnavailable = errors.New("guest session unavailable")

// insufficientStock reports the live stock count. It matches
// ErrInsufficientStock under errors.Is.
func insufficientStock(available int32) error {
	return &domain.Error{
		Code:    domain.EINVALID,
		Message: fmt.Sprintf("Only %d items available in stock.", available),
		Err:     ErrInsufficientStock,
	}
}

// rejectionReason labels a business-rule error for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrQuantityLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCartItemNotFound):
		return "not_found"
	}
	return ""
}

// Account errors. Field-level failures are validation errors keyed by the
// request field they concern.
var (
	ErrInvalidCredentials  = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid email or password.")
	ErrAccountInactive     = domain.Errorf(domain.EFORBIDDEN, "", "Account is not activated. Please check your email for verification instructions.")
	ErrAlreadyActive       = domain.Errorf(domain.EINVALID, "", "Account is already activated.")
	ErrInvalidRefreshToken = domain.Errorf(domain.EUNAUTHORIZED, "", "Token is invalid or expired.")
	ErrEmailChangeConflict = domain.Errorf(domain.ECONFLICT, "", "This email address is already registered.")
	ErrUserNotFound        = domain.Errorf(domain.ENOTFOUND, "", "User not found.")
	ErrEmailRegistered     = domain.NewValidationError("", "email", "A user with this email already exists.")
	ErrInvalidVerification = domain.NewValidationError("", "token", "Invalid or expired verification token.")
	ErrInvalidResetToken   = domain.NewValidationError("", "token", "Invalid or expired reset token.")
	ErrInvalidChangeToken  = domain.NewValidationError("", "token", "Invalid or expired email change token.")
	ErrIncorrectPassword   = domain.NewValidationError("", "current_password", "Current password is incorrect.")
	ErrSameEmail           = domain.NewValidationError("", "new_email", "New email must be different from current email.")
	ErrNewEmailTaken       = domain.NewValidationError("", "new_email", "This email address is already registered.")
)

// Address book errors.
var (
	ErrAddressNotFound   = domain.Errorf(domain.ENOTFOUND, "", "Address not found.")
	ErrOnlyAddress       = domain.Errorf(domain.EINVALID, "", "Cannot delete the only address. Please add another address first.")
	ErrAddressLimit      = domain.Errorf(domain.EINVALID, "", "Maximum %d addresses allowed per user.", domain.MaxAddressesPerUser)
	ErrAddressLabelTaken = domain.NewValidationError("", "label", "An address with this label already exists.")
)
