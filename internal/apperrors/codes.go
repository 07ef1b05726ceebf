// Package apperrors provides coded errors shared by the services and the HTTP layer.
package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

// Kind groups codes by how a caller is expected to react.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindStateConflict   Kind = "state_conflict"
	KindAuthorization   Kind = "authorization"
	KindExternalService Kind = "external_service"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal"
)

const (
	CodeInternal Code = "INTERNAL"

	CodeValidation      Code = "VALIDATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeRateLimited     Code = "RATE_LIMITED"

	// Stock errors
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeProductArchived   Code = "PRODUCT_ARCHIVED"
	CodeVariantMismatch   Code = "VARIANT_MISMATCH"

	// Coupon errors
	CodeCouponNotFound      Code = "COUPON_NOT_FOUND"
	CodeCouponExpired       Code = "COUPON_EXPIRED"
	CodeCouponUsageExceeded Code = "COUPON_USAGE_EXCEEDED"
	CodeCouponMinimumNotMet Code = "COUPON_MINIMUM_NOT_MET"
	CodeCouponNotApplicable Code = "COUPON_NOT_APPLICABLE"

	// Gift card errors
	CodeGiftCardNotFound            Code = "GIFT_CARD_NOT_FOUND"
	CodeGiftCardNotActive           Code = "GIFT_CARD_NOT_ACTIVE"
	CodeGiftCardExpired             Code = "GIFT_CARD_EXPIRED"
	CodeGiftCardInsufficientBalance Code = "GIFT_CARD_INSUFFICIENT_BALANCE"

	// Order and payment errors
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidSignature  Code = "INVALID_SIGNATURE"
	CodePaymentFailed     Code = "PAYMENT_FAILED"
	CodeEmailFailed       Code = "EMAIL_FAILED"
)

// Kind returns the category the code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeValidation,
		CodeCouponExpired,
		CodeCouponUsageExceeded,
		CodeCouponMinimumNotMet,
		CodeCouponNotApplicable,
		CodeGiftCardNotActive,
		CodeGiftCardExpired,
		CodeGiftCardInsufficientBalance,
		CodeInvalidSignature:
		return KindValidation

	case CodeNotFound,
		CodeCouponNotFound,
		CodeGiftCardNotFound:
		return KindNotFound

	case CodeConflict,
		CodeInvalidTransition,
		CodeInsufficientStock,
		CodeProductArchived,
		CodeVariantMismatch:
		return KindStateConflict

	case CodeUnauthenticated, CodeForbidden:
		return KindAuthorization

	case CodePaymentFailed, CodeEmailFailed:
		return KindExternalService

	case CodeRateLimited:
		return KindRateLimited

	default:
		return KindInternal
	}
}

// HTTPStatus maps a code to the status the API answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	}
	switch c.Kind() {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindExternalService:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
