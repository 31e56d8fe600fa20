package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 에러 코드 정의
type ErrorCode string

const (
	// Validation Errors
	ErrCodeInvalidAmountBreakdown ErrorCode = "INVALID_AMOUNT_BREAKDOWN"
	ErrCodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"

	// Integrity Errors
	ErrCodeDuplicateOrder          ErrorCode = "DUPLICATE_ORDER"
	ErrCodeOrderAlreadySet         ErrorCode = "ORDER_ALREADY_SET"
	ErrCodePaymentAlreadySet       ErrorCode = "PAYMENT_ALREADY_SET"
	ErrCodeInvoiceGenerationDenied ErrorCode = "INVOICE_GENERATION_DENIED"

	// Concurrency Errors
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeTransitionConflict     ErrorCode = "TRANSITION_CONFLICT"

	// Trust Errors
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"

	// Not Found Errors
	ErrCodePurchaseNotFound ErrorCode = "PURCHASE_NOT_FOUND"
	ErrCodeCourseNotFound   ErrorCode = "COURSE_NOT_FOUND"
	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"

	// Infrastructure Errors
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// DomainError 도메인 에러 구조체
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// New 새로운 도메인 에러 생성
func New(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Newf 포맷 메시지로 도메인 에러 생성
func Newf(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 기존 에러를 래핑한 도메인 에러 생성
func Wrap(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Code 에러에서 에러 코드 추출 (도메인 에러가 아니면 빈 값)
func Code(err error) ErrorCode {
	var domainErr *DomainError
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Is 에러가 특정 코드를 가지는지 확인
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}

// IsRetryable 재시도 가능한 에러인지 판단
func IsRetryable(err error) bool {
	switch Code(err) {
	case ErrCodeConcurrentModification, ErrCodeStoreUnavailable:
		return true
	}
	return false
}

// IsValidation 호출자 잘못으로 재시도가 무의미한 에러인지 판단
func IsValidation(err error) bool {
	switch Code(err) {
	case ErrCodeInvalidAmountBreakdown, ErrCodeInvalidTransition,
		ErrCodeDuplicateOrder, ErrCodeOrderAlreadySet, ErrCodePaymentAlreadySet,
		ErrCodeInvoiceGenerationDenied, ErrCodeSignatureMismatch:
		return true
	}
	return false
}
