package domain

import (
	"time"

	"github.com/coursehub/purchase-service/common/errors"
)

// PurchaseStatus 구매 비즈니스 상태
type PurchaseStatus string

const (
	PurchaseStatusStarted   PurchaseStatus = "STARTED"
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
	PurchaseStatusFailed    PurchaseStatus = "FAILED"
	PurchaseStatusRefund    PurchaseStatus = "REFUND"
	PurchaseStatusRefunded  PurchaseStatus = "REFUNDED"
)

// OrderState 게이트웨이가 보고하는 주문 진행 상태
type OrderState string

const (
	OrderStateCreated   OrderState = "created"
	OrderStateAttempted OrderState = "attempted"
	OrderStatePaid      OrderState = "paid"
)

// PaymentState 게이트웨이가 보고하는 결제 진행 상태
type PaymentState string

const (
	PaymentStateCreated    PaymentState = "created"
	PaymentStateAuthorized PaymentState = "authorized"
	PaymentStateCaptured   PaymentState = "captured"
	PaymentStateRefunded   PaymentState = "refunded"
	PaymentStateFailed     PaymentState = "failed"
)

// PaymentMethod 결제 수단
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodEMI        PaymentMethod = "EMI"
	PaymentMethodNetBanking PaymentMethod = "NETBANKING"
	PaymentMethodCrypto     PaymentMethod = "CRYPTO"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

// AmountBreakdown 구매 금액 구성 (통화 최소 단위 정수)
type AmountBreakdown struct {
	Currency        string `json:"currency"`
	MRP             int64  `json:"mrp"`
	NetDiscount     int64  `json:"netDiscount"`
	CouponID        string `json:"couponId,omitempty"`
	CouponStatus    string `json:"couponStatus,omitempty"`
	TotalAmountPaid int64  `json:"totalAmountPaid"`
}

// Validate 금액 구성 검증: totalAmountPaid == mrp - netDiscount
func (a AmountBreakdown) Validate() error {
	if a.NetDiscount < 0 {
		return errors.Newf(errors.ErrCodeInvalidAmountBreakdown,
			"netDiscount must be non-negative, got %d", a.NetDiscount)
	}
	if a.TotalAmountPaid != a.MRP-a.NetDiscount {
		return errors.Newf(errors.ErrCodeInvalidAmountBreakdown,
			"totalAmountPaid %d does not equal mrp %d - netDiscount %d",
			a.TotalAmountPaid, a.MRP, a.NetDiscount)
	}
	return nil
}

// Purchase 구매 도메인 모델 (결제 시도 1건당 레코드 1건)
type Purchase struct {
	ID               string
	OwnerID          string
	CourseID         string
	AmountBreakdown  AmountBreakdown
	PaymentMethod    PaymentMethod
	OrderID          string
	OrderState       OrderState
	PaymentID        string
	PaymentState     PaymentState
	Status           PurchaseStatus
	GatewaySignature string
	InvoiceNumber    string
	PurchasedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// transitions 상태 전이 테이블 (단일 진실 공급원)
var transitions = map[PurchaseStatus][]PurchaseStatus{
	PurchaseStatusStarted:   {PurchaseStatusPending},
	PurchaseStatusPending:   {PurchaseStatusCompleted, PurchaseStatusFailed},
	PurchaseStatusCompleted: {PurchaseStatusRefund},
	PurchaseStatusRefund:    {PurchaseStatusRefunded},
	PurchaseStatusFailed:    {}, // 종료 상태
	PurchaseStatusRefunded:  {}, // 종료 상태
}

// IsTransitionAllowed 상태 전이 가능 여부 확인 (from == to는 항상 허용)
func IsTransitionAllowed(from, to PurchaseStatus) bool {
	if from == to {
		return true
	}

	allowed, exists := transitions[from]
	if !exists {
		return false
	}

	for _, next := range allowed {
		if next == to {
			return true
		}
	}

	return false
}

// ValidateTransition 전이가 허용되지 않으면 양 끝점을 담은 에러 반환
func ValidateTransition(from, to PurchaseStatus) error {
	if !IsTransitionAllowed(from, to) {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"transition not allowed: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal 종료 상태 여부 확인
func (s PurchaseStatus) IsTerminal() bool {
	allowed, exists := transitions[s]
	return exists && len(allowed) == 0
}

// CanTransitionTo 현재 구매의 상태 전이 가능 여부 확인
func (p *Purchase) CanTransitionTo(next PurchaseStatus) bool {
	return IsTransitionAllowed(p.Status, next)
}

// StatusForPaymentState 게이트웨이 결제 상태를 목표 비즈니스 상태로 매핑
// created/authorized는 상태 전이 없이 게이트웨이 필드만 갱신되므로 false 반환
func StatusForPaymentState(state PaymentState, current PurchaseStatus) (PurchaseStatus, bool) {
	switch state {
	case PaymentStateCaptured:
		return PurchaseStatusCompleted, true
	case PaymentStateFailed:
		return PurchaseStatusFailed, true
	case PaymentStateRefunded:
		// 환불 확정 콜백: 이미 REFUND면 REFUNDED로 확정
		if current == PurchaseStatusRefund || current == PurchaseStatusRefunded {
			return PurchaseStatusRefunded, true
		}
		return PurchaseStatusRefund, true
	default:
		return current, false
	}
}
