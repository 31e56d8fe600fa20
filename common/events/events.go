package events

import "time"

// EventType 이벤트 타입 정의
type EventType string

const (
	// Purchase Lifecycle Events
	EventPurchaseStarted         EventType = "purchase.started.v1"
	EventPurchasePending         EventType = "purchase.pending.v1"
	EventPurchaseCompleted       EventType = "purchase.completed.v1"
	EventPurchaseFailed          EventType = "purchase.failed.v1"
	EventPurchaseRefundRequested EventType = "purchase.refund_requested.v1"
	EventPurchaseRefunded        EventType = "purchase.refunded.v1"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"` // 구매 ID로 사용
}

// PurchaseStartedEvent 구매 시작 이벤트
type PurchaseStartedEvent struct {
	BaseEvent
	PurchaseID      string `json:"purchaseId"`
	OwnerID         string `json:"ownerId"`
	CourseID        string `json:"courseId"`
	Currency        string `json:"currency"`
	TotalAmountPaid int64  `json:"totalAmountPaid"`
	PaymentMethod   string `json:"paymentMethod"`
}

// PurchasePendingEvent 게이트웨이 주문 접수 이벤트
type PurchasePendingEvent struct {
	BaseEvent
	PurchaseID string `json:"purchaseId"`
	OrderID    string `json:"orderId"`
	OrderState string `json:"orderState"`
}

// PurchaseCompletedEvent 구매 완료 이벤트
type PurchaseCompletedEvent struct {
	BaseEvent
	PurchaseID      string    `json:"purchaseId"`
	OwnerID         string    `json:"ownerId"`
	CourseID        string    `json:"courseId"`
	PaymentID       string    `json:"paymentId"`
	TotalAmountPaid int64     `json:"totalAmountPaid"`
	InvoiceNumber   string    `json:"invoiceNumber"`
	PurchasedAt     time.Time `json:"purchasedAt"`
}

// PurchaseFailedEvent 구매 실패 이벤트
type PurchaseFailedEvent struct {
	BaseEvent
	PurchaseID string `json:"purchaseId"`
	PaymentID  string `json:"paymentId,omitempty"`
	Reason     string `json:"reason"`
}

// PurchaseRefundRequestedEvent 환불 요청 이벤트
type PurchaseRefundRequestedEvent struct {
	BaseEvent
	PurchaseID  string `json:"purchaseId"`
	RequestedBy string `json:"requestedBy"`
}

// PurchaseRefundedEvent 환불 완료 이벤트
type PurchaseRefundedEvent struct {
	BaseEvent
	PurchaseID      string `json:"purchaseId"`
	PaymentID       string `json:"paymentId"`
	TotalAmountPaid int64  `json:"totalAmountPaid"`
}
