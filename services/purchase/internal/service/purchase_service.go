package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursehub/purchase-service/common/errors"
	"github.com/coursehub/purchase-service/common/events"
	"github.com/coursehub/purchase-service/common/retry"
	"github.com/coursehub/purchase-service/services/purchase/internal/domain"
	"github.com/coursehub/purchase-service/services/purchase/internal/gateway"
	"github.com/coursehub/purchase-service/services/purchase/internal/repository"
)

// InitiatePurchaseCommand 구매 시작 커맨드
type InitiatePurchaseCommand struct {
	OwnerID         string
	CourseID        string
	AmountBreakdown domain.AmountBreakdown
	PaymentMethod   domain.PaymentMethod
}

// GatewayCallbackCommand 게이트웨이 콜백 커맨드
type GatewayCallbackCommand struct {
	OrderID      string
	PaymentID    string
	PaymentState domain.PaymentState
	Payload      []byte
	Signature    string
}

// PurchaseService 구매 라이프사이클 서비스 인터페이스
// purchase_status를 변경할 수 있는 유일한 컴포넌트
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, cmd InitiatePurchaseCommand) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, purchaseID string) (*domain.Purchase, error)
	RecordGatewayOrder(ctx context.Context, purchaseID, orderID string, orderState domain.OrderState) (*domain.Purchase, error)
	ApplyGatewayCallback(ctx context.Context, cmd GatewayCallbackCommand) (*domain.Purchase, error)
	RequestRefund(ctx context.Context, purchaseID, requestedBy string) (*domain.Purchase, error)
	FinalizeRefund(ctx context.Context, purchaseID string) (*domain.Purchase, error)
}

type purchaseService struct {
	purchaseRepo  repository.PurchaseRepository
	catalog       repository.CourseCatalog
	users         repository.UserDirectory
	verifier      gateway.Verifier
	logger        *zap.Logger
	callbackRetry retry.Config
}

// NewPurchaseService 구매 서비스 생성
func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	catalog repository.CourseCatalog,
	users repository.UserDirectory,
	verifier gateway.Verifier,
	logger *zap.Logger,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		catalog:      catalog,
		users:        users,
		verifier:     verifier,
		logger:       logger,
		callbackRetry: retry.Config{
			MaxAttempts:        3,
			InitialInterval:    20 * time.Millisecond,
			MaxInterval:        100 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaxElapsedTime:     2 * time.Second,
			RetryIf: func(err error) bool {
				return errors.Is(err, errors.ErrCodeConcurrentModification)
			},
		},
	}
}

// InitiatePurchase 구매 시작 (STARTED 상태로 생성)
func (s *purchaseService) InitiatePurchase(ctx context.Context, cmd InitiatePurchaseCommand) (*domain.Purchase, error) {
	exists, err := s.users.Exists(ctx, cmd.OwnerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUserNotFound, "user not found: %s", cmd.OwnerID)
	}

	course, err := s.catalog.FindByID(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	// 통화와 기준 가격은 카탈로그가 제공, 할인/쿠폰/합계는 호출자가 제공
	breakdown := cmd.AmountBreakdown
	breakdown.Currency = course.BasePrice.Currency
	breakdown.MRP = course.BasePrice.Amount

	if err := breakdown.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	purchase := &domain.Purchase{
		ID:              uuid.New().String(),
		OwnerID:         cmd.OwnerID,
		CourseID:        cmd.CourseID,
		AmountBreakdown: breakdown,
		PaymentMethod:   cmd.PaymentMethod,
		Status:          domain.PurchaseStatusStarted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	event, err := s.outboxEvent(purchase.ID, events.EventPurchaseStarted, events.PurchaseStartedEvent{
		BaseEvent:       s.baseEvent(events.EventPurchaseStarted, purchase.ID),
		PurchaseID:      purchase.ID,
		OwnerID:         purchase.OwnerID,
		CourseID:        purchase.CourseID,
		Currency:        breakdown.Currency,
		TotalAmountPaid: breakdown.TotalAmountPaid,
		PaymentMethod:   string(purchase.PaymentMethod),
	})
	if err != nil {
		return nil, err
	}

	if err := s.purchaseRepo.Create(ctx, purchase, event); err != nil {
		return nil, err
	}

	s.logger.Info("purchase initiated",
		zap.String("purchaseId", purchase.ID),
		zap.String("ownerId", purchase.OwnerID),
		zap.String("courseId", purchase.CourseID),
		zap.Int64("totalAmountPaid", breakdown.TotalAmountPaid))

	return purchase, nil
}

// GetPurchase 구매 조회
func (s *purchaseService) GetPurchase(ctx context.Context, purchaseID string) (*domain.Purchase, error) {
	return s.purchaseRepo.FindByID(ctx, purchaseID)
}

// RecordGatewayOrder 게이트웨이 주문 참조 기록 (orderId는 1회만 설정 가능)
func (s *purchaseService) RecordGatewayOrder(ctx context.Context, purchaseID, orderID string, orderState domain.OrderState) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	if purchase.OrderID != "" && purchase.OrderID != orderID {
		return nil, errors.Newf(errors.ErrCodeOrderAlreadySet,
			"purchase %s already bound to gateway order %s", purchase.ID, purchase.OrderID)
	}

	expected := purchase.Status
	purchase.OrderID = orderID
	purchase.OrderState = orderState

	// attempted 이상으로 진행하면 STARTED -> PENDING 전이 시도
	var event *repository.OutboxEvent
	if orderState != domain.OrderStateCreated && purchase.Status == domain.PurchaseStatusStarted {
		if err := domain.ValidateTransition(purchase.Status, domain.PurchaseStatusPending); err != nil {
			return nil, err
		}
		purchase.Status = domain.PurchaseStatusPending

		event, err = s.outboxEvent(purchase.ID, events.EventPurchasePending, events.PurchasePendingEvent{
			BaseEvent:  s.baseEvent(events.EventPurchasePending, purchase.ID),
			PurchaseID: purchase.ID,
			OrderID:    orderID,
			OrderState: string(orderState),
		})
		if err != nil {
			return nil, err
		}
	}

	ok, err := s.purchaseRepo.UpdateIfStatus(ctx, purchase, expected, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConcurrentModification,
			"purchase %s status moved during gateway order update", purchase.ID)
	}

	s.logger.Info("gateway order recorded",
		zap.String("purchaseId", purchase.ID),
		zap.String("orderId", orderID),
		zap.String("orderState", string(orderState)),
		zap.String("status", string(purchase.Status)))

	return purchase, nil
}

// ApplyGatewayCallback 게이트웨이 콜백 적용 (동시성 민감 진입점)
// 충돌 시 재읽기-재적용을 제한 횟수까지 반복하고, 소진되면 TRANSITION_CONFLICT로 표면화
func (s *purchaseService) ApplyGatewayCallback(ctx context.Context, cmd GatewayCallbackCommand) (*domain.Purchase, error) {
	purchase, err := retry.DoWithResult(ctx, s.callbackRetry, s.logger, func() (*domain.Purchase, error) {
		return s.applyCallbackOnce(ctx, cmd)
	})

	if err != nil {
		if errors.Is(err, errors.ErrCodeConcurrentModification) {
			return nil, errors.Wrap(errors.ErrCodeTransitionConflict,
				"gateway callback lost the status race repeatedly", err)
		}
		return nil, err
	}

	return purchase, nil
}

func (s *purchaseService) applyCallbackOnce(ctx context.Context, cmd GatewayCallbackCommand) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByGatewayRefs(ctx, cmd.OrderID, cmd.PaymentID)
	if err != nil {
		return nil, err
	}

	// 검증 실패한 콜백은 어떤 필드에도 반영하지 않음
	if err := s.verifier.Verify(cmd.Payload, cmd.Signature); err != nil {
		s.logger.Warn("gateway callback rejected: signature mismatch",
			zap.String("purchaseId", purchase.ID),
			zap.String("orderId", cmd.OrderID),
			zap.String("paymentId", cmd.PaymentID))
		return nil, err
	}

	if cmd.PaymentID != "" && purchase.PaymentID != "" && purchase.PaymentID != cmd.PaymentID {
		return nil, errors.Newf(errors.ErrCodePaymentAlreadySet,
			"purchase %s already bound to payment %s", purchase.ID, purchase.PaymentID)
	}

	expected := purchase.Status
	target, changesStatus := domain.StatusForPaymentState(cmd.PaymentState, purchase.Status)

	if cmd.PaymentID != "" {
		purchase.PaymentID = cmd.PaymentID
	}
	purchase.PaymentState = cmd.PaymentState
	purchase.GatewaySignature = cmd.Signature
	if cmd.PaymentState == domain.PaymentStateCaptured {
		purchase.OrderState = domain.OrderStatePaid
	}

	var event *repository.OutboxEvent
	if changesStatus && target != expected {
		if err := domain.ValidateTransition(expected, target); err != nil {
			return nil, err
		}

		event, err = s.prepareTransition(purchase, target)
		if err != nil {
			return nil, err
		}
	}

	ok, err := s.purchaseRepo.UpdateIfStatus(ctx, purchase, expected, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConcurrentModification,
			"purchase %s status moved during callback", purchase.ID)
	}

	s.logger.Info("gateway callback applied",
		zap.String("purchaseId", purchase.ID),
		zap.String("paymentState", string(cmd.PaymentState)),
		zap.String("status", string(purchase.Status)))

	return purchase, nil
}

// prepareTransition 목표 상태에 따른 필드 세팅과 이벤트 생성
// COMPLETED 진입 시 인보이스 번호와 purchasedAt을 같은 조건부 쓰기에 포함
func (s *purchaseService) prepareTransition(purchase *domain.Purchase, target domain.PurchaseStatus) (*repository.OutboxEvent, error) {
	switch target {
	case domain.PurchaseStatusCompleted:
		now := time.Now().UTC()
		invoiceNumber, err := domain.GenerateInvoiceNumber(purchase, now)
		if err != nil {
			return nil, err
		}

		purchase.Status = target
		purchase.InvoiceNumber = invoiceNumber
		purchase.PurchasedAt = &now

		return s.outboxEvent(purchase.ID, events.EventPurchaseCompleted, events.PurchaseCompletedEvent{
			BaseEvent:       s.baseEvent(events.EventPurchaseCompleted, purchase.ID),
			PurchaseID:      purchase.ID,
			OwnerID:         purchase.OwnerID,
			CourseID:        purchase.CourseID,
			PaymentID:       purchase.PaymentID,
			TotalAmountPaid: purchase.AmountBreakdown.TotalAmountPaid,
			InvoiceNumber:   invoiceNumber,
			PurchasedAt:     now,
		})

	case domain.PurchaseStatusFailed:
		purchase.Status = target

		return s.outboxEvent(purchase.ID, events.EventPurchaseFailed, events.PurchaseFailedEvent{
			BaseEvent:  s.baseEvent(events.EventPurchaseFailed, purchase.ID),
			PurchaseID: purchase.ID,
			PaymentID:  purchase.PaymentID,
			Reason:     "payment failed at gateway",
		})

	case domain.PurchaseStatusRefund:
		purchase.Status = target

		return s.outboxEvent(purchase.ID, events.EventPurchaseRefundRequested, events.PurchaseRefundRequestedEvent{
			BaseEvent:   s.baseEvent(events.EventPurchaseRefundRequested, purchase.ID),
			PurchaseID:  purchase.ID,
			RequestedBy: "gateway",
		})

	case domain.PurchaseStatusRefunded:
		purchase.Status = target
		purchase.PaymentState = domain.PaymentStateRefunded

		return s.outboxEvent(purchase.ID, events.EventPurchaseRefunded, events.PurchaseRefundedEvent{
			BaseEvent:       s.baseEvent(events.EventPurchaseRefunded, purchase.ID),
			PurchaseID:      purchase.ID,
			PaymentID:       purchase.PaymentID,
			TotalAmountPaid: purchase.AmountBreakdown.TotalAmountPaid,
		})

	default:
		purchase.Status = target
		return nil, nil
	}
}

// RequestRefund 환불 요청 (COMPLETED에서만 유효)
func (s *purchaseService) RequestRefund(ctx context.Context, purchaseID, requestedBy string) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	// 중복 환불 요청은 no-op이 아니라 거부 대상
	if purchase.Status != domain.PurchaseStatusCompleted {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"transition not allowed: %s -> %s", purchase.Status, domain.PurchaseStatusRefund)
	}

	expected := purchase.Status
	purchase.Status = domain.PurchaseStatusRefund

	event, err := s.outboxEvent(purchase.ID, events.EventPurchaseRefundRequested, events.PurchaseRefundRequestedEvent{
		BaseEvent:   s.baseEvent(events.EventPurchaseRefundRequested, purchase.ID),
		PurchaseID:  purchase.ID,
		RequestedBy: requestedBy,
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.purchaseRepo.UpdateIfStatus(ctx, purchase, expected, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConcurrentModification,
			"purchase %s status moved during refund request", purchase.ID)
	}

	s.logger.Info("refund requested",
		zap.String("purchaseId", purchase.ID),
		zap.String("requestedBy", requestedBy))

	return purchase, nil
}

// FinalizeRefund 환불 확정 (REFUND -> REFUNDED, 멱등)
func (s *purchaseService) FinalizeRefund(ctx context.Context, purchaseID string) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	// 이미 확정된 환불은 그대로 반환 (from == to)
	if purchase.Status == domain.PurchaseStatusRefunded {
		return purchase, nil
	}

	if err := domain.ValidateTransition(purchase.Status, domain.PurchaseStatusRefunded); err != nil {
		return nil, err
	}

	expected := purchase.Status
	purchase.Status = domain.PurchaseStatusRefunded
	purchase.PaymentState = domain.PaymentStateRefunded

	event, err := s.outboxEvent(purchase.ID, events.EventPurchaseRefunded, events.PurchaseRefundedEvent{
		BaseEvent:       s.baseEvent(events.EventPurchaseRefunded, purchase.ID),
		PurchaseID:      purchase.ID,
		PaymentID:       purchase.PaymentID,
		TotalAmountPaid: purchase.AmountBreakdown.TotalAmountPaid,
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.purchaseRepo.UpdateIfStatus(ctx, purchase, expected, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConcurrentModification,
			"purchase %s status moved during refund finalization", purchase.ID)
	}

	s.logger.Info("refund finalized", zap.String("purchaseId", purchase.ID))

	return purchase, nil
}

func (s *purchaseService) baseEvent(eventType events.EventType, correlationID string) events.BaseEvent {
	return events.BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: 1,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

func (s *purchaseService) outboxEvent(purchaseID string, eventType events.EventType, event interface{}) (*repository.OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &repository.OutboxEvent{
		AggregateType: "purchase",
		AggregateID:   purchaseID,
		EventType:     string(eventType),
		Payload:       payload,
		Status:        "PENDING",
		CreatedAt:     time.Now().UTC(),
	}, nil
}
