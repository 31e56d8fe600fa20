package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursehub/purchase-service/common/errors"
	"github.com/coursehub/purchase-service/common/idempotency"
	"github.com/coursehub/purchase-service/services/purchase/internal/domain"
	"github.com/coursehub/purchase-service/services/purchase/internal/service"
)

// 게이트웨이 콜백 서명 헤더
const gatewaySignatureHeader = "X-Gateway-Signature"

// 중복 콜백 차단용 이벤트 키 보존 기간
const callbackDedupTTL = 24 * time.Hour

// HTTPHandler HTTP 핸들러
type HTTPHandler struct {
	purchaseService service.PurchaseService
	idemStore       idempotency.Store
	logger          *zap.Logger
}

// NewHTTPHandler HTTP 핸들러 생성
func NewHTTPHandler(purchaseService service.PurchaseService, idemStore idempotency.Store, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		purchaseService: purchaseService,
		idemStore:       idemStore,
		logger:          logger,
	}
}

// InitiatePurchaseRequest 구매 시작 요청
type InitiatePurchaseRequest struct {
	OwnerID         string                 `json:"ownerId"`
	CourseID        string                 `json:"courseId"`
	AmountBreakdown domain.AmountBreakdown `json:"amountBreakdown"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// RecordGatewayOrderRequest 게이트웨이 주문 기록 요청
type RecordGatewayOrderRequest struct {
	OrderID    string `json:"orderId"`
	OrderState string `json:"orderState"`
}

// RequestRefundRequest 환불 요청
type RequestRefundRequest struct {
	RequestedBy string `json:"requestedBy"`
}

// GatewayCallbackRequest 게이트웨이 콜백 페이로드
type GatewayCallbackRequest struct {
	EventID      string `json:"eventId"`
	OrderID      string `json:"orderId"`
	PaymentID    string `json:"paymentId"`
	PaymentState string `json:"paymentState"`
}

// ErrorResponse 에러 응답
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Purchases 구매 컬렉션 API (POST /purchases)
func (h *HTTPHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req InitiatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	purchase, err := h.purchaseService.InitiatePurchase(r.Context(), service.InitiatePurchaseCommand{
		OwnerID:         req.OwnerID,
		CourseID:        req.CourseID,
		AmountBreakdown: req.AmountBreakdown,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, purchase)
}

// PurchaseByID 구매 단건 API 디스패치 (GET/POST /purchases/{id}[/...])
func (h *HTTPHandler) PurchaseByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/purchases/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		h.respondError(w, http.StatusBadRequest, "invalid purchase ID", "")
		return
	}
	purchaseID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getPurchase(w, r, purchaseID)
	case len(parts) == 2 && parts[1] == "order" && r.Method == http.MethodPost:
		h.recordGatewayOrder(w, r, purchaseID)
	case len(parts) == 2 && parts[1] == "refund" && r.Method == http.MethodPost:
		h.requestRefund(w, r, purchaseID)
	case len(parts) == 3 && parts[1] == "refund" && parts[2] == "finalize" && r.Method == http.MethodPost:
		h.finalizeRefund(w, r, purchaseID)
	default:
		h.respondError(w, http.StatusNotFound, "not found", "")
	}
}

func (h *HTTPHandler) getPurchase(w http.ResponseWriter, r *http.Request, purchaseID string) {
	purchase, err := h.purchaseService.GetPurchase(r.Context(), purchaseID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, purchase)
}

func (h *HTTPHandler) recordGatewayOrder(w http.ResponseWriter, r *http.Request, purchaseID string) {
	var req RecordGatewayOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	purchase, err := h.purchaseService.RecordGatewayOrder(r.Context(), purchaseID, req.OrderID, domain.OrderState(req.OrderState))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, purchase)
}

func (h *HTTPHandler) requestRefund(w http.ResponseWriter, r *http.Request, purchaseID string) {
	var req RequestRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	purchase, err := h.purchaseService.RequestRefund(r.Context(), purchaseID, req.RequestedBy)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, purchase)
}

func (h *HTTPHandler) finalizeRefund(w http.ResponseWriter, r *http.Request, purchaseID string) {
	purchase, err := h.purchaseService.FinalizeRefund(r.Context(), purchaseID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, purchase)
}

// GatewayCallback 게이트웨이 웹훅 API (POST /gateway/callback)
// 서명은 원문 바디 기준으로 검증하고, eventId로 중복 전송을 차단
func (h *HTTPHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body", "")
		return
	}

	var req GatewayCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid callback payload", "")
		return
	}

	// 멱등성 체크: 이미 처리한 게이트웨이 이벤트는 재적용하지 않음
	if req.EventID != "" {
		if processed, _ := h.idemStore.IsProcessed(r.Context(), req.EventID); processed {
			h.logger.Info("gateway event already processed", zap.String("eventId", req.EventID))
			h.respondJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	purchase, err := h.purchaseService.ApplyGatewayCallback(r.Context(), service.GatewayCallbackCommand{
		OrderID:      req.OrderID,
		PaymentID:    req.PaymentID,
		PaymentState: domain.PaymentState(req.PaymentState),
		Payload:      body,
		Signature:    r.Header.Get(gatewaySignatureHeader),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	if req.EventID != "" {
		// 처리 완료 표시
		_, _ = h.idemStore.Reserve(r.Context(), req.EventID, callbackDedupTTL)
	}

	h.respondJSON(w, http.StatusOK, purchase)
}

// HealthCheck 헬스 체크 API
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *HTTPHandler) respondDomainError(w http.ResponseWriter, err error) {
	code := errors.Code(err)

	var status int
	switch code {
	case errors.ErrCodeInvalidAmountBreakdown:
		status = http.StatusBadRequest
	case errors.ErrCodeInvalidTransition, errors.ErrCodeDuplicateOrder,
		errors.ErrCodeOrderAlreadySet, errors.ErrCodePaymentAlreadySet,
		errors.ErrCodeInvoiceGenerationDenied, errors.ErrCodeConcurrentModification,
		errors.ErrCodeTransitionConflict:
		status = http.StatusConflict
	case errors.ErrCodeSignatureMismatch:
		status = http.StatusUnauthorized
	case errors.ErrCodePurchaseNotFound, errors.ErrCodeCourseNotFound, errors.ErrCodeUserNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.String("code", string(code)), zap.Error(err))
	}

	h.respondJSON(w, status, ErrorResponse{
		Error: err.Error(),
		Code:  string(code),
	})
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string, code string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
