package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/coursehub/purchase-service/common/errors"
	"github.com/coursehub/purchase-service/services/purchase/internal/domain"
)

// PurchaseRepository 구매 레포지토리 인터페이스
type PurchaseRepository interface {
	// Create 구매 레코드 생성, 이벤트가 있으면 같은 트랜잭션으로 Outbox에 삽입
	Create(ctx context.Context, purchase *domain.Purchase, event *OutboxEvent) error
	FindByID(ctx context.Context, id string) (*domain.Purchase, error)
	// FindByGatewayRefs 게이트웨이 참조(orderId 또는 paymentId)로 구매 조회
	FindByGatewayRefs(ctx context.Context, orderID, paymentID string) (*domain.Purchase, error)
	// UpdateIfStatus purchase_status가 expected일 때만 갱신하는 조건부 쓰기
	// 상태가 이미 이동했으면 false 반환, 이벤트는 갱신과 같은 트랜잭션으로 커밋
	UpdateIfStatus(ctx context.Context, purchase *domain.Purchase, expected domain.PurchaseStatus, event *OutboxEvent) (bool, error)
}

type purchaseRepository struct {
	db     *sql.DB
	outbox OutboxRepository
}

// NewPurchaseRepository 구매 레포지토리 생성
func NewPurchaseRepository(db *sql.DB, outbox OutboxRepository) PurchaseRepository {
	return &purchaseRepository{db: db, outbox: outbox}
}

const purchaseColumns = `
	id, owner_id, course_id,
	currency, mrp, net_discount, coupon_id, coupon_status, total_amount_paid,
	payment_method, order_id, order_state, payment_id, payment_state,
	purchase_status, gateway_signature, invoice_number, purchased_at,
	created_at, updated_at
`

// Create 구매 생성
func (r *purchaseRepository) Create(ctx context.Context, purchase *domain.Purchase, event *OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO purchases (
			id, owner_id, course_id,
			currency, mrp, net_discount, coupon_id, coupon_status, total_amount_paid,
			payment_method, order_id, order_state, payment_id, payment_state,
			purchase_status, gateway_signature, invoice_number, purchased_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		purchase.ID,
		purchase.OwnerID,
		purchase.CourseID,
		purchase.AmountBreakdown.Currency,
		purchase.AmountBreakdown.MRP,
		purchase.AmountBreakdown.NetDiscount,
		nullString(purchase.AmountBreakdown.CouponID),
		nullString(purchase.AmountBreakdown.CouponStatus),
		purchase.AmountBreakdown.TotalAmountPaid,
		string(purchase.PaymentMethod),
		nullString(purchase.OrderID),
		nullString(string(purchase.OrderState)),
		nullString(purchase.PaymentID),
		nullString(string(purchase.PaymentState)),
		string(purchase.Status),
		nullString(purchase.GatewaySignature),
		nullString(purchase.InvoiceNumber),
		purchase.PurchasedAt,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Unique constraint violation (order_id 또는 invoice_number)
			return errors.Wrap(errors.ErrCodeDuplicateOrder, "purchase already exists for gateway order", err)
		}
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create purchase", err)
	}

	if event != nil {
		if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
			return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to insert outbox event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to commit transaction", err)
	}

	return nil
}

// FindByID ID로 구매 조회
func (r *purchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByGatewayRefs 게이트웨이 참조로 구매 조회
func (r *purchaseRepository) FindByGatewayRefs(ctx context.Context, orderID, paymentID string) (*domain.Purchase, error) {
	if orderID == "" && paymentID == "" {
		return nil, errors.New(errors.ErrCodePurchaseNotFound, "no gateway reference provided")
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE ($1 != '' AND order_id = $1) OR ($2 != '' AND payment_id = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, orderID, paymentID))
}

// UpdateIfStatus Optimistic Lock을 사용한 조건부 갱신
func (r *purchaseRepository) UpdateIfStatus(ctx context.Context, purchase *domain.Purchase, expected domain.PurchaseStatus, event *OutboxEvent) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE purchases
		SET currency = $1, mrp = $2, net_discount = $3, coupon_id = $4, coupon_status = $5,
			total_amount_paid = $6, order_id = $7, order_state = $8, payment_id = $9,
			payment_state = $10, purchase_status = $11, gateway_signature = $12,
			invoice_number = $13, purchased_at = $14, updated_at = NOW()
		WHERE id = $15 AND purchase_status = $16
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		purchase.AmountBreakdown.Currency,
		purchase.AmountBreakdown.MRP,
		purchase.AmountBreakdown.NetDiscount,
		nullString(purchase.AmountBreakdown.CouponID),
		nullString(purchase.AmountBreakdown.CouponStatus),
		purchase.AmountBreakdown.TotalAmountPaid,
		nullString(purchase.OrderID),
		nullString(string(purchase.OrderState)),
		nullString(purchase.PaymentID),
		nullString(string(purchase.PaymentState)),
		string(purchase.Status),
		nullString(purchase.GatewaySignature),
		nullString(purchase.InvoiceNumber),
		purchase.PurchasedAt,
		purchase.ID,
		string(expected),
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, errors.Wrap(errors.ErrCodeDuplicateOrder, "gateway order already bound to another purchase", err)
		}
		return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to update purchase", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	if event != nil {
		if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
			return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to insert outbox event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to commit transaction", err)
	}

	return true, nil
}

func (r *purchaseRepository) scanOne(row *sql.Row) (*domain.Purchase, error) {
	purchase := &domain.Purchase{}
	var couponID, couponStatus, orderID, orderState, paymentID, paymentState sql.NullString
	var gatewaySignature, invoiceNumber sql.NullString
	var purchasedAt sql.NullTime

	err := row.Scan(
		&purchase.ID,
		&purchase.OwnerID,
		&purchase.CourseID,
		&purchase.AmountBreakdown.Currency,
		&purchase.AmountBreakdown.MRP,
		&purchase.AmountBreakdown.NetDiscount,
		&couponID,
		&couponStatus,
		&purchase.AmountBreakdown.TotalAmountPaid,
		&purchase.PaymentMethod,
		&orderID,
		&orderState,
		&paymentID,
		&paymentState,
		&purchase.Status,
		&gatewaySignature,
		&invoiceNumber,
		&purchasedAt,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodePurchaseNotFound, "purchase not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to find purchase", err)
	}

	purchase.AmountBreakdown.CouponID = couponID.String
	purchase.AmountBreakdown.CouponStatus = couponStatus.String
	purchase.OrderID = orderID.String
	purchase.OrderState = domain.OrderState(orderState.String)
	purchase.PaymentID = paymentID.String
	purchase.PaymentState = domain.PaymentState(paymentState.String)
	purchase.GatewaySignature = gatewaySignature.String
	purchase.InvoiceNumber = invoiceNumber.String
	if purchasedAt.Valid {
		t := purchasedAt.Time
		purchase.PurchasedAt = &t
	}

	return purchase, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
