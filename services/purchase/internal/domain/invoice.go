package domain

import (
	"fmt"
	"time"

	"github.com/coursehub/purchase-service/common/errors"
)

// GenerateInvoiceNumber 완료 시점 기준 인보이스 번호 생성
// 구매 ID와 완료 연도로만 유도되므로 같은 구매에 대해 멱등
func GenerateInvoiceNumber(p *Purchase, completedAt time.Time) (string, error) {
	// COMPLETED로 진입하는 쓰기 직전에만 호출 허용
	if p.Status != PurchaseStatusPending && p.Status != PurchaseStatusCompleted {
		return "", errors.Newf(errors.ErrCodeInvoiceGenerationDenied,
			"purchase %s is %s, not entering COMPLETED", p.ID, p.Status)
	}

	return fmt.Sprintf("INV-%d-%s", completedAt.UTC().Year(), p.ID), nil
}
