package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/purchase-service/common/errors"
)

func TestGenerateInvoiceNumber(t *testing.T) {
	completedAt := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	purchase := &Purchase{ID: "p-123", Status: PurchaseStatusPending}

	invoice, err := GenerateInvoiceNumber(purchase, completedAt)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-p-123", invoice)
}

func TestGenerateInvoiceNumber_Deterministic(t *testing.T) {
	// 같은 구매와 완료 시각에 대해 재생성해도 같은 번호 (재시도 안전)
	completedAt := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	purchase := &Purchase{ID: "p-123", Status: PurchaseStatusPending}

	first, err := GenerateInvoiceNumber(purchase, completedAt)
	require.NoError(t, err)
	second, err := GenerateInvoiceNumber(purchase, completedAt.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateInvoiceNumber_Denied(t *testing.T) {
	completedAt := time.Now().UTC()

	for _, status := range []PurchaseStatus{
		PurchaseStatusStarted, PurchaseStatusFailed, PurchaseStatusRefund, PurchaseStatusRefunded,
	} {
		t.Run(string(status), func(t *testing.T) {
			purchase := &Purchase{ID: "p-123", Status: status}
			_, err := GenerateInvoiceNumber(purchase, completedAt)
			assert.Equal(t, errors.ErrCodeInvoiceGenerationDenied, errors.Code(err))
		})
	}
}

func TestGenerateInvoiceNumber_UniquePerPurchase(t *testing.T) {
	completedAt := time.Now().UTC()
	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		purchase := &Purchase{ID: fmt.Sprintf("p-%d", i), Status: PurchaseStatusPending}
		invoice, err := GenerateInvoiceNumber(purchase, completedAt)
		require.NoError(t, err)
		assert.False(t, seen[invoice], "invoice %s generated twice", invoice)
		seen[invoice] = true
	}
}
