package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursehub/purchase-service/common/errors"
)

func testConfig() Config {
	return Config{
		MaxAttempts:        3,
		InitialInterval:    time.Millisecond,
		MaxInterval:        5 * time.Millisecond,
		BackoffCoefficient: 2.0,
		MaxElapsedTime:     time.Second,
	}
}

func TestDoWithResult_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), testConfig(), zap.NewNop(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New(errors.ErrCodeConcurrentModification, "status moved")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, attempts)
}

func TestDoWithResult_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), testConfig(), zap.NewNop(), func() (string, error) {
		attempts++
		return "", errors.New(errors.ErrCodeConcurrentModification, "status moved")
	})

	assert.Equal(t, 3, attempts)
	// 마지막 에러가 체인에 남아 코드로 식별 가능해야 함
	assert.Equal(t, errors.ErrCodeConcurrentModification, errors.Code(err))
}

func TestDoWithResult_NonRetryableReturnsImmediately(t *testing.T) {
	config := testConfig()
	config.RetryIf = errors.IsRetryable

	attempts := 0
	_, err := DoWithResult(context.Background(), config, zap.NewNop(), func() (string, error) {
		attempts++
		return "", errors.New(errors.ErrCodeInvalidTransition, "transition not allowed")
	})

	assert.Equal(t, 1, attempts)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.Code(err))
}

func TestDoWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := DoWithResult(ctx, testConfig(), zap.NewNop(), func() (string, error) {
		attempts++
		return "", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}
