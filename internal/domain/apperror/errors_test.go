package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Run("コードが一致すればerrors.Isが真", func(t *testing.T) {
		err := NotFound("event E1 not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("fmt.Errorfで包んでも分類できる", func(t *testing.T) {
		err := fmt.Errorf("参加処理失敗: %w", Wrap(CodeCapacityRaceLost, "lock timeout", errors.New("deadline")))
		assert.True(t, errors.Is(err, ErrCapacityRaceLost))
		assert.True(t, IsRetryable(err))
		assert.Equal(t, CodeCapacityRaceLost, CodeOf(err))
	})

	t.Run("原因エラーまでたどれる", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(CodePermissionDenied, "geocoder denied", cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "geocoder denied: connection refused", err.Error())
	})

	t.Run("ドメインエラー以外はUNKNOWN", func(t *testing.T) {
		assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
		assert.False(t, IsRetryable(errors.New("boom")))
	})
}
