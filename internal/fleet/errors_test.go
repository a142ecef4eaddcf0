package fleet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	assert.Equal(t, "VALIDATION: name is required", NewValidationError("name is required").Error())
	assert.Equal(t, "NOT_FOUND: device not found (id=d-1)", NewNotFoundError("device", "d-1").Error())
	assert.Equal(t,
		"INVALID_TRANSITION: cannot change status from online to pending_activation (id=d-1)",
		NewInvalidTransitionError("d-1", StatusOnline, StatusPendingActivation).Error())
}

func TestCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("redeem: %w", NewExpiredError("a-1"))

	assert.Equal(t, ErrCodeExpired, CodeOf(err))
	assert.True(t, IsExpired(err))
	assert.False(t, IsAlreadyUsed(err))
}

func TestCodeOf_Foreign(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("disk full")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.False(t, IsNotFound(nil))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
	}{
		{NewValidationError("x"), IsValidation},
		{NewNotFoundError("device", "x"), IsNotFound},
		{NewExpiredError("x"), IsExpired},
		{NewAlreadyUsedError("x"), IsAlreadyUsed},
		{NewInvalidTransitionError("x", StatusOnline, StatusPendingActivation), IsInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(CodeOf(tt.err)), func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
		})
	}
}
