package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidConfiguration, "bad config")
	assert.Equal(t, "[100] bad config", err.Error())
	assert.Equal(t, ErrCodeInvalidConfiguration, GetCode(err))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeUnknownStrategy, "strategy %q is not registered", "foo")
	assert.Contains(t, err.Error(), `strategy "foo" is not registered`)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeStoreFailed, "failed to save trade", cause)

	assert.Contains(t, err.Error(), "failed to save trade")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestHasCode(t *testing.T) {
	err := Wrapf(ErrCodeInsufficientFunds, New(ErrCodeInvalidOrder, "inner"), "outer %s", "context")

	// The outermost code wins; wrapped codes stay reachable via Unwrap.
	assert.True(t, HasCode(err, ErrCodeInsufficientFunds))
	assert.False(t, HasCode(err, ErrCodeInvalidOrder))
	assert.Equal(t, ErrCodeInvalidOrder, GetCode(errors.Unwrap(err)))
	assert.False(t, HasCode(err, ErrCodeQueryFailed))
}

func TestGetCodeOnForeignError(t *testing.T) {
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeUnknown, GetCode(nil))
}
