package apierror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(New(KindValidation, "bad input")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	inner := New(KindNotSubscribed, "no subscription found, must subscribe first")
	wrapped := fmt.Errorf("handler: %w", inner)

	assert.Equal(t, KindNotSubscribed, KindOf(wrapped))
	assert.Equal(t, "no subscription found, must subscribe first", Message(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(KindDependency, "store unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageHidesUntaggedErrors(t *testing.T) {
	assert.Equal(t, "", Message(errors.New("sql: table missing")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_subscribed", KindNotSubscribed.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
