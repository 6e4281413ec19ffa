package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spanishBody = "Regar las plantas de interior con moderación evita que las raíces se pudran y mantiene las hojas sanas."

func TestCheck_Disabled(t *testing.T) {
	assert.NoError(t, New().Check("anything at all", ""))
}

func TestCheck_Empty(t *testing.T) {
	v := New()
	assert.ErrorIs(t, v.Check("", "es"), ErrEmptyText)
	assert.ErrorIs(t, v.Check("   ", "es"), ErrEmptyText)
}

func TestCheck_ShortTextPasses(t *testing.T) {
	assert.NoError(t, New().Check("Hello there", "es"))
}

func TestCheck_Matches(t *testing.T) {
	v := New()
	assert.NoError(t, v.Check(spanishBody, "es"))
	assert.NoError(t, v.Check(spanishBody, "ES"))
}

func TestCheck_Mismatch(t *testing.T) {
	v := New()
	english := "Watering indoor plants sparingly keeps the roots from rotting and the leaves healthy."

	err := v.Check(english, "es")

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "es", mismatch.Expected)
	assert.Equal(t, "en", mismatch.Detected)
}
