package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Phone   string `json:"phone" validate:"required,e164"`
	Code    string `json:"code" validate:"required,otpcode"`
	Purpose string `json:"purpose" validate:"omitempty,purpose"`
}

func TestV10ValidatorCustomRules(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	require.NoError(t, v.Validate(sample{Phone: "+910000000001", Code: "123456", Purpose: "login"}))

	err = v.Validate(sample{Phone: "0812345", Code: "12ab", Purpose: "Login!"})
	require.Error(t, err)

	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone must be a phone number in international format", verr["phone"])
	assert.Equal(t, "code must be 4-10 digits", verr["code"])
	assert.Contains(t, verr, "purpose")
}

func TestV10ValidatorVar(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	assert.NoError(t, v.Var("contact", "jane@example.com", "email"))

	err = v.Var("contact", "not-an-email", "email")
	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr["contact"], "contact")
}
