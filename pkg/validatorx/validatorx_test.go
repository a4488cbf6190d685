package validatorx_test

import (
	"errors"
	"testing"

	"github.com/srcvote/evote/pkg/validatorx"
	"github.com/stretchr/testify/require"
)

type verifyRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Code       string `json:"code" validate:"required,otp_code"`
	Method     string `json:"method" validate:"omitempty,oneof=email authenticator"`
}

func TestStruct(t *testing.T) {
	v, err := validatorx.New()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.Struct(verifyRequest{Identifier: "STU001", Code: "012345", Method: "email"}))
	})

	t.Run("field errors keyed by json name", func(t *testing.T) {
		err := v.Struct(verifyRequest{Code: "12ab56", Method: "sms"})

		var ve validatorx.ValidationError
		require.True(t, errors.As(err, &ve))
		require.Contains(t, ve, "identifier")
		require.Equal(t, "code must be a 6-digit code", ve["code"])
		require.Contains(t, ve, "method")
	})
}

func TestValidationErrorMessage(t *testing.T) {
	require.Equal(t, "validation error", validatorx.ValidationError{}.Error())
	require.JSONEq(t, `{"code":"bad"}`, validatorx.ValidationError{"code": "bad"}.Error())
}
