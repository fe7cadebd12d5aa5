package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

func TestValidator_ReportsJSONNames(t *testing.T) {
	v := New()
	err := v.Validate(sample{Email: "nope"})
	require.Error(t, err)

	f := Fields(err)
	require.Equal(t, "required", f["fullName"])
	require.Equal(t, "email", f["email"])

	require.NoError(t, v.Validate(sample{FullName: "Ada", Email: "ada@example.com"}))
	require.Empty(t, Fields(nil))
}
