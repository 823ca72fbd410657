package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
	Role            string `form:"role" validate:"omitempty,oneof=admin user"`
}

func TestStructValid(t *testing.T) {
	err := Struct(signup{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1", Role: "user"})
	assert.NoError(t, err)
}

func TestStructFieldMessages(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "abc", ConfirmPassword: "abd", Role: "root"})
	require.Error(t, err)

	fields := FieldErrors(err)
	require.NotNil(t, fields)
	assert.Equal(t, "Please enter a valid email address", fields["email"])
	assert.Equal(t, "Password must be at least 6 characters", fields["password"])
	assert.Equal(t, "Passwords do not match", fields["confirmPassword"])
	assert.Equal(t, "Role must be one of: admin user", fields["role"])
}

func TestErrorsMessageIsDeterministic(t *testing.T) {
	err := Struct(signup{Email: "", Password: "secret1", ConfirmPassword: "other12"})
	require.Error(t, err)
	// "confirmPassword" sorts before "email".
	assert.Equal(t, "Passwords do not match", err.Error())
}

func TestFieldErrorsOnOtherError(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
}
