package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		form Login
		want Errors
	}{
		{"valid", Login{Email: "test@test.com", Password: "password"}, nil},
		{"empty", Login{}, Errors{"email": "Email is required", "password": "Password is required"}},
		{"bad email", Login{Email: "test", Password: "x"}, Errors{"email": "Invalid email address"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldErrors(Validate(tt.form)))
		})
	}
}

func TestForgotPassword(t *testing.T) {
	assert.NoError(t, Validate(ForgotPassword{Email: "a@b.co"}))
	assert.Equal(t, Errors{"email": "Invalid email address"}, FieldErrors(Validate(ForgotPassword{Email: "nope"})))
}

func TestPasswordReset(t *testing.T) {
	tests := []struct {
		password string
		repeat   string
		want     Errors
	}{
		{"Secret1!", "Secret1!", nil},
		{"", "", Errors{"newPassword": "Required", "repeatPassword": "Required"}},
		{"Sh0rt!", "Sh0rt!", Errors{"newPassword": "Password must be at least 8 characters"}},
		{"secret12!", "secret12!", Errors{"newPassword": "Password must contain at least one uppercase letter"}},
		{"SECRET12!", "SECRET12!", Errors{"newPassword": "Password must contain at least one lowercase letter"}},
		{"Secretxx!", "Secretxx!", Errors{"newPassword": "Password must contain at least one number"}},
		{"Secret123", "Secret123", Errors{"newPassword": "Password must contain at least one special character"}},
		{"Secret1!", "Secret2!", Errors{"repeatPassword": "Passwords must match"}},
	}
	for _, tt := range tests {
		t.Run(tt.password+"/"+tt.repeat, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldErrors(Validate(PasswordReset{Password: tt.password, RepeatPassword: tt.repeat})))
		})
	}
}

func TestErrorsMessage(t *testing.T) {
	err := Validate(Login{})
	require.Error(t, err)
	assert.Equal(t, "email: Email is required; password: Password is required", err.Error())
	assert.Nil(t, FieldErrors(errors.New("other")))
}
