package model

import "context"

// AuthAPI covers the session endpoints.
type AuthAPI interface {
	CheckLoginStatus(ctx context.Context) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Logout(ctx context.Context) error
}

// AccountAPI covers password recovery.
type AccountAPI interface {
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// ContentAPI covers the protected read endpoints used by the views.
type ContentAPI interface {
	Exercises(ctx context.Context) (ExercisesResponse, error)
	Stats(ctx context.Context) (StatsResponse, error)
	Words(ctx context.Context, page int) (WordsPage, error)
}

// API is the full remote contract consumed by the client.
type API interface {
	AuthAPI
	AccountAPI
	ContentAPI
}
