package inbound

import (
	"context"

	"github.com/regainhq/regain/internal/pkg/router"
	"github.com/regainhq/regain/internal/recovery/usecase"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) error
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
	ResetPassword(ctx context.Context, in usecase.ResetPasswordInput) error

	Register(ctx context.Context, in usecase.RegisterInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Password Recovery
	r.POST("/api/v1/recovery/password/request", end.RequestCode)
	r.POST("/api/v1/recovery/password/verify-otp", end.VerifyCode)
	r.POST("/api/v1/recovery/password/reset", end.ResetPassword)

	// Account
	r.POST("/api/v1/recovery/register", end.Register)
}
