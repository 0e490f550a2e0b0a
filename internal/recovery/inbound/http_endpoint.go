package inbound

import (
	"net"

	"github.com/regainhq/regain/internal/pkg/router"
	"github.com/regainhq/regain/internal/recovery/usecase"
)

// HTTPEndpoint exposes HTTP handlers for the password recovery workflows.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode starts a password recovery by emailing a verification code.
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{
		Email: req.Email,
	}); err != nil {
		return nil, err
	}

	return RequestCodeResponse{}, nil
}

// VerifyCode checks the emailed code and returns the reset ticket.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Email:        req.Email,
		Code:         req.Code,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     clientIP(r),
	})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{ResetTicket: resp.ResetTicket}, nil
}

// ResetPassword sets a new password using the reset ticket from VerifyCode.
func (h *HTTPEndpoint) ResetPassword(r *router.Request) (any, error) {
	var req ResetPasswordRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ResetPassword(r.Context(), usecase.ResetPasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
		ResetTicket: req.ResetTicket,
	}); err != nil {
		return nil, err
	}

	return ResetPasswordResponse{}, nil
}

// Register creates a new account.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}); err != nil {
		return nil, err
	}

	return RegisterResponse{}, nil
}

func clientIP(r *router.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return addr
}
