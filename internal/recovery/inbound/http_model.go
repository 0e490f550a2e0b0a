package inbound

import "net/http"

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct{}

func (RequestCodeResponse) Message() string {
	return "A verification code has been sent to your email."
}

type VerifyCodeRequest struct {
	Email        string `json:"email"`
	Code         string `json:"code"`
	CaptchaToken string `json:"captcha_token"`
}

type VerifyCodeResponse struct {
	ResetTicket string `json:"reset_ticket"`
}

func (VerifyCodeResponse) Message() string {
	return "Code verified. You can now reset your password."
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
	ResetTicket string `json:"reset_ticket"`
}

type ResetPasswordResponse struct{}

func (ResetPasswordResponse) Message() string {
	return "Your password has been reset successfully."
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type RegisterResponse struct{}

func (RegisterResponse) Message() string {
	return "Account created successfully."
}

func (RegisterResponse) StatusCode() int {
	return http.StatusCreated
}
