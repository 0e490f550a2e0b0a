package tests

import (
	"net/http"
	"testing"
)

func TestPasswordVerifyWrongCode(t *testing.T) {
	// Arrange
	email := registerUser(t, "real-pwd-verify")
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/password/request", map[string]string{"email": email})
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("password request failed: status=%d message=%q", status, errEnv.Message)
	}
	payload := map[string]string{
		"email":         email,
		"code":          "000000",
		"captcha_token": "test-token",
	}

	// Act
	status, _, body = doJSON(t, http.MethodPost, "/api/v1/recovery/password/verify-otp", payload)

	// Assert
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got status=%d body=%s", status, body)
	}
}

func TestPasswordVerifyLockout(t *testing.T) {
	// Arrange
	email := registerUser(t, "real-pwd-lockout")
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/password/request", map[string]string{"email": email})
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("password request failed: status=%d message=%q", status, errEnv.Message)
	}
	payload := map[string]string{
		"email":         email,
		"code":          "000000",
		"captcha_token": "test-token",
	}
	for i := range 2 {
		status, _, body = doJSON(t, http.MethodPost, "/api/v1/recovery/password/verify-otp", payload)
		if status != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected bad request, got status=%d body=%s", i+1, status, body)
		}
	}

	// Act: the final attempt exhausts the budget.
	status, header, body := doJSON(t, http.MethodPost, "/api/v1/recovery/password/verify-otp", payload)

	// Assert
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected too many requests, got status=%d body=%s", status, body)
	}
	if header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on lockout response")
	}

	// The lock also refuses new code requests for the address.
	status, _, body = doJSON(t, http.MethodPost, "/api/v1/recovery/password/request", map[string]string{"email": email})
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected locked password request, got status=%d body=%s", status, body)
	}
}

func TestPasswordVerifyUnknownEmail(t *testing.T) {
	// Arrange
	payload := map[string]string{
		"email":         uniqueEmail("real-pwd-verify-ghost"),
		"code":          "123456",
		"captcha_token": "test-token",
	}

	// Act
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/password/verify-otp", payload)

	// Assert: unknown addresses fail like a wrong code, not like a lookup.
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got status=%d body=%s", status, body)
	}
}
