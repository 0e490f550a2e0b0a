package tests

import (
	"net/http"
	"testing"
)

func TestRegister(t *testing.T) {
	// Arrange
	payload := map[string]string{
		"email":     uniqueEmail("real-register"),
		"password":  registeredPassword,
		"full_name": "Test User",
	}

	// Act
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/register", payload)

	// Assert
	if status != http.StatusCreated {
		errEnv := decodeError(t, body)
		t.Fatalf("register failed: status=%d message=%q", status, errEnv.Message)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	// Arrange
	email := registerUser(t, "real-register-dup")
	payload := map[string]string{
		"email":     email,
		"password":  registeredPassword,
		"full_name": "Test User",
	}

	// Act
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/register", payload)

	// Assert
	if status != http.StatusConflict {
		t.Fatalf("expected conflict, got status=%d body=%s", status, body)
	}
}

func TestRegisterInvalidPayload(t *testing.T) {
	// Arrange
	payload := map[string]string{
		"email":     "not-an-email",
		"password":  "x",
		"full_name": "",
	}

	// Act
	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/register", payload)

	// Assert
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got status=%d body=%s", status, body)
	}
	errEnv := decodeError(t, body)
	if len(errEnv.Error) == 0 {
		t.Fatal("expected field errors in response")
	}
}
