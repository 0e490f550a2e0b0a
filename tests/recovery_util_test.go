package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

const registeredPassword = "Secret123!"

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// registerUser creates a fresh account and returns its email address.
func registerUser(t *testing.T, prefix string) string {
	t.Helper()

	email := uniqueEmail(prefix)
	payload := map[string]string{
		"email":     email,
		"password":  registeredPassword,
		"full_name": "Test User",
	}

	status, _, body := doJSON(t, http.MethodPost, "/api/v1/recovery/register", payload)
	if status != http.StatusCreated {
		errEnv := decodeError(t, body)
		t.Fatalf("register failed: status=%d message=%q", status, errEnv.Message)
	}

	return email
}
