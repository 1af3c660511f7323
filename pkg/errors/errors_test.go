package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := HTTPStatus(503, "https://mitene.us/f/abc?page=2")
	assert.Equal(t, "http error (code 503): unexpected status for https://mitene.us/f/abc?page=2", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := Wrap(ErrorTypeNetwork, cause, "GET %s", "/login")
	assert.Equal(t, "network error: GET /login: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsType(t *testing.T) {
	base := New(ErrorTypeProtocolMismatch, "authenticity token not found")
	chained := fmt.Errorf("login: %w", base)

	assert.True(t, IsType(chained, ErrorTypeProtocolMismatch))
	assert.False(t, IsType(chained, ErrorTypeSessionExpired))
	assert.False(t, IsType(nil, ErrorTypeProtocolMismatch))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeNetwork))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", New(ErrorTypeNetwork, "reset"), true},
		{"server error", HTTPStatus(502, "u"), true},
		{"too many requests", HTTPStatus(429, "u"), true},
		{"forbidden", HTTPStatus(403, "u"), false},
		{"not found", HTTPStatus(404, "u"), false},
		{"session expired", New(ErrorTypeSessionExpired, "redirected"), false},
		{"malformed", New(ErrorTypeMalformedPayload, "bad json"), false},
		{"untyped", stderrors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
