package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Unauthorized("token rejected by https://wiki.example.com")

	assert.True(t, Is(err, ErrUnauthorized))
	assert.False(t, Is(err, ErrTransport))

	wrapped := fmt.Errorf("verify source: %w", err)
	assert.True(t, Is(wrapped, ErrUnauthorized))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := New("connection refused")
	err := Transport("GET /api/books", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "GET /api/books: connection refused", err.Error())
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("outer: %w", Serverf("status %d", 502)))
	assert.True(t, ok)
	assert.Equal(t, CodeServer, code)

	_, ok = CodeOf(New("plain"))
	assert.False(t, ok)
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeUnsupportedContent, http.StatusUnprocessableEntity},
		{CodeTransport, http.StatusBadGateway},
		{CodeServer, http.StatusBadGateway},
		{CodeDownload, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestCode_Retryable(t *testing.T) {
	assert.True(t, CodeTransport.Retryable())
	for _, c := range []Code{CodeUnauthorized, CodeNotFound, CodeValidation, CodeServer} {
		assert.False(t, c.Retryable(), c)
	}
}
