package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitloopAPI/internal/apperr"
)

func TestStatusForSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("challenge: %w", apperr.ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: title is required", apperr.ErrInvalidInput), http.StatusBadRequest},
		{"unauthorized", fmt.Errorf("only the owner can delete: %w", apperr.ErrUnauthorized), http.StatusForbidden},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err, http.StatusInternalServerError))
		})
	}
}

func TestStatusForDeeplyWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", fmt.Errorf("service: %w", apperr.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, statusFor(err, http.StatusInternalServerError))
}
