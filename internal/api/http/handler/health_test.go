package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/coursemarket-auth/internal/mocks"
)

func TestHealth_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "healthy", wantStatus: http.StatusOK},
		{name: "db down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pinger := mocks.NewPinger(t)
			pinger.On("Ping", mock.Anything).Return(tt.pingErr).Once()

			rec := httptest.NewRecorder()
			NewHealth(pinger, time.Second).Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
