package forward

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToOutward(t *testing.T) {
	sentinels := Sentinels{
		Unavailable: []byte("service unavailable"),
		Error:       []byte("internal error"),
	}
	cause := errors.New("dial tcp 10.0.0.1:9093: connect: connection refused")

	tests := []struct {
		name       string
		result     Result
		wantStatus int
		wantBody   string
	}{
		{"success", Success([]byte(`{"a":1}`)), http.StatusOK, `{"a":1}`},
		{"unavailable", Unavailable(cause), http.StatusServiceUnavailable, "service unavailable"},
		{"downstream error", DownstreamError(500, cause), http.StatusServiceUnavailable, "internal error"},
		{"logical failure", LogicalFailure("X", "bad", []byte(`[{"message":"bad"}]`)), http.StatusBadRequest, `[{"message":"bad"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ToOutward(tt.result, sentinels)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, string(body))
			assert.NotContains(t, string(body), "connection refused")
		})
	}
}

func TestToOutward_ErrorFallsBackToUnavailable(t *testing.T) {
	status, body := ToOutward(DownstreamError(502, nil), Sentinels{Unavailable: []byte("down")})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "down", string(body))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, "downstream_error", KindDownstreamError.String())
	assert.Equal(t, "logical_failure", KindLogicalFailure.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
