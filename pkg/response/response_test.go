package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_OmitsError(t *testing.T) {
	b, err := json.Marshal(Success(map[string]string{"tx": "abc"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"tx":"abc"}}`, string(b))
}

func TestList_CarriesTotal(t *testing.T) {
	b, err := json.Marshal(List([]int{1, 2}, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[1,2],"meta":{"total":2}}`, string(b))
}

func TestError_Helpers(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		code string
	}{
		{"bad request", BadRequest("x"), ErrCodeBadRequest},
		{"unauthorized", Unauthorized("x"), ErrCodeUnauthorized},
		{"not found", NotFound("x"), ErrCodeNotFound},
		{"internal", InternalError("x"), ErrCodeInternal},
		{"unavailable", ServiceUnavailable("x"), ErrCodeUnavailable},
		{"custom", Error(ErrCodeSoldOut, "x"), ErrCodeSoldOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.resp.Success)
			require.NotNil(t, tt.resp.Error)
			assert.Equal(t, tt.code, tt.resp.Error.Code)
			assert.Equal(t, "x", tt.resp.Error.Message)
		})
	}
}

func TestErrorWithDetails(t *testing.T) {
	r := ErrorWithDetails(ErrCodePaymentFailed, "payment failed", "card declined")
	assert.Equal(t, "card declined", r.Error.Details)
}
