package handler

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	"github.com/fhayvy/CodeEntry/pkg/middleware"
	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorMapping struct {
	status  int
	code    string
	message string
}

var errorMappings = map[domain.ErrorKind]errorMapping{
	domain.KindInvalidInput:     {http.StatusBadRequest, response.ErrCodeInvalidInput, "Invalid input"},
	domain.KindInvalidRecipient: {http.StatusBadRequest, response.ErrCodeInvalidRecipient, "Invalid recipient address"},
	domain.KindNotFound:         {http.StatusNotFound, response.ErrCodeNotFound, "Not found"},
	domain.KindNotOwner:         {http.StatusForbidden, response.ErrCodeNotOwner, "Caller is not the owner"},
	domain.KindConflict:         {http.StatusConflict, response.ErrCodeConflict, "Already exists"},
	domain.KindAlreadySold:      {http.StatusConflict, response.ErrCodeAlreadySold, "Ticket already sold"},
	domain.KindAlreadyCanceled:  {http.StatusConflict, response.ErrCodeAlreadyCanceled, "Event already canceled"},
	domain.KindAlreadyRefunded:  {http.StatusConflict, response.ErrCodeAlreadyRefunded, "Ticket already refunded"},
	domain.KindNotTransferable:  {http.StatusConflict, response.ErrCodeNotTransferable, "Ticket is not transferable"},
	domain.KindSoldOut:          {http.StatusConflict, response.ErrCodeSoldOut, "Event is sold out"},
	domain.KindEventCanceled:    {http.StatusConflict, response.ErrCodeEventCanceled, "Event is canceled"},
	domain.KindEventNotCanceled: {http.StatusConflict, response.ErrCodeEventNotCanceled, "Event is not canceled"},
	domain.KindPaymentFailed:    {http.StatusPaymentRequired, response.ErrCodePaymentFailed, "Payment failed"},
}

// StatusFor returns the HTTP status and error code for a ledger error
func StatusFor(err error) (int, string) {
	if m, ok := errorMappings[domain.KindOf(err)]; ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, response.ErrCodeInternal
}

// respondError writes the envelope for err. Rejections carry their detail;
// internal failures are logged and answered with fallback only.
func respondError(c *gin.Context, err error, fallback string) {
	if !domain.IsRejection(err) {
		_ = c.Error(err)
		fields := []zap.Field{
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		}
		if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if key, ok := middleware.GetIdempotencyKey(c); ok {
			fields = append(fields, zap.String("idempotency_key", key))
		}
		logger.Get().Error(fallback, fields...)
		c.JSON(http.StatusInternalServerError, response.InternalError(fallback))
		return
	}
	m := errorMappings[domain.KindOf(err)]
	c.JSON(m.status, response.ErrorWithDetails(m.code, m.message, err.Error()))
}

// callerAddress reads the authenticated caller or answers 401
func callerAddress(c *gin.Context) (string, bool) {
	caller, ok := middleware.GetCallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Caller address not found in token"))
		return "", false
	}
	return caller, true
}
