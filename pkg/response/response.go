package response

// Error codes shared by every handler
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInvalidRecipient = "INVALID_RECIPIENT"
	ErrCodeNotOwner         = "NOT_OWNER"
	ErrCodeAlreadySold      = "ALREADY_SOLD"
	ErrCodeAlreadyCanceled  = "ALREADY_CANCELED"
	ErrCodeAlreadyRefunded  = "ALREADY_REFUNDED"
	ErrCodeNotTransferable  = "NOT_TRANSFERABLE"
	ErrCodeSoldOut          = "SOLD_OUT"
	ErrCodeEventCanceled    = "EVENT_CANCELED"
	ErrCodeEventNotCanceled = "EVENT_NOT_CANCELED"
	ErrCodePaymentFailed    = "PAYMENT_FAILED"
)

// Response is the envelope for every JSON reply
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries list metadata
type Meta struct {
	Total int `json:"total"`
}

// Success wraps data in a successful envelope
func Success(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// List wraps a collection with its size
func List(data interface{}, total int) *Response {
	return &Response{Success: true, Data: data, Meta: &Meta{Total: total}}
}

// Error builds a failed envelope
func Error(code, message string) *Response {
	return &Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails builds a failed envelope with extra detail
func ErrorWithDetails(code, message, details string) *Response {
	r := Error(code, message)
	r.Error.Details = details
	return r
}

func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

func Unauthorized(message string) *Response {
	return Error(ErrCodeUnauthorized, message)
}

func NotFound(message string) *Response {
	return Error(ErrCodeNotFound, message)
}

func InternalError(message string) *Response {
	return Error(ErrCodeInternal, message)
}

func ServiceUnavailable(message string) *Response {
	return Error(ErrCodeUnavailable, message)
}
