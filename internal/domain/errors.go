package domain

import "errors"

// Domain errors
var (
	// Input errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRecipient = errors.New("invalid recipient")

	// Store errors
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")

	// Authorization errors
	ErrNotOwner = errors.New("not owner")

	// State transition errors
	ErrAlreadySold      = errors.New("ticket already sold")
	ErrAlreadyCanceled  = errors.New("event already canceled")
	ErrAlreadyRefunded  = errors.New("ticket already refunded")
	ErrNotTransferable  = errors.New("ticket not transferable")
	ErrSoldOut          = errors.New("event sold out")
	ErrEventCanceled    = errors.New("event canceled")
	ErrEventNotCanceled = errors.New("event not canceled")

	// Escrow errors
	ErrPaymentFailed = errors.New("payment failed")
)

// ErrorKind discriminates rejections returned by the ledger
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInvalidInput     ErrorKind = "InvalidInput"
	KindConflict         ErrorKind = "Conflict"
	KindNotFound         ErrorKind = "NotFound"
	KindNotOwner         ErrorKind = "NotOwner"
	KindAlreadySold      ErrorKind = "AlreadySold"
	KindAlreadyCanceled  ErrorKind = "AlreadyCanceled"
	KindAlreadyRefunded  ErrorKind = "AlreadyRefunded"
	KindNotTransferable  ErrorKind = "NotTransferable"
	KindSoldOut          ErrorKind = "SoldOut"
	KindEventCanceled    ErrorKind = "EventCanceled"
	KindEventNotCanceled ErrorKind = "EventNotCanceled"
	KindInvalidRecipient ErrorKind = "InvalidRecipient"
	KindPaymentFailed    ErrorKind = "PaymentFailed"
	KindInternal         ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidRecipient, KindInvalidRecipient},
	{ErrConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrNotOwner, KindNotOwner},
	{ErrAlreadySold, KindAlreadySold},
	{ErrAlreadyCanceled, KindAlreadyCanceled},
	{ErrAlreadyRefunded, KindAlreadyRefunded},
	{ErrNotTransferable, KindNotTransferable},
	{ErrSoldOut, KindSoldOut},
	{ErrEventCanceled, KindEventCanceled},
	{ErrEventNotCanceled, KindEventNotCanceled},
	{ErrPaymentFailed, KindPaymentFailed},
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidRecipient)
}

// IsConflictError checks if the error is a uniqueness or illegal transition error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		IsStateError(err)
}

// IsStateError checks if the error rejects an illegal state transition
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadySold) ||
		errors.Is(err, ErrAlreadyCanceled) ||
		errors.Is(err, ErrAlreadyRefunded) ||
		errors.Is(err, ErrNotTransferable) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrEventCanceled) ||
		errors.Is(err, ErrEventNotCanceled)
}

// IsRejection reports whether err is one of the typed ledger rejections
func IsRejection(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInternal
}
