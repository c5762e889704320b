package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxNameLength bounds event names after trimming
	MaxNameLength = 256
	// MaxEventIDLength bounds event ids
	MaxEventIDLength = 64
	// DefaultMaxMintCapacity is used when no limit is configured
	DefaultMaxMintCapacity = 100000
)

const (
	ErrInvalidFormat      = "invalid format"
	ErrFieldRequired      = "field is required"
	ErrFieldExceedsMaxLen = "field exceeds maximum length"
	ErrFieldBelowMinVal   = "value must be positive"
	ErrCapacityTooLarge   = "capacity exceeds mint limit"
	ErrUnknownValidation  = "unknown validation error"
)

// Validator checks operation arguments. It is pure: the same input always
// yields the same verdict.
type Validator struct {
	validate        *validator.Validate
	maxMintCapacity int
}

// New builds a Validator with the ledger's custom tags registered
func New(maxMintCapacity int) *Validator {
	if maxMintCapacity <= 0 {
		maxMintCapacity = DefaultMaxMintCapacity
	}

	v := &Validator{
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		maxMintCapacity: maxMintCapacity,
	}
	_ = v.validate.RegisterValidation("stxaddr", validateAddressTag)
	_ = v.validate.RegisterValidation("caldate", validateDateTag)
	_ = v.validate.RegisterValidation("eventid", validateEventIDTag)
	_ = v.validate.RegisterValidation("evname", validateNameTag)
	_ = v.validate.RegisterValidation("mintcap", v.validateMintCapTag)

	return v
}

// MaxMintCapacity returns the configured upper bound for max_capacity
func (v *Validator) MaxMintCapacity() int {
	return v.maxMintCapacity
}

// Struct validates s against its validate tags. The first failure is
// returned wrapped in domain.ErrInvalidInput.
func (v *Validator) Struct(ctx context.Context, s any) error {
	err := v.validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	fe := vErrors[0]
	return fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, fieldName(fe), message(fe))
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return ErrFieldRequired
	case "max":
		return ErrFieldExceedsMaxLen
	case "gt", "gte":
		return ErrFieldBelowMinVal
	case "mintcap":
		return ErrCapacityTooLarge
	case "stxaddr", "caldate", "eventid":
		return ErrInvalidFormat
	case "evname":
		return "name must be non-blank and at most 256 characters"
	default:
		return ErrUnknownValidation
	}
}

// Address checks a c32check address and wraps failures in ErrInvalidInput
func Address(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: address is required", domain.ErrInvalidInput)
	}
	if _, _, err := DecodeAddress(addr); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// IsValidAddress reports whether addr is a well-formed c32check address
func IsValidAddress(addr string) bool {
	_, _, err := DecodeAddress(addr)
	return err == nil
}

// Date checks that s is a real calendar date in YYYY-MM-DD form
func Date(s string) error {
	if _, err := time.Parse(domain.DateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q: %v", domain.ErrInvalidInput, s, err)
	}
	return nil
}

// EventID checks that id can serve as the prefix of ticket ids
func EventID(id string) error {
	if !validEventID(id) {
		return fmt.Errorf("%w: event id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// validEventID allows [A-Za-z0-9._-] only, so an id is safe as a URL path
// segment and never contains the ticket id separator.
func validEventID(id string) bool {
	if id == "" || len(id) > MaxEventIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len([]rune(trimmed)) <= MaxNameLength
}

func validateAddressTag(fl validator.FieldLevel) bool {
	return IsValidAddress(fl.Field().String())
}

func validateDateTag(fl validator.FieldLevel) bool {
	_, err := time.Parse(domain.DateLayout, fl.Field().String())
	return err == nil
}

func validateEventIDTag(fl validator.FieldLevel) bool {
	return validEventID(fl.Field().String())
}

func validateNameTag(fl validator.FieldLevel) bool {
	return validName(fl.Field().String())
}

func (v *Validator) validateMintCapTag(fl validator.FieldLevel) bool {
	return fl.Field().Int() <= int64(v.maxMintCapacity)
}
