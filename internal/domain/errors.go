package domain

import "errors"

// Error kinds reported by the rental core. Call sites wrap them with detail:
//
//	fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("not authorized")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("item not available")
	ErrDuplicate    = errors.New("already exists")
)

const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindForbidden    = "forbidden"
	KindInvalidState = "invalid_state"
	KindUnavailable  = "unavailable"
	KindDuplicate    = "duplicate"
	KindInternal     = "internal"
)

// KindOf returns the stable code of the first known kind in err's chain.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	default:
		return KindInternal
	}
}
