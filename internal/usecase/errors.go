package usecase

import (
	"errors"

	"github.com/riskibarqy/matchlog/internal/domain/match"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("resource not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrTransport           = errors.New("transport failure")
	ErrConstraintViolation = match.ErrConstraintViolation
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

const (
	KindValidation          = "validation"
	KindNotFound            = "not_found"
	KindRateLimited         = "rate_limited"
	KindTransport           = "transport"
	KindConstraintViolation = "constraint_violation"
	KindStorageUnavailable  = "storage_unavailable"
	KindInternal            = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{err: ErrValidation, kind: KindValidation},
	{err: ErrNotFound, kind: KindNotFound},
	{err: ErrRateLimited, kind: KindRateLimited},
	{err: ErrTransport, kind: KindTransport},
	{err: ErrConstraintViolation, kind: KindConstraintViolation},
	{err: ErrStorageUnavailable, kind: KindStorageUnavailable},
}

// KindOf reports the stable kind name of err. Errors outside the taxonomy are "internal".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, item := range errorKinds {
		if errors.Is(err, item.err) {
			return item.kind
		}
	}
	return KindInternal
}

// IsRetryable is true for failures a later attempt may not hit again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransport)
}
