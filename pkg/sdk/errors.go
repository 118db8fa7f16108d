package interviewd

import "github.com/hireloop/interviewd/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyInput            = domain.ErrEmptyInput
	ErrEmptyAnswer           = domain.ErrEmptyAnswer
	ErrUnsupportedFormat     = domain.ErrUnsupportedFormat
	ErrSessionNotFound       = domain.ErrSessionNotFound
	ErrInvalidState          = domain.ErrInvalidState
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
	ErrProviderTimeout       = domain.ErrProviderTimeout
	ErrVectorDimMismatch     = domain.ErrVectorDimMismatch
	ErrDuplicateQuestion     = domain.ErrDuplicateQuestion
)
