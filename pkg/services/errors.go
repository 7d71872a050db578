package services

import (
	"errors"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
)

// mapRepoError converts repository sentinels into boundary errors.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, "analysis not found")
	case errors.Is(err, apperrors.ErrConflict):
		return apperrors.New(apperrors.CodeBadRequest, "analysis already exists")
	default:
		return apperrors.Wrap(apperrors.CodeInternal, "storage operation failed", err)
	}
}
