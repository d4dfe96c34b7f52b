package services

import (
	"errors"

	appErr "github.com/giraph/engine/pkg/errors"
)

// Domain errors. They are returned wrapped in an *errors.AppError carrying the
// matching code, so both errors.Is and appErr.IsCode work on the result.
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrRelationNotFound  = errors.New("relation not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrDraftNotFound     = errors.New("syllabus draft not found")
	ErrDuplicateNode     = errors.New("duplicate node")
	ErrDuplicateRelation = errors.New("duplicate relation")
	ErrInvalidTopology   = errors.New("invalid topology")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrInvalidName       = errors.New("invalid name")
	ErrNodeNotResolved   = errors.New("node not resolved")
)

// domainError re-codes a repository error: not found and conflict become the
// given sentinels, anything else passes through.
func domainError(err, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	switch {
	case notFound != nil && appErr.IsCode(err, appErr.CodeNotFound):
		return appErr.Wrap(notFound, appErr.CodeNotFound, notFound.Error())
	case conflict != nil && appErr.IsCode(err, appErr.CodeConflict):
		return appErr.Wrap(conflict, appErr.CodeConflict, conflict.Error())
	}
	return err
}
