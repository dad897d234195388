package errors

import goerrors "errors"

// Is is errors.Is, re-exported so callers only import one errors package.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return goerrors.As(err, target)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return goerrors.Join(errs...)
}
