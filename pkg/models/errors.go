package models

import "errors"

var (
	// ErrUnsupportedOperation is returned when a child operation is invoked
	// on a content page. Content pages are leaves; callers that want to nest
	// under one must promote it to a container first.
	ErrUnsupportedOperation = errors.New("operation not supported on content pages")

	// ErrInvalidAccessLevel is returned when a sharing grant names a level
	// other than view or edit.
	ErrInvalidAccessLevel = errors.New("invalid access level")
)
