package service

import "errors"

var (
	// ErrProjectNameTaken is returned when the owner already has a project
	// with the same name (case-insensitive)
	ErrProjectNameTaken = errors.New("project name already in use")

	// ErrTokenInUse is returned when another project already uses the token
	ErrTokenInUse = errors.New("bot token already in use")

	// ErrProjectLimitReached is returned when creating one more project
	// would exceed the user's plan limit
	ErrProjectLimitReached = errors.New("project limit reached")

	// ErrDuplicateField is returned when a form draft already contains a
	// field with the same name (case-insensitive)
	ErrDuplicateField = errors.New("form field already exists")

	// ErrAlreadySubmitted is returned when the customer has already sent
	// this project's form
	ErrAlreadySubmitted = errors.New("form already submitted")

	// ErrProjectNotFound is returned when the referenced project is gone
	ErrProjectNotFound = errors.New("project not found")
)
