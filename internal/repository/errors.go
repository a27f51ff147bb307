package repository

import "errors"

// ErrDuplicateSubmission is returned when a (form, user) pair already has a
// stored submission; duplicates are rejected, never overwritten
var ErrDuplicateSubmission = errors.New("form submission already exists")
