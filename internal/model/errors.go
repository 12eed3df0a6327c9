package model

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrContactNotFound = errors.New("emergency contact not found")
	ErrNoSafetyPlan    = errors.New("no safety plan")
)
