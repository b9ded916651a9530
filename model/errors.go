package model

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrNumericalInstability = errors.New("numerical instability")
)
