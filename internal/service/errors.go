package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/token"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyExists    = errors.New("already exists")

	ErrIllegalTransition  = lifecycle.ErrIllegalTransition
	ErrPreconditionNotMet = lifecycle.ErrPreconditionNotMet
	ErrTokenNotFound      = token.ErrTokenNotFound
	ErrTokenExpired       = token.ErrTokenExpired
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// hidden maps a missing document behind a valid token to ErrTokenNotFound so
// token holders cannot tell a deleted document from a wrong token.
func hidden(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTokenNotFound
	}
	return err
}
