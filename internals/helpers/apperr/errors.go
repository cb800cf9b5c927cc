// Package apperr berisi taksonomi error domain dan pemetaannya ke *fiber.Error.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindGateway
	KindStorage
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func Gateway(msg string, err error) error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

func Storage(msg string, err error) error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsDuplicateKey: unique violation dari postgres (23505) atau ErrDuplicatedKey gorm.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ToFiber memetakan error domain ke status HTTP. Pesan untuk gateway/storage
// sengaja generik; detail cukup di log.
func ToFiber(err error) *fiber.Error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var e *Error
	if !errors.As(err, &e) {
		return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
	}
	switch e.Kind {
	case KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, e.Message)
	case KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, e.Message)
	case KindConflict:
		return fiber.NewError(fiber.StatusConflict, e.Message)
	case KindGateway:
		return fiber.NewError(fiber.StatusBadGateway, e.Message)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, e.Message)
	}
}
