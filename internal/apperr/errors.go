// Package apperr содержит типизированные ошибки сервиса.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	MissingRequestFields    Kind = "missing_request_fields"
	InvalidDataType         Kind = "invalid_data_type"
	NameRequired            Kind = "name_required"
	NoChanges               Kind = "no_changes"
	UnknownFieldType        Kind = "unknown_field_type"
	MissingRequiredConfig   Kind = "missing_required_config"
	DuplicateFieldName      Kind = "duplicate_field_name"
	ReservedFieldName       Kind = "reserved_field_name"
	InvalidIdentity         Kind = "invalid_identity"
	InvalidPrimaryKey       Kind = "invalid_primary_key"
	EntityAlreadyExists     Kind = "entity_already_exists"
	EntityTypeNotFound      Kind = "entity_type_not_found"
	EntityNotFound          Kind = "entity_not_found"
	RecordNotFound          Kind = "record_not_found"
	ReferenceTargetNotFound Kind = "reference_target_not_found"
	FormatNotSupported      Kind = "format_not_supported"
	MissingPrimaryKey       Kind = "missing_primary_key"
	StoreIOError            Kind = "store_io_error"
	ValidationError         Kind = "validation_error"
)

// Error — ошибка с видом. Err (если есть) — первопричина.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает err; пустой format оставляет только текст err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Is проверяет всю цепочку, в том числе ошибки, завёрнутые в ValidationError.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf возвращает вид самой внешней *Error в цепочке.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
