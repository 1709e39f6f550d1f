package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindLink                   ErrorKind = "link"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindNotFound               ErrorKind = "not_found"
	KindStorage                ErrorKind = "storage"
	KindPublish                ErrorKind = "publish"
	KindUnauthorized           ErrorKind = "unauthorized"
	KindForbidden              ErrorKind = "forbidden"
	KindConflict               ErrorKind = "conflict"
	KindInternal               ErrorKind = "internal"
)

// LinkReason says why a submission link refused access.
type LinkReason string

const (
	LinkNotFound     LinkReason = "not_found"
	LinkExpired      LinkReason = "expired"
	LinkInactive     LinkReason = "inactive"
	LinkLimitReached LinkReason = "limit_reached"
	LinkBadPassword  LinkReason = "bad_password"
)

// AppError is the error every service returns to handlers. Kind is
// machine-checkable; Message is safe to show to the caller.
type AppError struct {
	Kind    ErrorKind
	Reason  LinkReason
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

func NewLinkError(reason LinkReason) *AppError {
	return &AppError{Kind: KindLink, Reason: reason, Message: linkMessages[reason]}
}

func NewInvalidStateTransition(current SubmissionStatus, action ReviewAction) *AppError {
	return &AppError{
		Kind:    KindInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s a submission in %q state", action.Verb(), current),
	}
}

func NewNotFoundError(entity string) *AppError {
	return &AppError{Kind: KindNotFound, Message: entity + " not found"}
}

func NewStorageError(message string, cause error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Cause: cause}
}

func NewPublishError(message string) *AppError {
	return &AppError{Kind: KindPublish, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Cause: cause}
}

var linkMessages = map[LinkReason]string{
	LinkNotFound:     "submission link not found",
	LinkExpired:      "submission link has expired",
	LinkInactive:     "submission link is no longer active",
	LinkLimitReached: "submission limit reached for this link",
	LinkBadPassword:  "invalid password",
}

// ErrorKindOf returns the kind of err, or KindInternal for anything that is
// not an AppError.
func ErrorKindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// LinkReasonOf returns the link failure reason carried by err, if any.
func LinkReasonOf(err error) LinkReason {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind == KindLink {
		return appErr.Reason
	}
	return ""
}
