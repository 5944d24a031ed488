// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind categorizes auth errors for display.
type Kind int

const (
	// KindValidation is a client-side precondition failure; no network call
	// was made.
	KindValidation Kind = iota
	// KindConnectivity is a transport failure, reported generically.
	KindConnectivity
	// KindAuth is a server rejection; the server's message is surfaced
	// verbatim.
	KindAuth
)

// Error is a classified auth failure. Message is user-facing.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Localized user-facing strings.
const (
	msgPasswordMismatch = "Пароли не совпадают"
	msgConnectivity     = "Ошибка подключения к серверу"
)

// ErrPasswordMismatch is the registration precondition failure.
var ErrPasswordMismatch = &Error{Kind: KindValidation, Message: msgPasswordMismatch}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == KindValidation
}

// IsConnectivity reports whether err is a transport failure.
func IsConnectivity(err error) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == KindConnectivity
}
