package models

import "github.com/pkg/errors"

var (
	// ErrUnauthorized marks a 401 from the Twitch API. Callers re-validate
	// the app token and retry the request exactly once.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthNotConfigured is returned when client credentials are missing,
	// disabling every token-dependent feature.
	ErrAuthNotConfigured = errors.New("twitch authentication not configured")

	ErrChatNotFound = errors.New("chat not found")
	ErrForbidden    = errors.New("forbidden")
)

type GetUserUnauthorized struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type ValidateTokenInvalid struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
