package game

import (
	"errors"
	"net/http"
)

// Error is a domain error with a stable code and the HTTP status boundaries
// should translate it to. The taxonomy is closed: anything that is not an
// *Error surfaces as a 500 "Unexpected error" after logging.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrRoomNotFound                = &Error{Code: "room_not_found", Message: "Room not found", Status: http.StatusNotFound}
	ErrForbidden                   = &Error{Code: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
	ErrPlayerNotFound              = &Error{Code: "player_not_found", Message: "Player not found", Status: http.StatusNotFound}
	ErrQuestionAlreadyInPlay       = &Error{Code: "question_already_in_play", Message: "A question is already in play", Status: http.StatusConflict}
	ErrNoActiveQuestion            = &Error{Code: "no_active_question", Message: "No active question", Status: http.StatusConflict}
	ErrBuzzersAlreadyOpen          = &Error{Code: "buzzers_already_open", Message: "Buzzers are already open", Status: http.StatusConflict}
	ErrBuzzNotAvailable            = &Error{Code: "buzz_not_available", Message: "Buzzing is not available right now", Status: http.StatusConflict}
	ErrAlreadyAttempted            = &Error{Code: "already_attempted", Message: "You have already attempted this question", Status: http.StatusConflict}
	ErrNoAnsweringPlayer           = &Error{Code: "no_answering_player", Message: "No player is currently answering", Status: http.StatusBadRequest}
	ErrTurnRequired                = &Error{Code: "turn_required", Message: "No player currently has the turn", Status: http.StatusConflict}
	ErrSlotAlreadyUsed             = &Error{Code: "slot_already_used", Message: "This category and difficulty has already been played", Status: http.StatusConflict}
	ErrUniqueQuestionUnavailable   = &Error{Code: "unique_question_unavailable", Message: "No unused question is available", Status: http.StatusBadGateway}
	ErrQuestionProviderUnavailable = &Error{Code: "question_provider_unavailable", Message: "Question provider is unavailable", Status: http.StatusBadGateway}
	ErrInvalidShareCode            = &Error{Code: "invalid_share_code", Message: "Share code must be exactly 4 digits", Status: http.StatusBadRequest}
	ErrShareCodeNotFound           = &Error{Code: "share_code_not_found", Message: "Share code not found or expired", Status: http.StatusNotFound}
)

// NewValidationError builds a 400 for malformed input. The message is shown
// to users, so keep it human-readable.
func NewValidationError(message string) *Error {
	return &Error{Code: "validation_error", Message: message, Status: http.StatusBadRequest}
}

// HTTPStatus maps any error to the status boundaries must respond with.
func HTTPStatus(err error) int {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Status
	}
	return http.StatusInternalServerError
}

// UserMessage maps any error to the message exposed to clients. Unclassified
// errors are masked so internals never leak.
func UserMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "Unexpected error"
}

// ErrorCode returns the stable code for metrics labels, or "internal".
func ErrorCode(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "internal"
}
