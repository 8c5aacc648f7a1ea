package domain

import "errors"

// Domain errors
var (
	ErrUserIDRequired       = errors.New("user id is required")
	ErrDeckIDRequired       = errors.New("deck id is required")
	ErrNoLeaderboardEntries = errors.New("no leaderboard entries for deck")
	ErrNoProgressData       = errors.New("no quiz attempts recorded for user")
	ErrDeckNotFound         = errors.New("deck not found")
	ErrDeckAlreadyShared    = errors.New("deck already shared with user")
	ErrDeckNotShared        = errors.New("deck not shared with user")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInternalError        = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNoLeaderboardEntries) ||
		errors.Is(err, ErrNoProgressData) ||
		errors.Is(err, ErrDeckNotFound) ||
		errors.Is(err, ErrDeckNotShared)
}

// IsInvalidArgument checks if an error is a caller-input validation error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrUserIDRequired) ||
		errors.Is(err, ErrDeckIDRequired) ||
		errors.Is(err, ErrInvalidRequest)
}
