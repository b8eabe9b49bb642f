package domain

import "errors"

// Validation failures are expected outcomes, returned as values rather than
// panics, so callers can reject a single inbound message without aborting
// anything else.
var (
	ErrEmptyMessageID   = errors.New("message id is empty")
	ErrMessageIDTooLong = errors.New("message id exceeds 500 characters")
	ErrEmptySenderID    = errors.New("sender id is empty")
	ErrSenderIDTooLong  = errors.New("sender id exceeds 200 characters")
	ErrEmptyText        = errors.New("text content is empty")
	ErrTextTooLong      = errors.New("text content exceeds 10000 characters")
	ErrEmptyAudioID     = errors.New("audio id is empty")
	ErrEmptyMimeType    = errors.New("audio mime type is empty")
	ErrInvalidMimeType  = errors.New("audio mime type must begin with audio/")
	ErrMissingContent   = errors.New("message content is missing")
	ErrFutureTimestamp  = errors.New("message timestamp is too far in the future")
)
