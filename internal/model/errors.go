package model

import "errors"

var (
	// File store errors
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
	ErrIO           = errors.New("file store i/o failure")

	// Access gate errors
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")

	// Intake errors
	ErrNoFile          = errors.New("no file uploaded")
	ErrTypeNotAllowed  = errors.New("file type not allowed")
	ErrCorruptImage    = errors.New("image could not be decoded")
	ErrPayloadTooLarge = errors.New("payload too large")

	// Remote fetch errors
	ErrFetchFailed  = errors.New("remote fetch failed")
	ErrFetchTimeout = errors.New("remote fetch timed out")
)
