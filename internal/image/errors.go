package image

import "errors"

var (
	ErrNotAnImage   = errors.New("file is not an image")
	ErrFileRead     = errors.New("failed to read file")
	ErrFileTooLarge = errors.New("file too large")
	ErrDecode       = errors.New("failed to decode image")
)

// Error kinds as reported to clients.
const (
	KindNotAnImage    = "NotAnImage"
	KindFileRead      = "FileReadError"
	KindFileTooLarge  = "FileTooLarge"
	KindDecode        = "DecodeError"
	KindInvalidParams = "InvalidParams"
	KindInternal      = "Internal"
)

// Kind maps an error from this package to its client-facing kind.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotAnImage):
		return KindNotAnImage
	case errors.Is(err, ErrFileTooLarge):
		return KindFileTooLarge
	case errors.Is(err, ErrFileRead):
		return KindFileRead
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrInvalidParams):
		return KindInvalidParams
	default:
		return KindInternal
	}
}
