package realize

import "errors"

var (
	ErrRealize             = errors.New("realization failed")
	ErrNoExecutor          = errors.New("no executor configured")
	ErrCommandFailed       = errors.New("builder failed")
	ErrMissingOutput       = errors.New("builder did not produce output")
	ErrHashMismatch        = errors.New("fixed output hash mismatch")
	ErrCopy                = errors.New("copy failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
