package fetch

import "errors"

var (
	ErrDownload            = errors.New("download failed")
	ErrHashMismatch        = errors.New("hash mismatch")
	ErrUnpack              = errors.New("unpack failed")
	ErrUnsupportedArchive  = errors.New("unsupported archive format")
	ErrInvalidStep         = errors.New("invalid fetch step")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
