// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import "fmt"

// ErrorCode identifies a failure class. The ordinal values are stable and
// match the codes surfaced by other implementations of this engine.
type ErrorCode int

const (
	// CodeDataSourceOpenFailed means the backing store could not be opened.
	CodeDataSourceOpenFailed ErrorCode = iota
	// CodeNotAnImage means the input stream is not a JP2 stream.
	CodeNotAnImage
	// CodeCorruptedMetadata means a box length, ordering or sub-box
	// invariant was violated.
	CodeCorruptedMetadata
	// CodeFailedToReadImageData means a read on the input stream faulted.
	CodeFailedToReadImageData
	// CodeInputDataReadFailed means a read returned fewer bytes than the
	// box structure promised.
	CodeInputDataReadFailed
	// CodeImageWriteFailed means a write on the output stream faulted.
	CodeImageWriteFailed
	// CodeNoImageInInputData means the write path found no JP2 signature.
	CodeNoImageInInputData
	// CodeNotAJpeg is used when structure-printing a non-JP2 stream.
	CodeNotAJpeg
	// CodeInvalidSettingForImage marks operations JP2 does not support.
	CodeInvalidSettingForImage
)

func (c ErrorCode) String() string {
	switch c {
	case CodeDataSourceOpenFailed:
		return "data source open failed"
	case CodeNotAnImage:
		return "not an image"
	case CodeCorruptedMetadata:
		return "corrupted metadata"
	case CodeFailedToReadImageData:
		return "failed to read image data"
	case CodeInputDataReadFailed:
		return "input data read failed"
	case CodeImageWriteFailed:
		return "image write failed"
	case CodeNoImageInInputData:
		return "no image in input data"
	case CodeNotAJpeg:
		return "not a JPEG-like stream"
	case CodeInvalidSettingForImage:
		return "invalid setting for image"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error is the error type returned by all operations in this package.
type Error struct {
	Code ErrorCode
	msg  string
	err  error
}

func (e *Error) Error() string {
	s := "jp2meta: " + e.Code.String()
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code == code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, err error) *Error {
	return &Error{Code: code, err: err}
}

func errCorrupted(format string, args ...any) *Error {
	return newError(CodeCorruptedMetadata, format, args...)
}
