package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryInvalidRequest   Category = "InvalidRequest"
	CategorySourceBlocked    Category = "SourceBlocked"
	CategorySourceInvalid    Category = "SourceInvalid"
	CategoryConversionFailed Category = "ConversionFailed"
	CategoryInternalIO       Category = "InternalIO"
	CategoryTimeout          Category = "Timeout"
)

// HintUseUpload is attached to every SourceBlocked error.
const HintUseUpload = "the video host refused the download; upload the video file instead"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a categorized pipeline failure. Message is safe to show to users.
type Error struct {
	Category Category
	Message  string
	Hint     string
	Fields   []FieldError
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", f.Field, f.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidRequest(fields ...FieldError) *Error {
	msg := "invalid request"
	if len(fields) == 1 {
		msg = fields[0].Message
	}
	return &Error{Category: CategoryInvalidRequest, Message: msg, Fields: fields}
}

func SourceBlocked(err error) *Error {
	return &Error{
		Category: CategorySourceBlocked,
		Message:  "the video host blocked the download",
		Hint:     HintUseUpload,
		Err:      err,
	}
}

func SourceInvalid(msg string, err error) *Error {
	return &Error{Category: CategorySourceInvalid, Message: msg, Err: err}
}

func ConversionFailed(err error) *Error {
	return &Error{Category: CategoryConversionFailed, Message: "GIF conversion failed", Err: err}
}

func InternalIO(msg string, err error) *Error {
	return &Error{Category: CategoryInternalIO, Message: msg, Err: err}
}

// CategoryOf reports the category of err. Context deadlines and cancellations
// map to Timeout; uncategorized errors map to InternalIO.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryInternalIO
}

// AsError returns err as *Error, wrapping uncategorized errors.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return e
	}
	switch CategoryOf(err) {
	case CategoryTimeout:
		return &Error{Category: CategoryTimeout, Message: "the conversion did not finish in time", Err: err}
	default:
		return InternalIO("internal error", err)
	}
}
