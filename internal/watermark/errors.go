package watermark

import (
	"errors"
	"fmt"
)

// ErrNoImage is returned when a pipeline is run before an image is loaded.
var ErrNoImage = errors.New("no image loaded")

// InputError reports a request that cannot be processed as given: a missing
// file, an unsupported output format, empty text or an unparseable value.
// It is never retried.
type InputError struct {
	Field string
	Msg   string
	Err   error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *InputError) Unwrap() error { return e.Err }

func inputErr(field, msg string, err error) *InputError {
	return &InputError{Field: field, Msg: msg, Err: err}
}

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// FontLoadWarning is returned alongside a usable fallback font when the
// requested family could not be found or parsed. Rendering continues with
// the fallback; callers are expected to log the warning.
type FontLoadWarning struct {
	Family   string
	Fallback string
	Err      error
}

func (w *FontLoadWarning) Error() string {
	msg := fmt.Sprintf("font %q unavailable, using %q", w.Family, w.Fallback)
	if w.Err != nil {
		msg += ": " + w.Err.Error()
	}
	return msg
}

func (w *FontLoadWarning) Unwrap() error { return w.Err }
