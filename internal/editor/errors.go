package editor

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies dispatch and handle failures.
type Kind int

const (
	KindUnrecognizedGameData Kind = iota + 1
	KindAmbiguousFormat
	KindInitializationFailure
	KindIOFailure
)

var (
	ErrUnrecognizedGameData = errors.New("unrecognized game data")
	ErrAmbiguousFormat      = errors.New("ambiguous format")
	ErrInitialization       = errors.New("initialization failure")
	ErrIO                   = errors.New("i/o failure")
)

// InitHint is appended to initialization failures shown to users.
const InitHint = "Please ensure your dump is correctly set up, with updated patches merged in (if applicable)."

func (k Kind) String() string {
	switch k {
	case KindUnrecognizedGameData:
		return "UnrecognizedGameData"
	case KindAmbiguousFormat:
		return "AmbiguousFormat"
	case KindInitializationFailure:
		return "InitializationFailure"
	case KindIOFailure:
		return "IOFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnrecognizedGameData:
		return ErrUnrecognizedGameData
	case KindAmbiguousFormat:
		return ErrAmbiguousFormat
	case KindInitializationFailure:
		return ErrInitialization
	case KindIOFailure:
		return ErrIO
	default:
		return nil
	}
}

// Error is the structured failure surfaced to the user verbatim.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Detail  string
	Err     error
}

// NewError builds an Error. Detail defaults to the cause's text.
func NewError(kind Kind, path, message string, cause error) *Error {
	e := &Error{Kind: kind, Path: path, Message: message, Err: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Message == "" {
		b.WriteString(e.Kind.String())
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap exposes both the kind's sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
