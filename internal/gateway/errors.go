package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindNetwork
	KindValidation
	KindOverloaded
	KindServer
)

// Sentinels for errors.Is; every *Error matches exactly one of them.
var (
	ErrUnauthorized = errors.New("session expired, please log in again")
	ErrNetwork      = errors.New("cannot reach service")
	ErrValidation   = errors.New("request rejected")
	ErrOverloaded   = errors.New("service overloaded")
	ErrServer       = errors.New("server error")
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindOverloaded:
		return "overloaded"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrUnauthorized
	case KindNetwork:
		return ErrNetwork
	case KindValidation:
		return ErrValidation
	case KindOverloaded:
		return ErrOverloaded
	case KindServer:
		return ErrServer
	default:
		return nil
	}
}

// Error is the typed failure returned by Client.Do.
type Error struct {
	Kind     Kind
	Status   int    // zero for transport and local failures
	Method   string // empty for local failures
	Endpoint string
	Detail   string // server-provided message, verbatim
	Err      error  // underlying transport error, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Endpoint)
	}
	b.WriteString(e.Kind.sentinel().Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Validation builds a local validation failure, used for checks that run
// before any request is sent.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or zero when err is not a gateway error.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// Message returns the user-facing text for err: the server detail when there
// is one, otherwise the category message.
func Message(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		if gwErr.Detail != "" {
			return gwErr.Detail
		}
		return gwErr.Kind.sentinel().Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var overloadIndicators = []string{"overloaded", "unavailable", "resource_exhausted", "resource exhausted", "503"}

func classifyStatus(status int, detail, body string) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusServiceUnavailable:
		return KindOverloaded
	case status == http.StatusTooManyRequests || status >= 500:
		if hasOverloadIndicator(detail) || hasOverloadIndicator(body) {
			return KindOverloaded
		}
		if status >= 500 {
			return KindServer
		}
		return KindValidation
	default:
		return KindValidation
	}
}

func hasOverloadIndicator(s string) bool {
	lower := strings.ToLower(s)
	for _, ind := range overloadIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
