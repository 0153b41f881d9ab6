package source

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies provider failures.
type Kind int

const (
	// KindNetwork covers connection failures, timeouts and non-2xx
	// responses before any payload is interpretable.
	KindNetwork Kind = iota + 1
	// KindMalformed covers payloads that are not valid JSON or whose
	// top-level envelope has an unexpected shape.
	KindMalformed
	// KindSemantic covers well-formed payloads that signal a domain
	// problem: explicit error field, empty result, missing required
	// field, zero price, unknown ticker.
	KindSemantic
	// KindUnsupported marks optional capabilities a source cannot provide.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed response"
	case KindSemantic:
		return "provider"
	case KindUnsupported:
		return "unsupported operation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a provider-scoped failure. It always names the provider and,
// where known, the ticker and a raw-response snippet for debugging.
type Error struct {
	Provider string
	Kind     Kind
	Ticker   string
	Msg      string
	Snippet  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Ticker != "" {
		b.WriteString(": ")
		b.WriteString(e.Ticker)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, " (response: %s)", e.Snippet)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is (or wraps) a provider Error of the given kind.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}
