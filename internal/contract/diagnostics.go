package contract

import (
	"fmt"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// Code categorizes a diagnostic.
type Code string

const (
	UnknownReference           Code = "UnknownReference"
	UnsupportedContentEncoding Code = "UnsupportedContentEncoding"
	MissingResponseBody        Code = "MissingResponseBody"
	UnsupportedSchemaType      Code = "UnsupportedSchemaType"
	UnexpectedRequestBody      Code = "UnexpectedRequestBody"
	CompositionCycle           Code = "CompositionCycle"
	// NamingCollision is fatal for the endpoint it occurs in.
	NamingCollision Code = "NamingCollision"
)

// Diagnostic is a non-fatal finding recorded while building a model.
type Diagnostic struct {
	Code    Code   `json:"code" yaml:"code"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Verb    string `json:"verb,omitempty" yaml:"verb,omitempty"`
	Pointer string `json:"pointer,omitempty" yaml:"pointer,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Code))
	if d.Verb != "" || d.Path != "" {
		fmt.Fprintf(&b, " %s %s", strings.ToUpper(d.Verb), d.Path)
	}
	if d.Pointer != "" {
		fmt.Fprintf(&b, " (%s)", d.Pointer)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Error is a fatal build error for one endpoint.
type Error struct {
	Code    Code
	Path    string
	Verb    string
	Message string
	Cause   error
}

// ErrNamingCollision matches any *Error with Code NamingCollision via errors.Is.
var ErrNamingCollision = &Error{Code: NamingCollision}

func (e *Error) Error() string {
	if e.Path == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s %s %s: %s", e.Code, strings.ToUpper(e.Verb), e.Path, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a sentinel *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Path == ""
}

// pointer builds JSON pointers with escaped reference tokens.
type pointer string

const rootPointer pointer = "#"

func operationPointer(path, verb string) pointer {
	return rootPointer.child("paths", path, verb)
}

func componentPointer(name string) pointer {
	return rootPointer.child("components", "schemas", name)
}

func (p pointer) child(tokens ...string) pointer {
	var b strings.Builder
	b.WriteString(string(p))
	for _, tok := range tokens {
		b.WriteByte('/')
		b.WriteString(jsonpointer.Escape(tok))
	}
	return pointer(b.String())
}
