// Package model defines the wire and transport types shared by the proxy,
// the HTTP client and the local invoker endpoint.
package model

import (
	"net/http"
)

// JNDI option names carrying caller credentials. The same names are used as
// keys in the auxiliary options map and in the request payload.
const (
	SecurityPrincipal   = "java.naming.security.principal"
	SecurityCredentials = "java.naming.security.credentials"
)

// InvocationRequest is the JSON body of a single remote call. The credential
// fields hold base64 text and are nil when the option was not set.
type InvocationRequest struct {
	Lookup      string   `json:"lookup"`
	Method      string   `json:"method"`
	ArgTypes    []string `json:"argTypes"`
	ArgValues   []any    `json:"argValues"`
	Principal   *string  `json:"java.naming.security.principal,omitempty"`
	Credentials *string  `json:"java.naming.security.credentials,omitempty"`
}

// ReturnShape classifies how a method's result is delivered.
type ReturnShape uint8

const (
	Synchronous ReturnShape = iota
	Future
	Reactive
)

func (s ReturnShape) String() string {
	switch s {
	case Future:
		return "future"
	case Reactive:
		return "reactive"
	default:
		return "sync"
	}
}

// Exchange is one HTTP request issued on behalf of an intercepted call.
type Exchange struct {
	Method  string
	URL     string
	Header  http.Header
	Cookies []*http.Cookie
	Payload *InvocationRequest
	Shape   ReturnShape
}
