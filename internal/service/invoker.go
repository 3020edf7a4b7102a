// Package service implements the server side of the invocation protocol:
// a registry of beans addressed by lookup name and the reflective call into them.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"remoting-proxy-go/internal/codec"
)

var (
	// ErrBadRequest is returned for malformed or inconsistent invocation payloads.
	ErrBadRequest = errors.New("malformed invocation")
	// ErrUnauthorized is returned when the Authenticator rejects the caller.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrUnknownLookup is returned when no bean is registered under the lookup name.
	ErrUnknownLookup = errors.New("unknown lookup")
	// ErrUnknownMethod is returned when the bean has no method matching the call.
	ErrUnknownMethod = errors.New("unknown method")
)

var (
	typeOfContext = reflect.TypeFor[context.Context]()
	typeOfError   = reflect.TypeFor[error]()
)

// Call is an invocation payload as received by the endpoint. Argument values
// stay raw until the target parameter types are known.
type Call struct {
	Lookup      string             `json:"lookup"`
	Method      string             `json:"method"`
	ArgTypes    []string           `json:"argTypes"`
	ArgValues   []codec.RawMessage `json:"argValues"`
	Principal   *string            `json:"java.naming.security.principal,omitempty"`
	Credentials *string            `json:"java.naming.security.credentials,omitempty"`
}

// Caller is the decoded identity sent with a call. Present reports whether
// the payload carried any credential field.
type Caller struct {
	Principal   string
	Credentials string
	Present     bool
}

// Authenticator decides whether a caller may invoke lookup. A non-nil error rejects the call.
type Authenticator func(ctx context.Context, lookup string, caller Caller) error

// MethodError wraps an error returned by the bean method itself.
type MethodError struct {
	Method string
	Err    error
}

func (e *MethodError) Error() string { return fmt.Sprintf("%s: %v", e.Method, e.Err) }

func (e *MethodError) Unwrap() error { return e.Err }

// Invoker dispatches calls to registered beans. It is safe for concurrent use.
type Invoker struct {
	mu    sync.RWMutex
	beans map[string]reflect.Value

	auth   Authenticator
	codec  codec.Codec
	logger *slog.Logger
}

// NewInvoker creates an empty Invoker. auth may be nil to accept every caller.
func NewInvoker(logger *slog.Logger, auth Authenticator) *Invoker {
	return &Invoker{
		beans:  make(map[string]reflect.Value),
		auth:   auth,
		codec:  codec.Default,
		logger: logger.With("component", "invoker"),
	}
}

// Register exposes bean under lookup. A later registration under the same name replaces it.
func (i *Invoker) Register(lookup string, bean any) error {
	if lookup == "" {
		return errors.New("register: empty lookup")
	}
	v := reflect.ValueOf(bean)
	if !v.IsValid() || v.NumMethod() == 0 {
		return fmt.Errorf("register %q: bean %T has no exported methods", lookup, bean)
	}

	i.mu.Lock()
	i.beans[lookup] = v
	i.mu.Unlock()

	i.logger.Info("bean registered", "lookup", lookup, "type", v.Type().String(), "methods", v.NumMethod())
	return nil
}

// Lookups returns the registered lookup names in sorted order.
func (i *Invoker) Lookups() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, 0, len(i.beans))
	for name := range i.beans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke resolves call against the bean registered under call.Lookup and
// runs it. pathMethod is the method segment of the request URL and must
// name the same method as the payload. The first non-error result is
// returned; it is nil for methods that return only an error.
func (i *Invoker) Invoke(ctx context.Context, pathMethod string, call *Call) (any, error) {
	if call.Method == "" || call.Method != pathMethod {
		return nil, fmt.Errorf("%w: path method %q, payload method %q", ErrBadRequest, pathMethod, call.Method)
	}
	if len(call.ArgTypes) != len(call.ArgValues) {
		return nil, fmt.Errorf("%w: %d argTypes, %d argValues", ErrBadRequest, len(call.ArgTypes), len(call.ArgValues))
	}

	caller, err := decodeCaller(call)
	if err != nil {
		return nil, err
	}
	if i.auth != nil {
		if err := i.auth(ctx, call.Lookup, caller); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}

	i.mu.RLock()
	bean, ok := i.beans[call.Lookup]
	i.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLookup, call.Lookup)
	}

	fn, withCtx, ok := findMethod(bean, call.Method, len(call.ArgValues))
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s/%d", ErrUnknownMethod, call.Lookup, call.Method, len(call.ArgValues))
	}

	args, err := i.decodeArgs(ctx, fn.Type(), withCtx, call.ArgValues)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("invoking",
		"lookup", call.Lookup,
		"method", call.Method,
		"principal", caller.Principal,
	)

	return splitResults(call.Method, fn.Call(args))
}

func decodeCaller(call *Call) (Caller, error) {
	var c Caller
	for _, f := range []struct {
		src *string
		dst *string
		key string
	}{
		{call.Principal, &c.Principal, "principal"},
		{call.Credentials, &c.Credentials, "credentials"},
	} {
		if f.src == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(*f.src)
		if err != nil {
			return Caller{}, fmt.Errorf("%w: %s is not base64: %v", ErrBadRequest, f.key, err)
		}
		*f.dst = string(raw)
		c.Present = true
	}
	return c, nil
}

// findMethod matches name case-insensitively among the bean's exported
// methods with arity argc, not counting a leading context.Context.
func findMethod(bean reflect.Value, name string, argc int) (reflect.Value, bool, bool) {
	t := bean.Type()
	for j := range t.NumMethod() {
		m := t.Method(j)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		fn := bean.Method(j)
		ft := fn.Type()
		if ft.IsVariadic() {
			continue
		}
		withCtx := ft.NumIn() > 0 && ft.In(0) == typeOfContext
		n := ft.NumIn()
		if withCtx {
			n--
		}
		if n == argc {
			return fn, withCtx, true
		}
	}
	return reflect.Value{}, false, false
}

func (i *Invoker) decodeArgs(ctx context.Context, ft reflect.Type, withCtx bool, raw []codec.RawMessage) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, ft.NumIn())
	offset := 0
	if withCtx {
		args = append(args, reflect.ValueOf(ctx))
		offset = 1
	}
	for j, r := range raw {
		pt := ft.In(j + offset)
		pv := reflect.New(pt)
		if len(r) > 0 {
			if err := i.codec.Decode(r, pv.Interface()); err != nil {
				return nil, fmt.Errorf("%w: argValues[%d] as %s: %v", ErrBadRequest, j, pt, err)
			}
		}
		args = append(args, pv.Elem())
	}
	return args, nil
}

func splitResults(method string, out []reflect.Value) (any, error) {
	var (
		result any
		found  bool
	)
	for _, v := range out {
		if v.Type() == typeOfError {
			if !v.IsNil() {
				return nil, &MethodError{Method: method, Err: v.Interface().(error)}
			}
			continue
		}
		if !found {
			result, found = v.Interface(), true
		}
	}
	return result, nil
}
