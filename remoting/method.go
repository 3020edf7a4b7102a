package remoting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"remoting-proxy-go/internal/model"
)

var (
	// ErrNotStruct is returned when the service value is not a non-nil pointer to a struct.
	ErrNotStruct = errors.New("remoting: service must be a non-nil pointer to a struct")
	// ErrUnsupportedSignature is returned for func fields whose results cannot carry a response or a failure.
	ErrUnsupportedSignature = errors.New("remoting: unsupported method signature")
)

var (
	typeOfContext = reflect.TypeFor[context.Context]()
	typeOfError   = reflect.TypeFor[error]()
)

type identity uint8

const (
	remoteCall identity = iota
	identityString
	identityHash
	identityEquals
)

// method is one entry of a proxy's dispatch table, computed once at bind time.
type method struct {
	field    string
	name     string
	identity identity
	fnType   reflect.Type

	withCtx  bool
	argTypes []string
	shape    model.ReturnShape
	result   reflect.Type // first declared result, nil for error-only methods
	payload  reflect.Type // type the response body is decoded into
	withErr  bool
	url      string
}

// newMethod classifies a func-typed struct field. It returns nil for fields
// that are not part of the remote interface.
func newMethod(f reflect.StructField, namer TypeNamer) (*method, error) {
	if !f.IsExported() || f.Type.Kind() != reflect.Func {
		return nil, nil
	}
	name := f.Name
	if tag, ok := f.Tag.Lookup("remote"); ok {
		if tag == "-" {
			return nil, nil
		}
		if tag != "" {
			name = tag
		}
	}

	ft := f.Type
	m := &method{field: f.Name, name: name, fnType: ft}
	if m.identity = identityOf(name, ft); m.identity != remoteCall {
		return m, nil
	}

	in := 0
	if ft.NumIn() > 0 && ft.In(0) == typeOfContext {
		m.withCtx = true
		in = 1
	}
	m.argTypes = make([]string, 0, ft.NumIn()-in)
	for i := in; i < ft.NumIn(); i++ {
		m.argTypes = append(m.argTypes, namer(ft.In(i)))
	}

	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == typeOfError {
		m.withErr = true
		outs--
	}

	switch outs {
	case 0:
		if !m.withErr {
			return nil, fmt.Errorf("%w: %s must return an error", ErrUnsupportedSignature, f.Name)
		}
		m.shape = model.Synchronous
	case 1:
		rt := ft.Out(0)
		m.result = rt
		switch {
		case rt.Implements(reactiveType):
			m.shape = model.Reactive
			m.payload = payloadOf(rt)
		case rt.Implements(deferredType):
			m.shape = model.Future
			m.payload = payloadOf(rt)
		case m.withErr:
			m.shape = model.Synchronous
			m.payload = rt
		default:
			return nil, fmt.Errorf("%w: %s returns %s without an error", ErrUnsupportedSignature, f.Name, rt)
		}
	default:
		return nil, fmt.Errorf("%w: %s has %d value results", ErrUnsupportedSignature, f.Name, outs)
	}
	return m, nil
}

// payloadOf returns the type argument of a *Future[T] or *Single[T].
func payloadOf(rt reflect.Type) reflect.Type {
	return reflect.New(rt.Elem()).Interface().(deferred).payloadType()
}

func identityOf(name string, ft reflect.Type) identity {
	if ft.NumOut() != 1 {
		return remoteCall
	}
	out := ft.Out(0).Kind()
	switch name {
	case "String", "toString":
		if ft.NumIn() == 0 && out == reflect.String {
			return identityString
		}
	case "HashCode", "hashCode":
		if ft.NumIn() == 0 && isInteger(out) {
			return identityHash
		}
	case "Equals", "equals":
		if ft.NumIn() == 1 && out == reflect.Bool {
			return identityEquals
		}
	}
	return remoteCall
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// TypeNamer names a parameter type for the argTypes list.
type TypeNamer func(reflect.Type) string

var javaNames = map[reflect.Kind]string{
	reflect.Bool:    "boolean",
	reflect.Int:     "long",
	reflect.Int8:    "byte",
	reflect.Int16:   "short",
	reflect.Int32:   "int",
	reflect.Int64:   "long",
	reflect.Uint8:   "byte",
	reflect.Uint16:  "char",
	reflect.Float32: "float",
	reflect.Float64: "double",
	reflect.String:  "java.lang.String",
}

var javaBoxed = map[reflect.Kind]string{
	reflect.Bool:    "java.lang.Boolean",
	reflect.Int:     "java.lang.Long",
	reflect.Int8:    "java.lang.Byte",
	reflect.Int16:   "java.lang.Short",
	reflect.Int32:   "java.lang.Integer",
	reflect.Int64:   "java.lang.Long",
	reflect.Uint8:   "java.lang.Byte",
	reflect.Uint16:  "java.lang.Character",
	reflect.Float32: "java.lang.Float",
	reflect.Float64: "java.lang.Double",
	reflect.String:  "java.lang.String",
}

// JavaTypeName maps Go builtin kinds onto the Java types an EJB server expects:
// primitives for values, wrapper classes for pointers, [B for byte slices and
// java.util collections for slices and maps. Named struct types fall back to
// their Go type string.
func JavaTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		if n, ok := javaBoxed[t.Elem().Kind()]; ok && t.Elem().PkgPath() == "" {
			return n
		}
		return JavaTypeName(t.Elem())
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return "[B"
		}
		return "java.util.List"
	case reflect.Map:
		return "java.util.Map"
	case reflect.Interface:
		return "java.lang.Object"
	}
	if t.PkgPath() == "" {
		if n, ok := javaNames[t.Kind()]; ok {
			return n
		}
	}
	return strings.TrimPrefix(t.String(), "*")
}

// GoTypeName names parameters by their Go type string.
func GoTypeName(t reflect.Type) string {
	return t.String()
}
