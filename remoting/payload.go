package remoting

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
)

// ErrCredentialEncoding is returned when a credential option is present but cannot be encoded.
var ErrCredentialEncoding = errors.New("remoting: credential option cannot be encoded")

// newRequest builds the payload of one call. argValues is never nil so that
// no-argument calls serialize as an empty array.
func newRequest(lookup, method string, argTypes []string, argValues []any, aux map[string]any) (*InvocationRequest, error) {
	if argTypes == nil {
		argTypes = []string{}
	}
	if argValues == nil {
		argValues = []any{}
	}
	req := &InvocationRequest{
		Lookup:    lookup,
		Method:    method,
		ArgTypes:  argTypes,
		ArgValues: argValues,
	}

	var err error
	if req.Principal, err = encodeCredential(aux, SecurityPrincipal); err != nil {
		return nil, err
	}
	if req.Credentials, err = encodeCredential(aux, SecurityCredentials); err != nil {
		return nil, err
	}
	return req, nil
}

// encodeCredential returns the base64 form of aux[key], or nil when the key is absent.
func encodeCredential(aux map[string]any, key string) (*string, error) {
	v, ok := aux[key]
	if !ok {
		return nil, nil
	}
	if isNil(v) {
		return nil, fmt.Errorf("%w: %s is nil", ErrCredentialEncoding, key)
	}
	var raw string
	switch x := v.(type) {
	case string:
		raw = x
	case []byte:
		raw = string(x)
	default:
		raw = fmt.Sprint(x)
	}
	enc := base64.StdEncoding.EncodeToString([]byte(raw))
	return &enc, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
