// Package remoting turns a service definition into a client that invokes the
// service's methods on a remote invoker endpoint over HTTP.
//
// A service definition is a struct whose exported func-typed fields are the
// remote methods:
//
//	type UserService struct {
//		GetUser   func(ctx context.Context, id int64) (*User, error)
//		ListUsers func() (*remoting.Future[[]User], error)
//		Watch     func(id int64) *remoting.Single[Event]
//		String    func() string
//	}
//
// Bind fills every field. A call is sent as a JSON POST to
// {target}/{interface}/{method} and its result is adapted to the declared
// return shape: (R, error) blocks, while *Future[T] and *Single[T] hand the
// exchange to the transport at once and deliver the outcome later. String,
// HashCode and Equals are answered locally.
package remoting

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"reflect"

	"github.com/google/uuid"

	"remoting-proxy-go/internal/model"
)

// Namer can be implemented by a service definition to choose its interface
// simple name.
type Namer interface {
	RemoteName() string
}

// New allocates a T, binds it and returns it.
func New[T any](target *Target, lookup string, opts ...Option) (*T, error) {
	svc := new(T)
	if _, err := Bind(svc, target, lookup, opts...); err != nil {
		return nil, err
	}
	return svc, nil
}

// dialed is the placeholder service bound by Dial.
type dialed struct{ _ byte }

// Dial returns a Handle for calls made through Handle.Invoke, without a
// service definition. iface is the interface simple name.
func Dial(target *Target, iface, lookup string, opts ...Option) (*Handle, error) {
	return Bind(&dialed{}, target, lookup, append(opts, WithInterfaceName(iface))...)
}

// Bind installs the proxy implementation into every remote method field of
// svc, which must be a non-nil pointer to a struct. The dispatch table is
// computed once here; if any field has an unsupported signature svc is left
// untouched.
func Bind(svc any, target *Target, lookup string, opts ...Option) (*Handle, error) {
	rv := reflect.ValueOf(svc)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	if target == nil {
		return nil, errors.New("remoting: nil target")
	}

	o := options{typeNamer: JavaTypeName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.transport == nil {
		o.transport = defaultTransport()
	}

	iface, err := interfaceName(svc, o.interfaceName)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:        uuid.New(),
		target:    target.Path(iface),
		iface:     iface,
		lookup:    lookup,
		header:    copyHeader(o.header),
		cookies:   copyCookies(o.cookies),
		aux:       maps.Clone(o.aux),
		transport: o.transport,
		logger:    o.logger.With("component", "remoting", "interface", iface),
		proxy:     svc,
		methods:   make(map[string]*method),
	}

	elem := rv.Elem()
	st := elem.Type()
	fields := make(map[string]string)
	for i := range st.NumField() {
		f := st.Field(i)
		m, err := newMethod(f, o.typeNamer)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		if m.identity == remoteCall {
			m.url = h.target.Path(m.name).URL()
			if prev, dup := fields[m.name]; dup {
				h.logger.Warn("remote method name collision, calls share one endpoint",
					"method", m.name,
					"fields", []string{prev, f.Name},
				)
			} else {
				fields[m.name] = f.Name
			}
		}
		h.methods[f.Name] = m
	}

	for name, m := range h.methods {
		elem.FieldByName(name).Set(reflect.MakeFunc(m.fnType, h.dispatcher(m)))
	}

	h.logger.Debug("proxy bound",
		"target", h.target.String(),
		"lookup", lookup,
		"methods", len(h.methods),
	)
	return h, nil
}

func interfaceName(svc any, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if n, ok := svc.(Namer); ok {
		if name := n.RemoteName(); name != "" {
			return name, nil
		}
	}
	name := reflect.TypeOf(svc).Elem().Name()
	if name == "" {
		return "", errors.New("remoting: anonymous service struct needs WithInterfaceName")
	}
	return name, nil
}

// dispatcher returns the implementation installed into one method field.
func (h *Handle) dispatcher(m *method) func([]reflect.Value) []reflect.Value {
	out := m.fnType.Out
	switch m.identity {
	case identityString:
		return func([]reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.ValueOf(h.String()).Convert(out(0))}
		}
	case identityHash:
		return func([]reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.ValueOf(int64(h.HashCode())).Convert(out(0))}
		}
	case identityEquals:
		return func(args []reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.ValueOf(h.Equals(args[0].Interface())).Convert(out(0))}
		}
	}

	return func(args []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if m.withCtx {
			if c, ok := args[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
			args = args[1:]
		}
		values := make([]any, len(args))
		for i, a := range args {
			values[i] = a.Interface()
		}

		ex, err := h.exchange(m.url, m.name, m.argTypes, values, m.shape)

		if m.shape == model.Synchronous {
			var res reflect.Value
			if err == nil {
				var dst any
				if m.payload != nil {
					res = reflect.New(m.payload)
					dst = res.Interface()
				}
				err = h.transport.Invoke(ctx, ex, dst)
			}
			if res.IsValid() && err == nil {
				res = res.Elem()
			} else {
				res = reflect.Value{}
			}
			return m.results(res, err)
		}

		// Future and Reactive results carry their own outcome.
		res := reflect.New(m.result.Elem())
		d := res.Interface().(deferred)
		if err != nil {
			d.fail(err)
		} else {
			d.bind(ctx, h.transport, func(ctx context.Context, dst any) error {
				return h.transport.Invoke(ctx, ex, dst)
			})
		}
		return m.results(res, err)
	}
}

// results shapes v and err into the declared result list. An invalid v
// becomes the zero value of the declared result type.
func (m *method) results(v reflect.Value, err error) []reflect.Value {
	out := make([]reflect.Value, 0, 2)
	if m.result != nil {
		if !v.IsValid() {
			v = reflect.Zero(m.result)
		}
		out = append(out, v)
	}
	if m.withErr {
		if err == nil {
			out = append(out, reflect.Zero(typeOfError))
		} else {
			out = append(out, reflect.ValueOf(&err).Elem())
		}
	}
	return out
}

func copyHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	return dst
}

func copyCookies(src []*http.Cookie) []*http.Cookie {
	dst := make([]*http.Cookie, 0, len(src))
	for _, c := range src {
		if c == nil {
			continue
		}
		cp := *c
		dst = append(dst, &cp)
	}
	return dst
}
