package remoting

import (
	"context"
	"log/slog"
	"net/http"

	"remoting-proxy-go/internal/model"
)

// Re-exported wire and transport types.
type (
	Exchange          = model.Exchange
	InvocationRequest = model.InvocationRequest
	ReturnShape       = model.ReturnShape
)

// Return shapes.
const (
	ShapeSynchronous = model.Synchronous
	ShapeFuture      = model.Future
	ShapeReactive    = model.Reactive
)

// Auxiliary option keys whose values are forwarded, base64 encoded, as caller credentials.
const (
	SecurityPrincipal   = model.SecurityPrincipal
	SecurityCredentials = model.SecurityCredentials
)

// Transport carries exchanges to the invoker endpoint.
type Transport interface {
	// Invoke executes ex and decodes the response body into out.
	Invoke(ctx context.Context, ex *Exchange, out any) error
	// Go runs fn asynchronously and returns without waiting for it.
	Go(ctx context.Context, fn func(context.Context))
}

// Option configures a proxy at bind time.
type Option func(*options)

type options struct {
	header        http.Header
	cookies       []*http.Cookie
	aux           map[string]any
	transport     Transport
	logger        *slog.Logger
	interfaceName string
	typeNamer     TypeNamer
}

// WithHeader sets headers sent with every invocation.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithCookies sets cookies sent, in order, with every invocation.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(o *options) { o.cookies = cookies }
}

// WithOptions sets the auxiliary options map. Entries under SecurityPrincipal
// and SecurityCredentials are forwarded with each call.
func WithOptions(aux map[string]any) Option {
	return func(o *options) { o.aux = aux }
}

// WithTransport sets the transport. The default is an HTTP client with default
// settings, shared by every proxy bound without this option.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger sets the logger used for bind-time diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInterfaceName overrides the path segment derived from the service type name.
func WithInterfaceName(name string) Option {
	return func(o *options) { o.interfaceName = name }
}

// WithTypeNamer sets how parameter types are named in argTypes.
func WithTypeNamer(n TypeNamer) Option {
	return func(o *options) { o.typeNamer = n }
}
